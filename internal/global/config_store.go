package global

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const configTOMLFileName = "config.toml"

// AgentPrefs are the operator's persistent agent preferences.
type AgentPrefs struct {
	// DefaultModel overrides automatic model selection when set.
	DefaultModel string `toml:"default_model"`
	// SaveCompletedTasks controls whether a finished task offers itself
	// for the saved-task list.
	SaveCompletedTasks bool `toml:"save_completed_tasks"`
}

// GlobalConfig is the operator-editable configuration file. The custom
// instructions text is opaque here; it is injected verbatim into the
// agent's system prompt.
type GlobalConfig struct {
	CustomInstructions string     `toml:"custom_instructions,multiline,omitempty"`
	Agent              AgentPrefs `toml:"agent"`
}

type ConfigStore struct {
	dir string
}

func NewConfigStore(dir string) *ConfigStore {
	return &ConfigStore{dir: dir}
}

// LoadOrInit reads the config file, creating it with defaults when absent.
func (s *ConfigStore) LoadOrInit() (GlobalConfig, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return GlobalConfig{}, err
	}

	path := filepath.Join(s.dir, configTOMLFileName)
	if b, err := os.ReadFile(path); err == nil {
		var cfg GlobalConfig
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return GlobalConfig{}, err
		}
		return normalizeConfig(cfg), nil
	} else if !os.IsNotExist(err) {
		return GlobalConfig{}, err
	}

	cfg := normalizeConfig(GlobalConfig{Agent: AgentPrefs{SaveCompletedTasks: true}})
	if err := writeTOMLAtomically(path, cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

func (s *ConfigStore) Save(cfg GlobalConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return writeTOMLAtomically(filepath.Join(s.dir, configTOMLFileName), normalizeConfig(cfg))
}

func normalizeConfig(cfg GlobalConfig) GlobalConfig {
	cfg.CustomInstructions = strings.TrimSpace(cfg.CustomInstructions)
	cfg.Agent.DefaultModel = strings.TrimSpace(cfg.Agent.DefaultModel)
	return cfg
}

func writeTOMLAtomically(path string, v any) error {
	b, err := toml.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
