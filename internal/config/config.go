package config

import (
	"os"
	"strings"
	"time"
)

// Config is resolved once at startup and passed into constructors.
// Nothing in the agent core reads the environment directly.
type Config struct {
	BaseURL        string
	Model          string
	LogLevel       string
	MaxIterations  int
	MaxJSONRetries int
	MaxHistoryMsgs int
	CommandTimeout time.Duration
	ModelCallLimit time.Duration
	ConfigDir      string
	NoColor        bool
}

func LoadConfig() Config {
	base := strings.TrimSpace(os.Getenv("OLLATERM_BASE_URL"))
	if base == "" {
		base = "http://localhost:11434"
	}
	base = strings.TrimRight(base, "/")

	level := os.Getenv("OLLATERM_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	maxIterations := atoiOrDefault(os.Getenv("OLLATERM_MAX_ITERATIONS"), 60)
	maxJSONRetries := atoiOrDefault(os.Getenv("OLLATERM_MAX_JSON_RETRIES"), 5)
	maxHistoryMsgs := atoiOrDefault(os.Getenv("OLLATERM_MAX_HISTORY_MSGS"), 16)

	timeoutSeconds := atoiOrDefault(os.Getenv("OLLATERM_COMMAND_TIMEOUT_SECONDS"), 120)
	callSeconds := atoiOrDefault(os.Getenv("OLLATERM_MODEL_CALL_TIMEOUT_SECONDS"), 180)

	return Config{
		BaseURL:        base,
		Model:          strings.TrimSpace(os.Getenv("OLLATERM_MODEL")),
		LogLevel:       level,
		MaxIterations:  maxIterations,
		MaxJSONRetries: maxJSONRetries,
		MaxHistoryMsgs: maxHistoryMsgs,
		CommandTimeout: time.Duration(timeoutSeconds) * time.Second,
		ModelCallLimit: time.Duration(callSeconds) * time.Second,
		ConfigDir:      strings.TrimSpace(os.Getenv("OLLATERM_CONFIG_DIR")),
		NoColor:        os.Getenv("OLLATERM_NO_COLOR") == "1" || os.Getenv("NO_COLOR") != "",
	}
}

func atoiOrDefault(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
