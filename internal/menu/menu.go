package menu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"ollaterm/internal/global"
	"ollaterm/internal/logging"
	"ollaterm/internal/ollama"
	"ollaterm/internal/sysinfo"
	"ollaterm/internal/taskstore"
	"ollaterm/internal/ui"
)

// ModelService is the slice of the Ollama client the menu needs.
type ModelService interface {
	Running(ctx context.Context) bool
	ListModels(ctx context.Context) ([]string, error)
	Pull(ctx context.Context, model string, onProgress func(ollama.PullProgress)) error
	EnsureRunning(ctx context.Context) error
}

// Deps carries everything the interactive launcher talks to.
type Deps struct {
	UI     *ui.Renderer
	Client ModelService
	Tasks  *taskstore.Store
	Config *global.ConfigStore
	Logger *slog.Logger

	// RunTask drives one full agent session for the given description.
	// The model may be empty, in which case the runner picks one.
	RunTask func(ctx context.Context, task, model string) error
}

type Menu struct {
	deps Deps
}

func New(deps Deps) (*Menu, error) {
	if deps.UI == nil || deps.Client == nil || deps.RunTask == nil {
		return nil, errors.New("menu requires ui, client and a task runner")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	return &Menu{deps: deps}, nil
}

// Run loops on the main menu until the operator quits or input ends.
func (m *Menu) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		choice, err := m.deps.UI.ReadLine(mainMenuPrompt())
		if err != nil {
			return nil
		}
		switch strings.TrimSpace(choice) {
		case "1":
			m.runNewTask(ctx)
		case "2":
			m.savedTasks(ctx)
		case "3":
			m.chooseModel(ctx)
		case "4":
			m.pullModel(ctx)
		case "5":
			m.SystemCheck(ctx)
		case "6":
			m.EditInstructions()
		case "7":
			m.startServer(ctx)
		case "q", "Q", "0":
			return nil
		case "":
			continue
		default:
			m.deps.UI.Warnf("unknown choice %q", strings.TrimSpace(choice))
		}
	}
}

func mainMenuPrompt() string {
	var b strings.Builder
	b.WriteString("\n  1) run a task\n")
	b.WriteString("  2) saved tasks\n")
	b.WriteString("  3) choose default model\n")
	b.WriteString("  4) pull a model\n")
	b.WriteString("  5) system check\n")
	b.WriteString("  6) custom instructions\n")
	b.WriteString("  7) start ollama server\n")
	b.WriteString("  q) quit\n\n  > ")
	return b.String()
}

func (m *Menu) runNewTask(ctx context.Context) {
	task, err := m.deps.UI.ReadLine("  task: ")
	if err != nil || strings.TrimSpace(task) == "" {
		return
	}
	m.runTask(ctx, strings.TrimSpace(task))
}

func (m *Menu) runTask(ctx context.Context, task string) {
	model := m.defaultModel()
	if err := m.deps.RunTask(ctx, task, model); err != nil {
		m.deps.UI.Errorf("run failed: %v", err)
		return
	}
	m.offerSave(task)
}

func (m *Menu) defaultModel() string {
	if m.deps.Config == nil {
		return ""
	}
	cfg, err := m.deps.Config.LoadOrInit()
	if err != nil {
		m.deps.Logger.Warn("config load failed", "error", err)
		return ""
	}
	return cfg.Agent.DefaultModel
}

// offerSave prompts after a successful run, unless the operator turned the
// offer off in the config file.
func (m *Menu) offerSave(task string) {
	if m.deps.Tasks == nil {
		return
	}
	if m.deps.Config != nil {
		if cfg, err := m.deps.Config.LoadOrInit(); err == nil && !cfg.Agent.SaveCompletedTasks {
			return
		}
	}
	if !m.deps.UI.Confirm("  save this task for reuse?") {
		return
	}
	if err := m.deps.Tasks.SaveTask(task); err != nil {
		m.deps.UI.Errorf("save failed: %v", err)
	}
}

func (m *Menu) savedTasks(ctx context.Context) {
	if m.deps.Tasks == nil {
		m.deps.UI.Warnf("task storage is not available")
		return
	}
	tasks, err := m.deps.Tasks.ListTasks()
	if err != nil {
		m.deps.UI.Errorf("list failed: %v", err)
		return
	}
	if len(tasks) == 0 {
		m.deps.UI.Info("no saved tasks yet")
		return
	}
	for i, t := range tasks {
		m.deps.UI.Info(fmt.Sprintf("%2d) %s  (runs: %d)", i+1, t.Description, t.RunCount))
	}
	line, err := m.deps.UI.ReadLine("  run which task? (number, dN deletes, empty to go back): ")
	if err != nil {
		return
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if rest, ok := strings.CutPrefix(line, "d"); ok {
		idx, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil || idx < 1 || idx > len(tasks) {
			m.deps.UI.Warnf("no such task %q", rest)
			return
		}
		if err := m.deps.Tasks.DeleteTask(tasks[idx-1].ID); err != nil {
			m.deps.UI.Errorf("delete failed: %v", err)
		}
		return
	}
	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(tasks) {
		m.deps.UI.Warnf("no such task %q", line)
		return
	}
	m.runTask(ctx, tasks[idx-1].Description)
}

func (m *Menu) chooseModel(ctx context.Context) {
	models, err := m.deps.Client.ListModels(ctx)
	if err != nil {
		m.deps.UI.Errorf("cannot list models: %v", err)
		return
	}
	if len(models) == 0 {
		m.deps.UI.Warnf("no models installed; pull one first")
		return
	}
	idx := pickOne(m.deps.UI, models)
	if idx < 0 {
		return
	}
	if m.deps.Config == nil {
		m.deps.UI.Warnf("config storage is not available")
		return
	}
	cfg, err := m.deps.Config.LoadOrInit()
	if err != nil {
		m.deps.UI.Errorf("config load failed: %v", err)
		return
	}
	cfg.Agent.DefaultModel = models[idx]
	if err := m.deps.Config.Save(cfg); err != nil {
		m.deps.UI.Errorf("config save failed: %v", err)
		return
	}
	m.deps.UI.Info("default model set to " + models[idx])
}

func (m *Menu) pullModel(ctx context.Context) {
	name, err := m.deps.UI.ReadLine("  model to pull: ")
	if err != nil || strings.TrimSpace(name) == "" {
		return
	}
	m.Pull(ctx, strings.TrimSpace(name))
}

// Pull downloads a model, reporting status transitions as they stream in.
func (m *Menu) Pull(ctx context.Context, name string) {
	var lastStatus string
	err := m.deps.Client.Pull(ctx, name, func(p ollama.PullProgress) {
		if p.Status != lastStatus {
			lastStatus = p.Status
			m.deps.UI.Info(p.Status)
		}
		if p.Total > 0 && p.Completed == p.Total {
			m.deps.UI.Info(fmt.Sprintf("%s: %d/%d bytes", p.Status, p.Completed, p.Total))
		}
	})
	if err != nil {
		m.deps.UI.Errorf("pull failed: %v", err)
		return
	}
	m.deps.UI.Info("pulled " + name)
}

// SystemCheck reports install, server and host state.
func (m *Menu) SystemCheck(ctx context.Context) {
	if ollama.Installed() {
		m.deps.UI.Info("ollama binary: found")
	} else {
		m.deps.UI.Warnf("ollama binary: not found in PATH")
	}
	if m.deps.Client.Running(ctx) {
		m.deps.UI.Info("ollama server: running")
		models, err := m.deps.Client.ListModels(ctx)
		if err != nil {
			m.deps.UI.Warnf("model list: %v", err)
		} else {
			m.deps.UI.Info(fmt.Sprintf("models installed: %d", len(models)))
		}
	} else {
		m.deps.UI.Warnf("ollama server: not reachable")
	}
	env := sysinfo.Probe()
	m.deps.UI.Info("host: " + env.Hostname + " (" + env.OS + ")")
	m.deps.UI.Info("shell: " + env.Shell)
	if len(env.PackageManagers) > 0 {
		m.deps.UI.Info("package managers: " + strings.Join(env.PackageManagers, ", "))
	}
}

// EditInstructions replaces the custom instruction block. Input ends with a
// line containing only a dot; a lone '-' clears the stored text.
func (m *Menu) EditInstructions() {
	if m.deps.Config == nil {
		m.deps.UI.Warnf("config storage is not available")
		return
	}
	cfg, err := m.deps.Config.LoadOrInit()
	if err != nil {
		m.deps.UI.Errorf("config load failed: %v", err)
		return
	}
	if cfg.CustomInstructions != "" {
		m.deps.UI.Info("current instructions:")
		for _, line := range strings.Split(cfg.CustomInstructions, "\n") {
			m.deps.UI.Info("  " + line)
		}
	}
	m.deps.UI.Info("enter new instructions, finish with a single '.' line")
	m.deps.UI.Info("(a single '-' line clears them; empty input keeps the current text):")
	var lines []string
	for {
		line, err := m.deps.UI.ReadLine("")
		if err != nil || strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	text := strings.TrimSpace(strings.Join(lines, "\n"))
	switch text {
	case "":
		return
	case "-":
		cfg.CustomInstructions = ""
		if err := m.deps.Config.Save(cfg); err != nil {
			m.deps.UI.Errorf("config save failed: %v", err)
			return
		}
		m.deps.UI.Info("instructions cleared")
		return
	}
	cfg.CustomInstructions = text
	if err := m.deps.Config.Save(cfg); err != nil {
		m.deps.UI.Errorf("config save failed: %v", err)
		return
	}
	m.deps.UI.Info("instructions updated")
}

func (m *Menu) startServer(ctx context.Context) {
	if m.deps.Client.Running(ctx) {
		m.deps.UI.Info("server already running")
		return
	}
	if err := m.deps.Client.EnsureRunning(ctx); err != nil {
		m.deps.UI.Errorf("start failed: %v", err)
		return
	}
	m.deps.UI.Info("server started")
}

// pickOne renders a numbered list and reads one selection. Returns -1 when
// the operator backs out.
func pickOne(r *ui.Renderer, options []string) int {
	for i, opt := range options {
		r.Info(fmt.Sprintf("%2d) %s", i+1, opt))
	}
	for {
		line, err := r.ReadLine("  pick (empty to go back): ")
		if err != nil {
			return -1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return -1
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(options) {
			r.Warnf("no such option %q", line)
			continue
		}
		return idx - 1
	}
}
