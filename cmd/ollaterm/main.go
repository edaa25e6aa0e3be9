package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ollaterm/internal/agent"
	"ollaterm/internal/command"
	"ollaterm/internal/config"
	"ollaterm/internal/db"
	"ollaterm/internal/global"
	"ollaterm/internal/logging"
	"ollaterm/internal/menu"
	"ollaterm/internal/ollama"
	"ollaterm/internal/shellexec"
	"ollaterm/internal/sysinfo"
	"ollaterm/internal/taskstore"
	"ollaterm/internal/ui"
)

var version = "dev"
var buildTime = "unknown"

func versionLine() string {
	return fmt.Sprintf("%s (built %s)", version, buildTime)
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: config.LoadConfig,
		RunTask: func(ctx context.Context, cfg config.Config, task string) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			rt.term.Banner(versionLine())
			return rt.runSession(ctx, task, cfg.Model)
		},
		RunMenu: func(ctx context.Context, cfg config.Config) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			rt.term.Banner(versionLine())
			m, err := rt.buildMenu()
			if err != nil {
				return err
			}
			return m.Run(ctx)
		},
		ListTasks: func(ctx context.Context, cfg config.Config) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return rt.listTasks()
		},
		ListModels: func(ctx context.Context, cfg config.Config) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return rt.listModels(ctx)
		},
		PullModel: func(ctx context.Context, cfg config.Config, model string) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			m, err := rt.buildMenu()
			if err != nil {
				return err
			}
			m.Pull(ctx, model)
			return nil
		},
		RunCheck: func(ctx context.Context, cfg config.Config) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			m, err := rt.buildMenu()
			if err != nil {
				return err
			}
			m.SystemCheck(ctx)
			return nil
		},
		EditInstructions: func(ctx context.Context, cfg config.Config) error {
			rt, cleanup, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			m, err := rt.buildMenu()
			if err != nil {
				return err
			}
			m.EditInstructions()
			return nil
		},
	})

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr, Component: "ollaterm"}).
			Error("ollaterm failed", "err", err)
		os.Exit(1)
	}
}

// runtime bundles the wired dependencies of one CLI invocation.
type runtime struct {
	cfg      config.Config
	logger   *slog.Logger
	term     *ui.Renderer
	client   *ollama.Client
	store    *taskstore.Store
	cfgStore *global.ConfigStore
}

func newRuntime(cfg config.Config) (*runtime, func(), error) {
	logger := logging.NewLogger(logging.Options{
		Level:     cfg.LogLevel,
		Writer:    os.Stderr,
		Component: "ollaterm",
	})

	configDir := cfg.ConfigDir
	if configDir == "" {
		dir, err := global.DefaultConfigDir()
		if err != nil {
			return nil, nil, err
		}
		configDir = dir
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		term:     ui.NewRenderer(os.Stdout, os.Stdin, cfg.NoColor),
		client:   ollama.NewClient(cfg.BaseURL, logger.With("module", "ollama")),
		cfgStore: global.NewConfigStore(configDir),
	}

	cleanup := func() {}
	gdb, err := db.Open(global.DatabasePath(configDir))
	if err != nil {
		// history is optional; a broken database must not block a run
		logger.Warn("task database unavailable", "err", err)
	} else {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			cleanup = func() { _ = sqlDB.Close() }
		}
		store, storeErr := taskstore.NewStore(gdb)
		if storeErr == nil {
			rt.store = store
		}
	}
	return rt, cleanup, nil
}

func (rt *runtime) buildMenu() (*menu.Menu, error) {
	return menu.New(menu.Deps{
		UI:      rt.term,
		Client:  rt.client,
		Tasks:   rt.store,
		Config:  rt.cfgStore,
		Logger:  rt.logger.With("module", "menu"),
		RunTask: rt.runSession,
	})
}

// runSession drives one task from prompt assembly to the terminal status.
func (rt *runtime) runSession(ctx context.Context, task, model string) error {
	if err := rt.ensureServer(ctx); err != nil {
		return err
	}
	model, err := rt.resolveModel(ctx, model)
	if err != nil {
		return err
	}

	gcfg, err := rt.cfgStore.LoadOrInit()
	if err != nil {
		rt.logger.Warn("global config unavailable", "err", err)
	}

	env := sysinfo.Probe()
	systemPrompt := agent.BuildSystemPrompt(env.PromptBlock(), gcfg.CustomInstructions)
	session := agent.NewSession(task, model, systemPrompt, env.Cwd, rt.cfg.MaxHistoryMsgs)

	runner := &shellexec.Runner{
		Timeout:      rt.cfg.CommandTimeout,
		Logger:       rt.logger.With("module", "exec"),
		OnStdoutLine: rt.term.StdoutLine,
		OnStderrLine: rt.term.StderrLine,
	}
	controller := agent.NewController(
		&deadlineClient{client: rt.client, limit: rt.cfg.ModelCallLimit},
		runner,
		rt.term,
		rt.logger.With("module", "agent"),
		agent.Options{
			MaxIterations:  rt.cfg.MaxIterations,
			MaxJSONRetries: rt.cfg.MaxJSONRetries,
		},
	)

	rt.term.TaskHeader(model, task)
	started := time.Now()
	runErr := controller.Run(ctx, session)
	rt.recordRun(session, started)

	switch session.Status {
	case agent.StatusDone:
		rt.term.Summary(session.Summary())
		return nil
	case agent.StatusAborted:
		rt.term.FailReport(session.FailReason())
		return context.Canceled
	default:
		rt.term.FailReport(session.FailReason())
		return runErr
	}
}

func (rt *runtime) ensureServer(ctx context.Context) error {
	if rt.client.Running(ctx) {
		return nil
	}
	if !ollama.Installed() {
		return fmt.Errorf("ollama is not reachable at %s and the binary is not installed", rt.cfg.BaseURL)
	}
	rt.term.Info("ollama server is not running, starting it...")
	return rt.client.EnsureRunning(ctx)
}

// resolveModel picks: explicit flag/env, then the configured default, then
// the best installed model.
func (rt *runtime) resolveModel(ctx context.Context, model string) (string, error) {
	if model != "" {
		return model, nil
	}
	if gcfg, err := rt.cfgStore.LoadOrInit(); err == nil && gcfg.Agent.DefaultModel != "" {
		return gcfg.Agent.DefaultModel, nil
	}
	return rt.client.AutoModel(ctx)
}

func (rt *runtime) recordRun(session *agent.Session, started time.Time) {
	if rt.store == nil {
		return
	}
	_, err := rt.store.RecordRun(taskstore.RunRecord{
		Task:        session.Task,
		Model:       session.Model,
		Status:      string(session.Status),
		Iterations:  session.Iterations,
		FailReason:  session.FailReason(),
		StartedAt:   started,
		CompletedAt: time.Now(),
	})
	if err != nil {
		rt.logger.Warn("run history write failed", "err", err)
	}
	if err := rt.store.TouchTask(session.Task); err != nil {
		rt.logger.Warn("task bookkeeping failed", "err", err)
	}
}

func (rt *runtime) listTasks() error {
	if rt.store == nil {
		return errors.New("task storage is not available")
	}
	tasks, err := rt.store.ListTasks()
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		rt.term.Info("no saved tasks")
	}
	for i, t := range tasks {
		rt.term.Info(fmt.Sprintf("%2d) %s  (runs: %d)", i+1, t.Description, t.RunCount))
	}
	runs, err := rt.store.RecentRuns(10)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		rt.term.Rule()
		rt.term.Info("recent runs:")
		for _, r := range runs {
			rt.term.Info(fmt.Sprintf("%s  %-16s %-10s steps=%d  %s",
				r.StartedAt.Format("2006-01-02 15:04"), r.Model, r.Status, r.Iterations, r.Task))
		}
	}
	return nil
}

func (rt *runtime) listModels(ctx context.Context) error {
	if err := rt.ensureServer(ctx); err != nil {
		return err
	}
	models, err := rt.client.ListModels(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		rt.term.Info("no models installed; try: ollaterm pull llama3")
		return nil
	}
	defaultModel := ""
	if gcfg, err := rt.cfgStore.LoadOrInit(); err == nil {
		defaultModel = gcfg.Agent.DefaultModel
	}
	for _, m := range models {
		marker := "  "
		if m == defaultModel {
			marker = "* "
		}
		rt.term.Info(marker + m)
	}
	return nil
}

// deadlineClient bounds every model call so a wedged server cannot stall the
// loop forever.
type deadlineClient struct {
	client *ollama.Client
	limit  time.Duration
}

func (d *deadlineClient) Chat(ctx context.Context, model string, messages []ollama.Message) (string, error) {
	if d.limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.limit)
		defer cancel()
	}
	return d.client.Chat(ctx, model, messages)
}
