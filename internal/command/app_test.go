package command

import (
	"context"
	"testing"

	"ollaterm/internal/config"
)

func TestBuildApp_DefaultCommandIsMenu(t *testing.T) {
	menuCalled := 0
	taskCalled := 0
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{}
		},
		RunMenu: func(context.Context, config.Config) error {
			menuCalled++
			return nil
		},
		RunTask: func(context.Context, config.Config, string) error {
			taskCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if menuCalled != 1 || taskCalled != 0 {
		t.Fatalf("unexpected call count menu=%d task=%d", menuCalled, taskCalled)
	}
}

func TestBuildApp_BareArgsRunATask(t *testing.T) {
	var gotTask string
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		RunTask: func(_ context.Context, _ config.Config, task string) error {
			gotTask = task
			return nil
		},
		RunMenu: func(context.Context, config.Config) error { return nil },
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm", "update", "the", "system"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if gotTask != "update the system" {
		t.Fatalf("task = %q", gotTask)
	}
}

func TestBuildApp_RunCommandAppliesModelFlag(t *testing.T) {
	var gotTask string
	var gotModel string
	app := BuildApp(Deps{
		LoadConfig: func() config.Config {
			return config.Config{Model: "llama3"}
		},
		RunTask: func(_ context.Context, cfg config.Config, task string) error {
			gotTask = task
			gotModel = cfg.Model
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm", "run", "--model", "mistral", "check", "disk", "space"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if gotTask != "check disk space" {
		t.Fatalf("task = %q", gotTask)
	}
	if gotModel != "mistral" {
		t.Fatalf("model = %q, want flag override", gotModel)
	}
}

func TestBuildApp_RunCommandRequiresATask(t *testing.T) {
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		RunTask:    func(context.Context, config.Config, string) error { return nil },
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm", "run"}); err == nil {
		t.Fatalf("expected an error for an empty task")
	}
}

func TestBuildApp_PullCommand(t *testing.T) {
	var gotModel string
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		PullModel: func(_ context.Context, _ config.Config, model string) error {
			gotModel = model
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm", "pull", "qwen"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if gotModel != "qwen" {
		t.Fatalf("model = %q", gotModel)
	}
}

func TestBuildApp_AuxiliaryCommands(t *testing.T) {
	calls := map[string]int{}
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
		ListTasks: func(context.Context, config.Config) error {
			calls["tasks"]++
			return nil
		},
		ListModels: func(context.Context, config.Config) error {
			calls["models"]++
			return nil
		},
		RunCheck: func(context.Context, config.Config) error {
			calls["check"]++
			return nil
		},
		EditInstructions: func(context.Context, config.Config) error {
			calls["instructions"]++
			return nil
		},
	})
	for _, name := range []string{"tasks", "models", "check", "instructions"} {
		if err := app.RunContext(context.Background(), []string{"ollaterm", name}); err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if calls[name] != 1 {
			t.Fatalf("%s called %d times", name, calls[name])
		}
	}
}

func TestBuildApp_MissingRunnerErrors(t *testing.T) {
	app := BuildApp(Deps{
		LoadConfig: func() config.Config { return config.Config{} },
	})
	if err := app.RunContext(context.Background(), []string{"ollaterm", "menu"}); err == nil {
		t.Fatalf("expected an error when no menu runner is wired")
	}
}
