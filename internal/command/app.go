package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"ollaterm/internal/config"
)

type Deps struct {
	LoadConfig       func() config.Config
	RunTask          func(ctx context.Context, cfg config.Config, task string) error
	RunMenu          func(ctx context.Context, cfg config.Config) error
	ListTasks        func(ctx context.Context, cfg config.Config) error
	ListModels       func(ctx context.Context, cfg config.Config) error
	PullModel        func(ctx context.Context, cfg config.Config, model string) error
	RunCheck         func(ctx context.Context, cfg config.Config) error
	EditInstructions func(ctx context.Context, cfg config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	modelFlag := &cli.StringFlag{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "model to use for this run",
	}
	return &cli.App{
		Name:  "ollaterm",
		Usage: "autonomous shell agent backed by a local ollama server",
		Flags: []cli.Flag{modelFlag},
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(deps, ctx)
			if ctx.Args().Len() > 0 {
				return runTask(ctx.Context, deps, cfg, joinArgs(ctx))
			}
			return runMenu(ctx.Context, deps, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "run one task to completion",
				ArgsUsage: "<task description>",
				Flags:     []cli.Flag{modelFlag},
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					task := joinArgs(ctx)
					if task == "" {
						return errors.New("a task description is required")
					}
					return runTask(ctx.Context, deps, cfg, task)
				},
			},
			{
				Name:  "menu",
				Usage: "open the interactive launcher",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					return runMenu(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "tasks",
				Usage: "list saved tasks and recent runs",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					return listTasks(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "models",
				Usage: "list installed models",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					return listModels(ctx.Context, deps, cfg)
				},
			},
			{
				Name:      "pull",
				Usage:     "download a model",
				ArgsUsage: "<model>",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					model := strings.TrimSpace(ctx.Args().First())
					if model == "" {
						return errors.New("a model name is required")
					}
					return pullModel(ctx.Context, deps, cfg, model)
				},
			},
			{
				Name:  "check",
				Usage: "check the ollama install and host environment",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					return runCheck(ctx.Context, deps, cfg)
				},
			},
			{
				Name:  "instructions",
				Usage: "edit the custom instruction block",
				Action: func(ctx *cli.Context) error {
					cfg := loadConfig(deps, ctx)
					return editInstructions(ctx.Context, deps, cfg)
				},
			},
		},
	}
}

func loadConfig(deps Deps, ctx *cli.Context) config.Config {
	var cfg config.Config
	if deps.LoadConfig != nil {
		cfg = deps.LoadConfig()
	} else {
		cfg = config.LoadConfig()
	}
	if model := strings.TrimSpace(ctx.String("model")); model != "" {
		cfg.Model = model
	}
	return cfg
}

func joinArgs(ctx *cli.Context) string {
	return strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
}

func runTask(ctx context.Context, deps Deps, cfg config.Config, task string) error {
	if deps.RunTask == nil {
		return errors.New("task runner is not configured")
	}
	return deps.RunTask(ctx, cfg, task)
}

func runMenu(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunMenu == nil {
		return errors.New("menu runner is not configured")
	}
	return deps.RunMenu(ctx, cfg)
}

func listTasks(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.ListTasks == nil {
		return errors.New("task listing is not configured")
	}
	return deps.ListTasks(ctx, cfg)
}

func listModels(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.ListModels == nil {
		return errors.New("model listing is not configured")
	}
	return deps.ListModels(ctx, cfg)
}

func pullModel(ctx context.Context, deps Deps, cfg config.Config, model string) error {
	if deps.PullModel == nil {
		return errors.New("model pulling is not configured")
	}
	return deps.PullModel(ctx, cfg, model)
}

func runCheck(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunCheck == nil {
		return errors.New("system check is not configured")
	}
	return deps.RunCheck(ctx, cfg)
}

func editInstructions(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.EditInstructions == nil {
		return errors.New("instruction editing is not configured")
	}
	return deps.EditInstructions(ctx, cfg)
}
