package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ollaterm/internal/action"
	"ollaterm/internal/ollama"
	"ollaterm/internal/shellexec"
)

// ErrIterationLimit marks a session forced to failed by the global
// iteration ceiling.
var ErrIterationLimit = errors.New("iteration limit exceeded")

// ErrRepairExhausted marks a session that could not be recovered after the
// hard-reset budget ran out.
var ErrRepairExhausted = errors.New("action repair exhausted")

// ModelClient is the "send messages, get text back" surface the controller
// needs. *ollama.Client satisfies it; tests use scripted fakes.
type ModelClient interface {
	Chat(ctx context.Context, model string, messages []ollama.Message) (string, error)
}

// Executor runs one command in a directory. *shellexec.Runner satisfies it.
type Executor interface {
	Execute(ctx context.Context, command string, dir string) (shellexec.Result, error)
}

// UI receives the controller's progress events. The Ask call is the sole
// designed suspension point for human input: it blocks the task until the
// operator answers.
type UI interface {
	StepHeader(step int, reason string)
	CommandStart(command string)
	CommandEnd(res shellexec.Result)
	RetryNotice(attempt, max int)
	HardResetNotice()
	Ask(question string) (string, error)
	Thinking(step int) (stop func())
}

type Options struct {
	MaxIterations  int
	MaxJSONRetries int
	// MaxHardResets bounds consecutive repair exhaustions before the task
	// is abandoned as failed.
	MaxHardResets int
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 60
	}
	if o.MaxJSONRetries <= 0 {
		o.MaxJSONRetries = 5
	}
	if o.MaxHardResets <= 0 {
		o.MaxHardResets = 3
	}
	return o
}

// Controller drives one task end-to-end: model call, parse and repair,
// dispatch, observation fold-back. One outstanding model request or command
// execution at a time, by construction.
type Controller struct {
	client ModelClient
	exec   Executor
	ui     UI
	logger *slog.Logger
	opts   Options
}

func NewController(client ModelClient, exec Executor, ui UI, logger *slog.Logger, opts Options) *Controller {
	return &Controller{
		client: client,
		exec:   exec,
		ui:     ui,
		logger: logger,
		opts:   opts.withDefaults(),
	}
}

// Run executes the session until a terminal status. The returned error is
// non-nil only on the fatal paths: transport failure, iteration limit,
// repair exhaustion, or operator abort. Command failures are folded back as
// observations and never surface here.
func (c *Controller) Run(ctx context.Context, s *Session) error {
	s.Conv.Append(ollama.RoleUser, initialUserPrompt(s.Task))

	for s.Iterations < c.opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			s.Status = StatusAborted
			s.failReason = "aborted by operator"
			return err
		}
		s.Iterations++

		raw, act, err := c.nextAction(ctx, s)
		if err != nil {
			if errors.Is(err, action.ErrInvalidAction) {
				if resetErr := c.hardReset(s); resetErr != nil {
					return resetErr
				}
				continue
			}
			if ctx.Err() != nil {
				s.Status = StatusAborted
				s.failReason = "aborted by operator"
				return ctx.Err()
			}
			s.Status = StatusFailed
			s.failReason = fmt.Sprintf("model endpoint unreachable: %v", err)
			return err
		}
		s.hardResets = 0

		switch act.Kind {
		case action.KindDone:
			s.summary = act.Summary
			s.Status = StatusDone
			c.logger.Info("task done", "iterations", s.Iterations)
			return nil
		case action.KindAsk:
			if err := c.dispatchAsk(s, raw, act); err != nil {
				s.Status = StatusAborted
				s.failReason = "aborted by operator"
				return err
			}
		case action.KindRun:
			if err := c.dispatchRun(ctx, s, raw, act); err != nil {
				s.Status = StatusAborted
				s.failReason = "aborted by operator"
				return err
			}
		}
	}

	s.Status = StatusFailed
	s.failReason = fmt.Sprintf("iteration limit exceeded (%d)", c.opts.MaxIterations)
	c.logger.Warn("iteration limit exceeded", "limit", c.opts.MaxIterations)
	return ErrIterationLimit
}

// nextAction obtains one validated action, driving the bounded per-turn
// repair cycle. The retry counter is scoped to this call and therefore
// resets on every new turn.
func (c *Controller) nextAction(ctx context.Context, s *Session) (string, action.Action, error) {
	raw, err := c.callModel(ctx, s)
	if err != nil {
		return "", action.Action{}, err
	}
	act, parseErr := action.Parse(raw)
	if parseErr == nil {
		return raw, act, nil
	}

	for attempt := 1; attempt <= c.opts.MaxJSONRetries; attempt++ {
		c.ui.RetryNotice(attempt, c.opts.MaxJSONRetries)
		c.logger.Debug("malformed action, re-prompting", "attempt", attempt, "error", parseErr)
		s.Conv.Append(ollama.RoleAssistant, raw)
		s.Conv.Append(ollama.RoleUser, retryPrompt)

		raw, err = c.callModel(ctx, s)
		if err != nil {
			return "", action.Action{}, err
		}
		act, parseErr = action.Parse(raw)
		if parseErr == nil {
			return raw, act, nil
		}
	}
	return raw, action.Action{}, parseErr
}

func (c *Controller) callModel(ctx context.Context, s *Session) (string, error) {
	stop := c.ui.Thinking(s.Iterations)
	defer stop()
	return c.client.Chat(ctx, s.Model, s.Conv.Messages())
}

// hardReset discards the malformed exchange and re-anchors on the original
// task. After MaxHardResets consecutive resets the task fails; the loop
// never spins silently.
func (c *Controller) hardReset(s *Session) error {
	s.hardResets++
	c.ui.HardResetNotice()
	c.logger.Warn("action repair exhausted, hard reset", "consecutive", s.hardResets)
	if s.hardResets >= c.opts.MaxHardResets {
		s.Status = StatusFailed
		s.failReason = fmt.Sprintf("no valid action after %d repair attempts and %d resets",
			c.opts.MaxJSONRetries, s.hardResets)
		return ErrRepairExhausted
	}
	s.Conv.Reset(resumePrompt(s.Task))
	return nil
}

func (c *Controller) dispatchAsk(s *Session, raw string, act action.Action) error {
	s.Status = StatusAwaitingAnswer
	answer, err := c.ui.Ask(act.Question)
	if err != nil {
		return err
	}
	s.Status = StatusRunning
	s.Conv.Append(ollama.RoleAssistant, raw)
	s.Conv.Append(ollama.RoleUser, answerPrompt(answer))
	return nil
}

func (c *Controller) dispatchRun(ctx context.Context, s *Session, raw string, act action.Action) error {
	c.ui.StepHeader(s.Iterations, act.Reason)
	c.ui.CommandStart(act.Command)

	res, err := c.exec.Execute(ctx, act.Command, s.Cwd)
	if err != nil {
		// only spawn failure or cancellation reaches here
		if ctx.Err() != nil {
			return err
		}
		res = shellexec.Result{
			Stderr:   err.Error(),
			ExitCode: shellexec.ExitTimedOut,
		}
	}
	c.ui.CommandEnd(res)
	c.logger.Debug("command executed",
		"exit_code", res.ExitCode, "timed_out", res.TimedOut, "duration", res.Duration.String())

	failed := res.ExitCode != 0 || res.TimedOut
	repeated := failed && s.lastCmdFailed && act.Command == s.lastCommand
	s.lastCommand = act.Command
	s.lastCmdFailed = failed

	if !failed {
		if target, ok := cdTarget(act.Command, s.Cwd); ok {
			s.Cwd = target
		}
	}

	s.Conv.Append(ollama.RoleAssistant, raw)
	s.Conv.Append(ollama.RoleUser, observationPrompt(act.Command, res, s.Cwd, repeated))
	return nil
}

// cdTarget resolves a plain "cd <dir>" command so directory changes persist
// to later turns. Compound commands are left alone; their cd applies only
// within their own shell.
func cdTarget(command, cwd string) (string, bool) {
	trimmed := strings.TrimSpace(command)
	if trimmed != "cd" && !strings.HasPrefix(trimmed, "cd ") {
		return "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "cd"))
	if strings.ContainsAny(rest, ";|&<>$`") {
		return "", false
	}
	rest = strings.Trim(rest, `"'`)
	if rest == "" || rest == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		rest = home
	} else if strings.HasPrefix(rest, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		rest = filepath.Join(home, rest[2:])
	} else if !filepath.IsAbs(rest) {
		rest = filepath.Join(cwd, rest)
	}
	info, err := os.Stat(rest)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return filepath.Clean(rest), true
}
