package shellexec

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ExitTimedOut is the exit code sentinel when the process group was killed
// before the command could report its own status.
const ExitTimedOut = -1

const lineQueueSize = 4096

// Result is the outcome of one command. Non-zero exit and timeout are data,
// not errors; only failing to spawn a shell at all is an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

type streamName int

const (
	streamStdout streamName = iota
	streamStderr
)

type lineEvent struct {
	stream streamName
	text   string
}

type Runner struct {
	// Shell is the interpreter handed the command line. Empty means the
	// platform default (sh -c / cmd /C).
	Shell   string
	Timeout time.Duration
	Logger  *slog.Logger

	// Line callbacks render live output. They run on a single consumer
	// goroutine, decoupled from the pipe readers by a buffered queue so a
	// slow terminal never backpressures the child.
	OnStdoutLine func(string)
	OnStderrLine func(string)
}

// Execute runs one opaque shell command line in dir. The command is passed
// to the shell verbatim; no escaping or filtering happens here.
func (r *Runner) Execute(ctx context.Context, command string, dir string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	cmd := buildShellCommand(r.Shell, command)
	cmd.Dir = dir
	setProcessGroup(cmd)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("open stderr pipe: %w", err)
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("spawn shell: %w", err)
	}

	var stdout, stderr strings.Builder
	lines := make(chan lineEvent, lineQueueSize)

	var readers sync.WaitGroup
	readers.Add(2)
	go r.drain(stdoutPipe, streamStdout, &stdout, lines, &readers)
	go r.drain(stderrPipe, streamStderr, &stderr, lines, &readers)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		for ev := range lines {
			switch ev.stream {
			case streamStdout:
				if r.OnStdoutLine != nil {
					r.OnStdoutLine(ev.text)
				}
			case streamStderr:
				if r.OnStderrLine != nil {
					r.OnStderrLine(ev.text)
				}
			}
		}
	}()

	waitErr := make(chan error, 1)
	go func() {
		readers.Wait()
		close(lines)
		waitErr <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	res := Result{}
	var execErr error
	select {
	case err := <-waitErr:
		res.ExitCode = exitCodeOf(cmd, err)
	case <-timer.C:
		res.TimedOut = true
		res.ExitCode = ExitTimedOut
		killProcessGroup(cmd)
		<-waitErr
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-waitErr
		execErr = ctx.Err()
		res.ExitCode = ExitTimedOut
	}
	<-consumerDone

	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	if res.TimedOut {
		if res.Stderr != "" && !strings.HasSuffix(res.Stderr, "\n") {
			res.Stderr += "\n"
		}
		res.Stderr += fmt.Sprintf("command timed out after %s", timeout)
	}
	res.Duration = time.Since(started)
	if r.Logger != nil {
		r.Logger.Debug("command finished",
			"exit_code", res.ExitCode,
			"timed_out", res.TimedOut,
			"duration", res.Duration.String(),
		)
	}
	return res, execErr
}

func (r *Runner) drain(pipe interface{ Read([]byte) (int, error) }, stream streamName, acc *strings.Builder, lines chan<- lineEvent, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if acc.Len() > 0 {
			acc.WriteByte('\n')
		}
		acc.WriteString(text)
		lines <- lineEvent{stream: stream, text: text}
	}
}

func exitCodeOf(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return ExitTimedOut
	}
	return 0
}
