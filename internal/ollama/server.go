package ollama

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Installed reports whether the ollama binary is on PATH.
func Installed() bool {
	_, err := exec.LookPath("ollama")
	return err == nil
}

// EnsureRunning makes the local server reachable, spawning `ollama serve`
// detached and polling until it answers or the wait budget runs out.
func (c *Client) EnsureRunning(ctx context.Context) error {
	if c.Running(ctx) {
		return nil
	}
	if !Installed() {
		return fmt.Errorf("ollama binary not found on PATH")
	}
	cmd := exec.Command("ollama", "serve")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ollama serve: %w", err)
	}
	// let the process outlive us; it is the operator's server, not ours
	go func() { _ = cmd.Wait() }()

	deadline := time.Now().Add(12 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
		if c.Running(ctx) {
			if c.logger != nil {
				c.logger.Info("ollama server started")
			}
			return nil
		}
	}
	return fmt.Errorf("ollama server did not become ready at %s", c.baseURL)
}
