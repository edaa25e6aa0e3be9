package ui

import (
	"fmt"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerInterval = 80 * time.Millisecond

// Thinking shows a spinner while the model is generating. The returned stop
// function clears the line and must be called before any other output or
// input. On non-interactive output it is a no-op.
func (r *Renderer) Thinking(step int) func() {
	if !r.interactive {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		i := 0
		for {
			select {
			case <-done:
				r.printf("\r%s\r", fmt.Sprintf("%60s", ""))
				return
			case <-time.After(spinnerInterval):
				frame := spinnerFrames[i%len(spinnerFrames)]
				r.printf("\r  %s %s", r.styles.banner.Render(frame), r.styles.dim.Render(fmt.Sprintf("thinking [step %d]...", step)))
				i++
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
