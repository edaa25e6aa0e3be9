package ui

import (
	"bytes"
	"strings"
	"testing"

	"ollaterm/internal/shellexec"
)

func newTestRenderer(input string) (*Renderer, *bytes.Buffer) {
	var out bytes.Buffer
	r := NewRenderer(&out, strings.NewReader(input), true)
	return r, &out
}

func TestStepHeaderAndCommandMarkers(t *testing.T) {
	r, out := newTestRenderer("")
	r.StepHeader(3, "list files")
	r.CommandStart("ls /tmp")
	r.CommandEnd(shellexec.Result{ExitCode: 0})

	text := out.String()
	if !strings.Contains(text, "Step 3") {
		t.Fatalf("missing step header: %q", text)
	}
	if !strings.Contains(text, "$ ls /tmp") {
		t.Fatalf("missing command echo: %q", text)
	}
	if !strings.Contains(text, "ok") {
		t.Fatalf("missing success marker: %q", text)
	}
}

func TestCommandEnd_FailureAndTimeout(t *testing.T) {
	r, out := newTestRenderer("")
	r.CommandEnd(shellexec.Result{ExitCode: 2})
	if !strings.Contains(out.String(), "exit 2") {
		t.Fatalf("missing failure marker: %q", out.String())
	}
	out.Reset()
	r.CommandEnd(shellexec.Result{TimedOut: true, ExitCode: shellexec.ExitTimedOut})
	if !strings.Contains(out.String(), "timed out") {
		t.Fatalf("missing timeout marker: %q", out.String())
	}
}

func TestAsk_ReadsAnswer(t *testing.T) {
	r, out := newTestRenderer("under /var/log\n")
	answer, err := r.Ask("which directory?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "under /var/log" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if !strings.Contains(out.String(), "which directory?") {
		t.Fatalf("question not rendered: %q", out.String())
	}
}

func TestConfirm(t *testing.T) {
	r, _ := newTestRenderer("y\n")
	if !r.Confirm("save?") {
		t.Fatalf("expected yes")
	}
	r, _ = newTestRenderer("\n")
	if r.Confirm("save?") {
		t.Fatalf("expected default no")
	}
}

func TestNoColorOutputHasNoEscapes(t *testing.T) {
	r, out := newTestRenderer("")
	r.Banner("v1")
	r.StepHeader(1, "reason")
	r.Summary("all good")
	r.FailReport("iteration limit exceeded (60)")
	if strings.Contains(out.String(), "\x1b[") {
		t.Fatalf("expected plain output without ANSI escapes: %q", out.String())
	}
	if !strings.Contains(out.String(), "task failed: iteration limit exceeded (60)") {
		t.Fatalf("fail report must name the tripped guard: %q", out.String())
	}
}

func TestThinking_NonInteractiveIsNoop(t *testing.T) {
	r, out := newTestRenderer("")
	stop := r.Thinking(1)
	stop()
	if out.Len() != 0 {
		t.Fatalf("spinner must not write on non-interactive output: %q", out.String())
	}
}
