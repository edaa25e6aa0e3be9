package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"ollaterm/internal/shellexec"
)

type styleSet struct {
	banner  lipgloss.Style
	step    lipgloss.Style
	dim     lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	command lipgloss.Style
	prompt  lipgloss.Style
}

func newStyleSet(color bool) styleSet {
	if !color {
		plain := lipgloss.NewStyle()
		return styleSet{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return styleSet{
		banner:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		step:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
		dim:     lipgloss.NewStyle().Faint(true),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		command: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Renderer writes the agent transcript to the terminal and reads operator
// input. It satisfies agent.UI.
type Renderer struct {
	mu     sync.Mutex
	out    io.Writer
	in     *bufio.Reader
	styles styleSet
	// interactive gates the spinner and ANSI styling; piped output stays
	// clean.
	interactive bool
}

func NewRenderer(out io.Writer, in io.Reader, noColor bool) *Renderer {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	if noColor {
		interactive = false
	}
	return &Renderer{
		out:         out,
		in:          bufio.NewReader(in),
		styles:      newStyleSet(interactive),
		interactive: interactive,
	}
}

func (r *Renderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) Banner(version string) {
	r.printf("\n%s\n", r.styles.banner.Render("  ollaterm - autonomous shell agent "+version))
	r.Rule()
}

func (r *Renderer) Rule() {
	r.printf("%s\n", r.styles.dim.Render(strings.Repeat("-", 62)))
}

func (r *Renderer) TaskHeader(model, task string) {
	r.printf("  %s %s\n", r.styles.dim.Render("model:"), r.styles.banner.Render(model))
	r.printf("  %s %s\n", r.styles.dim.Render("task: "), task)
	r.Rule()
}

func (r *Renderer) Info(msg string) {
	r.printf("  %s\n", msg)
}

func (r *Renderer) Warnf(format string, args ...any) {
	r.printf("  %s\n", r.styles.warn.Render(fmt.Sprintf(format, args...)))
}

func (r *Renderer) Errorf(format string, args ...any) {
	r.printf("  %s\n", r.styles.failure.Render(fmt.Sprintf(format, args...)))
}

// StepHeader renders the per-iteration banner before a command runs.
func (r *Renderer) StepHeader(step int, reason string) {
	r.printf("\n  %s  %s\n", r.styles.step.Render(fmt.Sprintf("Step %d", step)), r.styles.dim.Render(reason))
}

func (r *Renderer) CommandStart(command string) {
	r.printf("  %s\n", r.styles.command.Render("+- $ "+command))
}

func (r *Renderer) StdoutLine(line string) {
	r.printf("  %s %s\n", r.styles.success.Render("|"), line)
}

func (r *Renderer) StderrLine(line string) {
	r.printf("  %s %s\n", r.styles.failure.Render("|"), line)
}

func (r *Renderer) CommandEnd(res shellexec.Result) {
	switch {
	case res.TimedOut:
		r.printf("  %s\n", r.styles.failure.Render(fmt.Sprintf("+- x timed out after %s", res.Duration.Round(time.Second))))
	case res.ExitCode == 0:
		r.printf("  %s\n", r.styles.success.Render("+- ok"))
	default:
		r.printf("  %s\n", r.styles.failure.Render(fmt.Sprintf("+- x exit %d", res.ExitCode)))
	}
}

func (r *Renderer) RetryNotice(attempt, max int) {
	r.Warnf("malformed reply, asking for valid JSON (attempt %d/%d)", attempt, max)
}

func (r *Renderer) HardResetNotice() {
	r.Warnf("no valid action after retries - resetting the conversation")
}

// Ask is the human-in-the-loop suspension point: it renders the model's
// question and blocks for one line of operator input.
func (r *Renderer) Ask(question string) (string, error) {
	r.printf("\n  %s %s\n", r.styles.prompt.Render("? agent asks:"), question)
	return r.ReadLine("    your answer: ")
}

// ReadLine prompts and reads one trimmed line.
func (r *Renderer) ReadLine(prompt string) (string, error) {
	r.printf("%s", r.styles.prompt.Render(prompt))
	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (r *Renderer) Confirm(prompt string) bool {
	answer, err := r.ReadLine(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

func (r *Renderer) Summary(summary string) {
	r.printf("\n")
	r.Rule()
	r.printf("  %s\n", r.styles.success.Render("task complete"))
	if strings.TrimSpace(summary) != "" {
		r.printf("\n  %s\n", summary)
	}
	r.Rule()
}

func (r *Renderer) FailReport(reason string) {
	r.printf("\n")
	r.Rule()
	r.printf("  %s\n", r.styles.failure.Render("task failed: "+reason))
	r.Rule()
}
