package agent

import (
	"fmt"
	"strings"
	"time"

	"ollaterm/internal/shellexec"
)

const baseSystemPrompt = `You are an autonomous shell agent. Complete tasks by running shell commands.

REPLY FORMAT - always output exactly one JSON object, nothing else:
  Run a command : {"action": "run",  "command": "...", "reason": "..."}
  Task is done  : {"action": "done", "summary": "..."}
  Ask the user  : {"action": "ask",  "question": "..."}

RULES:
- Output ONLY the JSON object. Zero prose, zero markdown, zero backticks.
- One command per reply. Keep commands simple.
- Move files with shell for-loops:
    for f in /path/*.ext; do mv "$f" /dest/; done
- Write files with: printf 'text' > file.txt
- Use full absolute paths always.
- Before acting on a directory, run ls to see what's there.
- Each command runs in a fresh shell; only plain "cd <dir>" replies change
  the working directory for later commands.

ON FAILURE (exit code != 0):
- Never repeat the failed command.
- Try a simpler alternative. Break complex steps into smaller ones.

ASKING QUESTIONS:
- Only use {"action":"ask"} when you genuinely cannot proceed without more info.
- Do NOT ask for confirmation. Just do the task.

FINISHING:
- Verify success before marking done (ls, cat, etc.).
- Use {"action":"done"} only when fully confirmed complete.`

// retryPrompt is the correction message for the bounded repair loop. It
// states the expected shape instead of resending the task context.
const retryPrompt = `BAD JSON. Reply with ONLY a raw JSON object. No text before or after. ` +
	`Example: {"action":"run","command":"ls /tmp","reason":"explore"}`

const (
	maxStdoutFeedback = 2000
	maxStderrFeedback = 800
)

// BuildSystemPrompt assembles the fixed instruction template, the injected
// environment block, and optional persistent custom instructions.
func BuildSystemPrompt(envBlock, customInstructions string) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	if strings.TrimSpace(envBlock) != "" {
		b.WriteString("\n\n")
		b.WriteString(envBlock)
	}
	if ci := strings.TrimSpace(customInstructions); ci != "" {
		b.WriteString("\n\nCUSTOM INSTRUCTIONS:\n")
		b.WriteString(ci)
	}
	return b.String()
}

func initialUserPrompt(task string) string {
	return fmt.Sprintf("Task: %s\n\n"+
		"First run ls on any target directory to see what's there. "+
		"Do NOT ask for confirmation - just do the task. JSON only.", task)
}

// resumePrompt re-anchors the conversation after a hard reset.
func resumePrompt(task string) string {
	return fmt.Sprintf("Task (resume): %s\nRun ls on the target path first. JSON only.", task)
}

func answerPrompt(answer string) string {
	return answer + "\n\nContinue task now. Do NOT ask more questions. JSON only."
}

// observationPrompt folds one execution result back into the conversation
// as the next user turn. Output tails are clipped so a chatty command never
// floods the context window.
func observationPrompt(command string, res shellexec.Result, cwd string, repeated bool) string {
	stdout := tailClip(res.Stdout, maxStdoutFeedback)
	stderr := tailClip(res.Stderr, maxStderrFeedback)

	var b strings.Builder
	if res.ExitCode == 0 && !res.TimedOut {
		b.WriteString("RESULT: SUCCESS\n")
	} else if res.TimedOut {
		fmt.Fprintf(&b, "RESULT: TIMED OUT after %s (the command may still be running in background)\n", res.Duration.Round(time.Second))
	} else {
		fmt.Fprintf(&b, "RESULT: FAILED (exit %d)\n", res.ExitCode)
	}
	fmt.Fprintf(&b, "Command: %s\n", command)
	fmt.Fprintf(&b, "cwd: %s\n", cwd)
	fmt.Fprintf(&b, "stdout:\n%s\n", stdout)
	fmt.Fprintf(&b, "stderr:\n%s\n", stderr)
	if repeated {
		b.WriteString("\nNOTE: this exact command was already tried and failed. Do not issue it again.\n")
	}
	b.WriteString("\n")
	if res.ExitCode == 0 && !res.TimedOut {
		b.WriteString("Is the full task now complete?\n" +
			`- Yes: {"action":"done","summary":"..."}` + "\n" +
			"- No:  next command as JSON. Do NOT ask questions.")
	} else {
		b.WriteString("Do NOT repeat this command.\n" +
			"Try something simpler. Break the step into smaller ones.\n" +
			"JSON only.")
	}
	return b.String()
}

// tailClip keeps the last limit bytes; the end of command output is where
// errors and summaries live.
func tailClip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
