package action

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the action tag the model must emit each turn.
type Kind string

const (
	KindRun  Kind = "run"
	KindAsk  Kind = "ask"
	KindDone Kind = "done"
)

// Action is the single structured instruction extracted from one model
// reply. Exactly one variant is populated, matching Kind.
type Action struct {
	Kind     Kind
	Command  string
	Reason   string
	Question string
	Summary  string
}

// ErrInvalidAction marks a reply that cannot be repaired into a valid
// action. Callers drive the bounded re-prompt cycle on it.
var ErrInvalidAction = errors.New("invalid action")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidAction}, args...)...)
}

// Validate checks the exactly-one-variant invariant with all required
// fields non-empty.
func (a Action) Validate() error {
	switch a.Kind {
	case KindRun:
		if strings.TrimSpace(a.Command) == "" {
			return invalidf("run action requires a non-empty command")
		}
		if strings.TrimSpace(a.Reason) == "" {
			return invalidf("run action requires a non-empty reason")
		}
	case KindAsk:
		if strings.TrimSpace(a.Question) == "" {
			return invalidf("ask action requires a non-empty question")
		}
	case KindDone:
		if strings.TrimSpace(a.Summary) == "" {
			return invalidf("done action requires a non-empty summary")
		}
	default:
		return invalidf("unknown action tag %q", string(a.Kind))
	}
	return nil
}
