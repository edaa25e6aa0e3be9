package action

import (
	"errors"
	"testing"
)

func TestParse_ValidVariants(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want Action
	}{
		{
			name: "run",
			raw:  `{"action":"run","command":"ls /tmp","reason":"explore"}`,
			want: Action{Kind: KindRun, Command: "ls /tmp", Reason: "explore"},
		},
		{
			name: "ask",
			raw:  `{"action":"ask","question":"which directory?"}`,
			want: Action{Kind: KindAsk, Question: "which directory?"},
		},
		{
			name: "done",
			raw:  `{"action":"done","summary":"listed files"}`,
			want: Action{Kind: KindDone, Summary: "listed files"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Parse = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParse_StripsFencesAndProse(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n{\"action\":\"run\",\"command\":\"ls\",\"reason\":\"look\"}\n```"},
		{"bare fence", "```\n{\"action\":\"run\",\"command\":\"ls\",\"reason\":\"look\"}\n```"},
		{"leading prose", "Sure, here is the next step:\n{\"action\":\"run\",\"command\":\"ls\",\"reason\":\"look\"}"},
		{"trailing prose", "{\"action\":\"run\",\"command\":\"ls\",\"reason\":\"look\"}\nLet me know how it goes."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got.Kind != KindRun || got.Command != "ls" {
				t.Fatalf("unexpected action: %+v", got)
			}
		})
	}
}

func TestParse_BracesInsideStrings(t *testing.T) {
	raw := `{"action":"run","command":"printf '{\"a\":1}' > out.json","reason":"write json"}`
	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Command != `printf '{"a":1}' > out.json` {
		t.Fatalf("command mangled: %q", got.Command)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty reply", ""},
		{"whitespace reply", "   \n  "},
		{"prose only", "I think we should list the files first."},
		{"missing command", `{"action":"run","reason":"explore"}`},
		{"empty command", `{"action":"run","command":"  ","reason":"explore"}`},
		{"missing reason", `{"action":"run","command":"ls"}`},
		{"missing question", `{"action":"ask"}`},
		{"missing summary", `{"action":"done"}`},
		{"unknown tag", `{"action":"think","thought":"hmm"}`},
		{"no action field", `{"command":"ls","reason":"explore"}`},
		{"empty object", `{}`},
		{"unbalanced", `{"action":"run","command":"ls"`},
		{"two actions", `{"action":"run","command":"ls","reason":"a"} {"action":"done","summary":"b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.raw)
			if err == nil {
				t.Fatalf("expected error, got %+v", got)
			}
			if !errors.Is(err, ErrInvalidAction) {
				t.Fatalf("expected ErrInvalidAction, got %v", err)
			}
			if got != (Action{}) {
				t.Fatalf("failed parse must not return a partial action: %+v", got)
			}
		})
	}
}

func TestParse_NestedObjectNotDoubleCounted(t *testing.T) {
	// prose containing a non-action object before the real action
	raw := `context: {"cwd":"/tmp"} {"action":"done","summary":"finished"}`
	got, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.Kind != KindDone || got.Summary != "finished" {
		t.Fatalf("unexpected action: %+v", got)
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	err := Action{Kind: "pause"}.Validate()
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}
