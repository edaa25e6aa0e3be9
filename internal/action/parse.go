package action

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

type wireAction struct {
	Action   string `json:"action"`
	Command  string `json:"command"`
	Reason   string `json:"reason"`
	Question string `json:"question"`
	Summary  string `json:"summary"`
}

// Parse extracts and validates the single action object in a raw model
// reply. The model may wrap the object in prose or code fences; both are
// stripped. More than one candidate object carrying an "action" field is a
// validation failure, not a pick-one.
func Parse(raw string) (Action, error) {
	text := stripFences(raw)
	if text == "" {
		return Action{}, invalidf("empty reply")
	}

	candidates := scanActionObjects(text)
	if len(candidates) == 0 {
		return Action{}, invalidf("no action object found in reply")
	}
	if len(candidates) > 1 {
		return Action{}, invalidf("reply contains %d action objects, expected exactly one", len(candidates))
	}

	var w wireAction
	if err := json.Unmarshal([]byte(candidates[0]), &w); err != nil {
		return Action{}, invalidf("decode action object: %v", err)
	}
	a := Action{
		Kind:     Kind(strings.TrimSpace(w.Action)),
		Command:  strings.TrimSpace(w.Command),
		Reason:   strings.TrimSpace(w.Reason),
		Question: strings.TrimSpace(w.Question),
		Summary:  strings.TrimSpace(w.Summary),
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// drop the language tag on the opening fence, e.g. ```json
		if idx := strings.IndexByte(text, '\n'); idx >= 0 && !strings.ContainsAny(text[:idx], "{}") {
			text = text[idx+1:]
		}
		text = strings.TrimSpace(text)
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSuffix(text, "```")
		text = strings.TrimSpace(text)
	}
	return text
}

// scanActionObjects walks the text for balanced top-level JSON objects and
// keeps those that decode and carry an "action" field. Scanning resumes
// after each matched object so an action's own nested objects are never
// counted as separate candidates.
func scanActionObjects(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := matchObject(text, i)
		if !ok {
			continue
		}
		obj := text[i : end+1]
		if gjson.Valid(obj) && gjson.Get(obj, "action").Exists() {
			out = append(out, obj)
		}
		i = end
	}
	return out
}

// matchObject returns the index of the brace closing the object opened at
// start, skipping braces inside JSON strings.
func matchObject(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
