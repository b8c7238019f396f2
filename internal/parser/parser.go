// Package parser interprets raw model completions into typed signals.
// The model is prompted to emit structured markers inside its prose
// (CLASSIFY, EXECUTE, STOP) rather than a native call payload, so every
// completion must be read defensively. This is the only package that
// touches raw model text; everything downstream consumes Signals.
package parser

import (
	"encoding/json"
	"strings"

	"concierge/internal/logging"
)

// Kind identifies what a completion is asking the loop to do.
type Kind int

const (
	// KindNone means a marker was present but unusable (malformed
	// parameters). The loop should retry with a corrective nudge.
	KindNone Kind = iota
	// KindClassify carries an intent label with no action.
	KindClassify
	// KindExecute requests one capability invocation.
	KindExecute
	// KindStop ends the invocation phase.
	KindStop
	// KindAnswer is the fallback: no marker recognized, the whole
	// completion is an implicit final answer.
	KindAnswer
)

func (k Kind) String() string {
	switch k {
	case KindClassify:
		return "classify"
	case KindExecute:
		return "execute"
	case KindStop:
		return "stop"
	case KindAnswer:
		return "answer"
	default:
		return "none"
	}
}

// Signal is the typed reading of one completion.
type Signal struct {
	Kind   Kind
	Intent string         // CLASSIFY label, may accompany any kind
	Name   string         // EXECUTE capability name
	Params map[string]any // EXECUTE parameters
	Reason string         // STOP reason
	Answer string         // implicit answer text
	Raw    string         // the original completion, untouched
}

const (
	markerClassify = "CLASSIFY"
	markerExecute  = "EXECUTE"
	markerStop     = "STOP"
)

// Parse reads a completion and returns the signal it carries. The first
// action marker (EXECUTE or STOP) in text order wins; a CLASSIFY seen
// anywhere is attached as Intent. Parse never fails: malformed input
// degrades to KindNone or KindAnswer.
func Parse(completion string) Signal {
	log := logging.Get(logging.CategoryParser)
	sig := Signal{Raw: completion}

	lines := strings.Split(completion, "\n")
	offset := 0
	for _, line := range lines {
		lineOffset := offset
		offset += len(line) + 1

		trimmed := trimMarkerLine(line)
		switch {
		case strings.HasPrefix(trimmed, markerClassify+" "):
			if sig.Intent == "" {
				sig.Intent = strings.TrimSpace(strings.TrimPrefix(trimmed, markerClassify))
			}

		case strings.HasPrefix(trimmed, markerExecute+" "), trimmed == markerExecute:
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, markerExecute))
			name, params, ok := parseExecute(rest, completion[lineOffset:])
			if !ok {
				log.Warnw("execute marker with unusable parameters, no actionable signal",
					"line", strings.TrimSpace(line))
				sig.Kind = KindNone
				return sig
			}
			sig.Kind = KindExecute
			sig.Name = name
			sig.Params = params
			return sig

		case strings.HasPrefix(trimmed, markerStop+" "), trimmed == markerStop:
			sig.Kind = KindStop
			sig.Reason = strings.TrimSpace(strings.TrimPrefix(trimmed, markerStop))
			return sig
		}
	}

	if sig.Intent != "" {
		sig.Kind = KindClassify
		return sig
	}

	sig.Kind = KindAnswer
	sig.Answer = strings.TrimSpace(completion)
	return sig
}

// parseExecute extracts the capability name and parameters from an
// EXECUTE marker. rest is the marker line after the keyword; tail is
// the completion from the marker line onward, so parameter objects may
// span multiple lines. Parameters are optional: a bare name is a call
// with no arguments.
func parseExecute(rest, tail string) (string, map[string]any, bool) {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	name := fields[0]

	idx := strings.Index(tail, "PARAMETERS")
	if idx < 0 {
		return name, map[string]any{}, true
	}

	candidates := findJSONCandidates(tail[idx:])
	if len(candidates) == 0 {
		return "", nil, false
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(candidates[0]), &params); err != nil {
		return "", nil, false
	}
	return name, params, true
}

// trimMarkerLine strips list bullets, blockquote and emphasis
// decoration that models habitually wrap markers in.
func trimMarkerLine(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, ">-* \t")
	s = strings.TrimPrefix(s, "`")
	return strings.TrimSpace(s)
}
