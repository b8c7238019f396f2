// Package promptctx assembles the rolling prompt context fed back to
// the model on each analysis pass: the user request, recent chat
// history, and the record of capability invocations so far.
package promptctx

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"concierge/internal/capability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SynthesisEntry is the pseudo-capability name used for the synthesis
// draft. Entries under this name bypass the dedup window so the draft
// is always visible to validation.
const SynthesisEntry = "synthesis"

// RoleUser and RoleAssistant are the two turn roles in chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one chat history entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Builder renders invocation records and history into prompt sections.
// The dedup window keeps repeated reads of the same capability result
// from inflating the prompt: once a capability name has appeared in
// assistant text within the last K turns, only the one-line summary is
// injected for it, not the full block.
type Builder struct {
	dedupWindow int
}

// NewBuilder creates a Builder with the given dedup window. A window of
// zero disables dedup (every block is injected).
func NewBuilder(dedupWindow int) *Builder {
	return &Builder{dedupWindow: dedupWindow}
}

// Build renders the full context prompt. Section order is fixed so the
// model sees a stable layout across iterations.
func (b *Builder) Build(userMessage string, history []Turn, invocations []capability.Invocation) string {
	var sb strings.Builder

	sb.WriteString("USER REQUEST:\n")
	sb.WriteString(userMessage)
	sb.WriteString("\n")

	if len(history) > 0 {
		sb.WriteString("\nCHAT HISTORY:\n")
		for _, turn := range history {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", turn.Role, turn.Content))
		}
	}

	if len(invocations) > 0 {
		sb.WriteString("\nINVOCATIONS:\n")
		for _, inv := range invocations {
			if b.shouldInject(inv.Name, history) {
				sb.WriteString(formatInvocation(inv))
			}
		}

		sb.WriteString("\nINVOCATION SUMMARY:\n")
		for _, inv := range invocations {
			sb.WriteString("  ")
			sb.WriteString(SummaryLine(inv))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// shouldInject reports whether the full block for name belongs in the
// prompt. The synthesis pseudo-entry is always injected; any other name
// is suppressed if it already appeared in assistant text within the
// last dedupWindow turns.
func (b *Builder) shouldInject(name string, history []Turn) bool {
	if name == SynthesisEntry {
		return true
	}
	if b.dedupWindow <= 0 {
		return true
	}

	seen := 0
	for i := len(history) - 1; i >= 0 && seen < b.dedupWindow; i-- {
		seen++
		if history[i].Role != RoleAssistant {
			continue
		}
		if strings.Contains(history[i].Content, name) {
			return false
		}
	}
	return true
}

// formatInvocation renders the full detail block for one invocation.
func formatInvocation(inv capability.Invocation) string {
	var sb strings.Builder

	glyph := "✗"
	if inv.Result != nil && inv.Result.Success {
		glyph = "✓"
	}
	sb.WriteString(fmt.Sprintf("  %s %s (%dms)\n", glyph, inv.Name, inv.Duration.Milliseconds()))

	if len(inv.Params) > 0 {
		sb.WriteString("    parameters: ")
		sb.WriteString(prettyJSON(inv.Params))
		sb.WriteString("\n")
	}

	if inv.Result == nil {
		return sb.String()
	}
	if inv.Result.Data != nil {
		sb.WriteString("    result: ")
		sb.WriteString(prettyJSON(inv.Result.Data))
		sb.WriteString("\n")
	}
	if inv.Result.Message != "" {
		sb.WriteString(fmt.Sprintf("    message: %s\n", inv.Result.Message))
	}
	if inv.Result.Error != "" {
		sb.WriteString(fmt.Sprintf("    error: %s\n", inv.Result.Error))
	}
	return sb.String()
}

// SummaryLine renders the compact one-line audit entry for an
// invocation. It is appended regardless of the dedup decision.
func SummaryLine(inv capability.Invocation) string {
	ms := inv.Duration.Milliseconds()
	if inv.Result != nil && inv.Result.Success {
		msg := inv.Result.Message
		if msg == "" {
			msg = "ok"
		}
		return fmt.Sprintf("%s succeeded (%dms): %s", inv.Name, ms, msg)
	}

	errMsg := "no result"
	if inv.Result != nil && inv.Result.Error != "" {
		errMsg = inv.Result.Error
	}
	return fmt.Sprintf("%s failed (%dms): %s", inv.Name, ms, errMsg)
}

// prettyJSON renders v as indented JSON. Values that cannot marshal
// fall back to their Go representation so the prompt never loses data.
func prettyJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
