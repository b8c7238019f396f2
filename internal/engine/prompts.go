package engine

import (
	"fmt"
	"strings"

	"concierge/internal/capability"
)

const analyzeSystemPrompt = `You are the orchestration core of an assistant that can invoke capabilities on the user's behalf.

On each turn, decide the single next action and express it with exactly one marker on its own line:

CLASSIFY <intent>
  Label the request (informational only, may precede another marker).

EXECUTE <name> PARAMETERS <json-object>
  Invoke one capability. Parameters must be a valid JSON object matching the capability's schema. Invoke at most one capability per turn.

STOP <reason>
  You have everything needed; end the invocation phase.

If the request needs no capability at all, reply with the final answer as plain prose and no marker.

Never claim an action was performed unless its invocation is recorded in the context below. Base every statement on recorded results.`

const synthesizeSystemPrompt = `You write the final answer to the user based strictly on the recorded capability invocations in the context.

Rules:
- Use only facts present in recorded results. Do not invent data.
- Never state that an action (create, update, delete, send) was completed unless a successful invocation for it is recorded.
- If a requested action has no corresponding successful invocation, say plainly that it was not performed and why, in user-friendly terms.
- Answer directly and concisely. No markers, no meta commentary.`

const nudgeNoSignal = `Your previous reply contained no usable marker. Reply with exactly one of: EXECUTE <name> PARAMETERS <json>, STOP <reason>, or a plain final answer.`

// catalogPrompt renders the capability listing shown to the model on
// every analysis pass: one line per capability, name first.
func catalogPrompt(descs []capability.Descriptor) string {
	if len(descs) == 0 {
		return "AVAILABLE CAPABILITIES: none\n"
	}
	var sb strings.Builder
	sb.WriteString("AVAILABLE CAPABILITIES:\n")
	for _, d := range descs {
		sb.WriteString(fmt.Sprintf("  %s [%s]: %s\n", d.Name, d.Category, d.Description))
		if len(d.Schema.Required) > 0 {
			sb.WriteString(fmt.Sprintf("    required parameters: %s\n", strings.Join(d.Schema.Required, ", ")))
		}
	}
	return sb.String()
}

// forcedCapabilityNudge is injected when budgets near exhaustion and a
// strongly implied capability category has not been invoked yet.
func forcedCapabilityNudge(cat capability.Category) string {
	return fmt.Sprintf("The request requires a %s capability that you have not invoked yet. "+
		"You are nearly out of turns: invoke the matching capability now with an EXECUTE marker, "+
		"or reply STOP with the reason you cannot.", cat)
}
