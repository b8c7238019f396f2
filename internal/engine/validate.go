package engine

import (
	"context"
	"fmt"
	"strings"

	"concierge/internal/llm"
)

// ValidationPolicy judges a draft answer against the recorded
// invocation evidence. Exactly one review happens per run, and a
// failing verdict buys exactly one re-synthesis, so whatever heuristic
// a policy applies stays bounded in cost.
type ValidationPolicy interface {
	Review(ctx context.Context, client llm.Client, draft, evidence string) (pass bool, feedback string, err error)
}

// VerdictPolicy asks the model to check the draft for formatting
// correctness and for claims not backed by recorded results, and to
// answer with a VERDICT prefix marker. Anything that does not parse as
// a verdict counts as a pass: an unreadable review is not worth a
// second synthesis.
type VerdictPolicy struct{}

const validateSystemPrompt = `You review a draft answer against the recorded capability results that produced it.

Check two things only:
1. Formatting: the draft is coherent, user-facing prose with no leftover markers or raw JSON dumps.
2. Grounding: every factual claim and every claimed action is backed by a recorded result.

Reply with exactly one line:
VERDICT: PASS
or
VERDICT: FAIL <one sentence naming the problem>`

func (VerdictPolicy) Review(ctx context.Context, client llm.Client, draft, evidence string) (bool, string, error) {
	prompt := fmt.Sprintf("RECORDED RESULTS:\n%s\nDRAFT ANSWER:\n%s", evidence, draft)

	resp, err := client.CompleteWithSystem(ctx, validateSystemPrompt, prompt)
	if err != nil {
		return false, "", err
	}

	for _, line := range strings.Split(resp, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "VERDICT:"); ok {
			verdict := strings.TrimSpace(rest)
			if strings.HasPrefix(verdict, "FAIL") {
				return false, strings.TrimSpace(strings.TrimPrefix(verdict, "FAIL")), nil
			}
			return true, "", nil
		}
	}
	// No parseable verdict: treat as pass.
	return true, "", nil
}
