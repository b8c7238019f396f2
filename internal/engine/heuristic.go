package engine

import (
	"strings"

	"concierge/internal/capability"
)

// categoryCorpus maps request phrasing to the capability category it
// strongly implies. Matching is deliberately coarse: the heuristic only
// fires as a last-resort nudge when budgets near exhaustion, so a false
// negative costs nothing and a false positive costs one corrective
// prompt. The slice order is the tie-break: earlier entries win equal
// hit counts, so the result is stable for a given message.
var categoryCorpus = []struct {
	cat   capability.Category
	terms []string
}{
	{capability.CategoryRecords, []string{
		"meeting", "appointment", "event", "calendar", "schedule",
		"record", "contact", "note", "reminder", "task",
	}},
	{capability.CategoryCommunication, []string{
		"email", "mail", "send a message", "reply to", "notify",
	}},
	{capability.CategorySearch, []string{
		"find", "look up", "lookup", "search for", "where is",
	}},
	{capability.CategoryWeb, []string{
		"website", "web page", "url", "browse", "online",
	}},
}

// impliedCategory returns the capability category a request most
// strongly implies, or "" when nothing matches.
func impliedCategory(userMessage string) capability.Category {
	lower := strings.ToLower(userMessage)

	best := capability.Category("")
	bestHits := 0
	for _, entry := range categoryCorpus {
		hits := 0
		for _, term := range entry.terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = entry.cat, hits
		}
	}
	return best
}

var actionVerbs = []string{
	"create", "add", "schedule", "book", "set up",
	"update", "change", "modify", "rename", "move",
	"delete", "remove", "cancel",
	"send", "email", "notify", "reply",
}

// actionImplied reports whether the request asks for a state-changing
// action rather than a question. Used to force an explicit "no action
// was performed" statement when nothing was actually invoked.
func actionImplied(userMessage string) bool {
	lower := strings.ToLower(userMessage)
	for _, verb := range actionVerbs {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}
