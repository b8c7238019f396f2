package parser

// findJSONCandidates scans the input for top-level JSON object
// candidates, handling nested braces and string escaping to identify
// boundaries. A byte-level state machine is used so fenced blocks and
// surrounding prose are skipped without regex cost.
//
// Iterating bytes is safe for the ASCII delimiters ({, }, ", \) because
// UTF-8 never encodes them inside a multi-byte sequence.
func findJSONCandidates(s string) []string {
	var candidates []string
	var depth int
	var start int = -1
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		if b == '"' {
			if depth > 0 {
				inString = true
			}
			continue
		}

		if b == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if b == '}' {
			if depth > 0 {
				depth--
				if depth == 0 && start != -1 {
					candidates = append(candidates, s[start:i+1])
					start = -1
				}
			}
		}
	}

	return candidates
}
