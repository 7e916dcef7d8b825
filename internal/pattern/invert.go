package pattern

import "strings"

// invert attempts a mechanical inversion of a named-capture pattern source:
// every named group is replaced by its substitute value from values, and the
// literal text surrounding the groups is kept verbatim. It gives up (ok =
// false) as soon as it finds a group with no substitute, or literal text
// outside a group that still carries regex metacharacters — in either case
// the caller falls back to the documented template.
func invert(source string, values map[string]string) (rendered string, ok bool) {
	translated := translateNamedGroups(source)

	groups, ok := findGroupSpans(translated)
	if !ok || len(groups) == 0 {
		return "", false
	}

	var b strings.Builder
	last := 0
	for _, g := range groups {
		literal := translated[last:g.start]
		safe, literalOK := stripAnchorsIfSafe(literal)
		if !literalOK {
			return "", false
		}
		b.WriteString(safe)

		value, known := values[g.name]
		if !known {
			return "", false
		}
		b.WriteString(value)

		last = g.end
	}

	tail, tailOK := stripAnchorsIfSafe(translated[last:])
	if !tailOK {
		return "", false
	}
	b.WriteString(tail)

	return b.String(), true
}

type groupSpan struct {
	name  string
	start int // index of '(' starting "(?P<name>"
	end   int // index just past the matching ')'
}

// findGroupSpans scans a Go-syntax pattern for top-level named groups,
// tracking paren depth so nested groups (e.g. the literal parens inside
// "\(.*\)") don't confuse the scan.
func findGroupSpans(src string) ([]groupSpan, bool) {
	var spans []groupSpan

	i := 0
	for i < len(src) {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if strings.HasPrefix(src[i:], "(?P<") {
			closeAngle := strings.IndexByte(src[i:], '>')
			if closeAngle < 0 {
				return nil, false
			}
			name := src[i+len("(?P<") : i+closeAngle]

			depth := 1
			j := i + closeAngle + 1
			for depth > 0 {
				if j >= len(src) {
					return nil, false
				}
				switch src[j] {
				case '\\':
					j++ // skip escaped char
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}

			spans = append(spans, groupSpan{name: name, start: i, end: j})
			i = j
			continue
		}
		i++
	}

	return spans, true
}

// stripAnchorsIfSafe strips leading "^"/trailing "$" anchors and reports
// whether what remains is free of regex metacharacters, i.e. safe to emit
// verbatim in a rendered tag/commit name.
func stripAnchorsIfSafe(literal string) (string, bool) {
	literal = strings.TrimPrefix(literal, "^")
	literal = strings.TrimSuffix(literal, "$")

	if strings.ContainsAny(literal, `.*+?[]{}|()\`) {
		return "", false
	}
	return literal, true
}
