package protect

import "strings"

// matchGlobPattern matches a slash-separated path against a glob
// pattern. ** spans any number of segments, * matches within one.
func matchGlobPattern(path, pattern string) bool {
	return matchParts(strings.Split(path, "/"), strings.Split(pattern, "/"))
}

func matchParts(path, pattern []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	head, rest := pattern[0], pattern[1:]

	if head == "**" {
		if len(rest) == 0 {
			return true
		}
		for i := 0; i <= len(path); i++ {
			if matchParts(path[i:], rest) {
				return true
			}
		}
		return false
	}

	if len(path) == 0 || !matchSegment(path[0], head) {
		return false
	}
	return matchParts(path[1:], rest)
}

// matchSegment matches one path segment against one pattern segment.
func matchSegment(segment, pattern string) bool {
	switch {
	case pattern == "*" || pattern == segment:
		return true
	case strings.Contains(pattern, "*"):
		return matchWildcard(segment, pattern)
	default:
		return false
	}
}

// matchWildcard matches a segment against a pattern with * wildcards.
func matchWildcard(s, pattern string) bool {
	parts := strings.Split(pattern, "*")
	pos := 0

	for i, part := range parts {
		if part == "" {
			continue
		}

		if i == 0 {
			if !strings.HasPrefix(s, part) {
				return false
			}
			pos = len(part)
			continue
		}

		if i == len(parts)-1 && !strings.HasSuffix(pattern, "*") {
			if !strings.HasSuffix(s, part) {
				return false
			}
			continue
		}

		idx := strings.Index(s[pos:], part)
		if idx == -1 {
			return false
		}
		pos += idx + len(part)
	}

	return true
}
