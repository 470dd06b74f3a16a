package quality

import (
	ahocorasick "github.com/cloudflare/ahocorasick"
)

// groupMatcher runs one Aho-Corasick pass and reports which keyword groups were hit.
// Group order is preserved so callers can apply first-match-wins.
type groupMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	groupOf  []int
	groups   int
}

func newGroupMatcher(groups [][]string) *groupMatcher {
	m := &groupMatcher{groups: len(groups)}
	seen := make(map[string]bool)

	for gi, keywords := range groups {
		for _, kw := range keywords {
			pattern := normalizeKeyword(kw)
			if pattern == "" || seen[pattern] {
				continue
			}
			seen[pattern] = true
			m.patterns = append(m.patterns, pattern)
			m.groupOf = append(m.groupOf, gi)
		}
	}

	if len(m.patterns) > 0 {
		m.matcher = ahocorasick.NewStringMatcher(m.patterns)
	}

	return m
}

// firstGroup returns the lowest group index with any keyword present in normalized text.
func (m *groupMatcher) firstGroup(normalized string) (int, bool) {
	if m.matcher == nil {
		return 0, false
	}

	best := -1
	for _, hit := range m.matcher.Match([]byte(normalized)) {
		if hit < 0 || hit >= len(m.groupOf) {
			continue
		}
		if g := m.groupOf[hit]; best == -1 || g < best {
			best = g
		}
	}

	return best, best >= 0
}

// contains reports whether any keyword of any group is present.
func (m *groupMatcher) contains(normalized string) bool {
	_, ok := m.firstGroup(normalized)
	return ok
}
