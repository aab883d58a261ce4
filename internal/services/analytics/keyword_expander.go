package analytics

import (
	"strings"

	domsvc "nichescope/internal/domain/service"
)

const (
	maxPhraseLength = 100
	maxPhraseWords  = 6
	pairCategories  = 5
	pairModifiers   = 3
)

// ModifierGroup is a named vocabulary combined with seed keywords.
type ModifierGroup struct {
	Name      string
	Modifiers []string
}

// DefaultModifiers is the publishing-niche vocabulary, in combination order.
func DefaultModifiers() []ModifierGroup {
	return []ModifierGroup{
		{"journal", []string{"journal", "notebook", "diary", "planner", "log", "tracker", "organizer"}},
		{"audience", []string{"kids", "children", "teens", "adults", "seniors", "women", "men", "professionals"}},
		{"purpose", []string{"daily", "weekly", "monthly", "travel", "work", "personal", "business", "creative"}},
		{"style", []string{"lined", "dotted", "blank", "guided", "prompted", "illustrated", "minimalist"}},
		{"theme", []string{"gratitude", "mindfulness", "fitness", "productivity", "self-care", "goals"}},
	}
}

// KeywordExpander combines seeds with modifier vocabularies. Output order is deterministic.
type KeywordExpander struct {
	groups []ModifierGroup
}

func NewKeywordExpander(groups ...ModifierGroup) *KeywordExpander {
	if len(groups) == 0 {
		groups = DefaultModifiers()
	}
	return &KeywordExpander{groups: groups}
}

// Expand returns seeds first, then single-modifier prefix/suffix phrases, then a limited
// set of two-modifier phrases, deduplicated and truncated to maxCombinations. Single-modifier
// phrases take one modifier from each group in turn, so every vocabulary is represented
// near the head of the list.
func (e *KeywordExpander) Expand(seeds []string, maxCombinations int) []string {
	if len(seeds) == 0 || maxCombinations <= 0 {
		return nil
	}
	set := newOrderedSet()
	var norm []string
	for _, s := range seeds {
		set.add(s)
		if s = normalizePhrase(s); s != "" {
			norm = append(norm, s)
		}
	}

	rounds := 0
	for _, g := range e.groups {
		if len(g.Modifiers) > rounds {
			rounds = len(g.Modifiers)
		}
	}
	for i := 0; i < rounds; i++ {
		for _, g := range e.groups {
			if i >= len(g.Modifiers) {
				continue
			}
			m := g.Modifiers[i]
			for _, seed := range norm {
				set.add(m + " " + seed)
				set.add(seed + " " + m)
			}
		}
	}

	pairs := e.categoryPairs()
pairLoop:
	for _, seed := range norm {
		for _, p := range pairs {
			for _, m1 := range top(p[0].Modifiers, pairModifiers) {
				for _, m2 := range top(p[1].Modifiers, pairModifiers) {
					if set.len() >= maxCombinations {
						break pairLoop
					}
					set.add(m1 + " " + seed + " " + m2)
				}
			}
		}
	}

	if set.len() > maxCombinations {
		return set.items[:maxCombinations]
	}
	return set.items
}

func (e *KeywordExpander) categoryPairs() [][2]ModifierGroup {
	var pairs [][2]ModifierGroup
	for i := 0; i < len(e.groups); i++ {
		for j := i + 1; j < len(e.groups); j++ {
			pairs = append(pairs, [2]ModifierGroup{e.groups[i], e.groups[j]})
		}
	}
	if len(pairs) > pairCategories {
		pairs = pairs[:pairCategories]
	}
	return pairs
}

func top(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet { return &orderedSet{seen: map[string]struct{}{}} }

// add keeps v if it is new and within the phrase limits.
func (s *orderedSet) add(v string) {
	v = normalizePhrase(v)
	if v == "" || len(v) > maxPhraseLength || len(strings.Fields(v)) > maxPhraseWords {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int { return len(s.items) }

var _ domsvc.KeywordExpander = (*KeywordExpander)(nil)
