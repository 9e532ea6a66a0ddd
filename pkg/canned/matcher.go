package canned

import (
	"strings"

	"nau-assistant/pkg/followup"
	"nau-assistant/pkg/utils"
)

// Entry is a scripted answer keyed by normalized query patterns.
type Entry struct {
	Key      string
	Patterns []string
	Answer   string
	Sources  []string
	FollowUp followup.Spec
}

func (e *Entry) HasFollowUp() bool {
	return e.FollowUp != nil
}

// Matcher tests queries against an ordered registry of entries. The first
// entry with a matching pattern wins, so more specific entries must come first.
type Matcher struct {
	entries []Entry
}

// NewMatcher normalizes the patterns of entries and keeps their order. Empty
// patterns are dropped because they would match every query.
func NewMatcher(entries []Entry) *Matcher {
	normalized := make([]Entry, 0, len(entries))
	for _, e := range entries {
		patterns := make([]string, 0, len(e.Patterns))
		for _, p := range e.Patterns {
			if np := utils.NormalizeText(p); np != "" {
				patterns = append(patterns, np)
			}
		}
		e.Patterns = patterns
		normalized = append(normalized, e)
	}
	return &Matcher{entries: normalized}
}

// Match returns the first entry whose pattern equals or is contained in the
// normalized query.
func (m *Matcher) Match(query string) (*Entry, bool) {
	q := utils.NormalizeText(query)
	if q == "" {
		return nil, false
	}
	for i := range m.entries {
		for _, p := range m.entries[i].Patterns {
			if q == p || strings.Contains(q, p) {
				return &m.entries[i], true
			}
		}
	}
	return nil, false
}

// Lookup finds an entry by key.
func (m *Matcher) Lookup(key string) (*Entry, bool) {
	for i := range m.entries {
		if m.entries[i].Key == key {
			return &m.entries[i], true
		}
	}
	return nil, false
}

func (m *Matcher) Entries() []Entry {
	return m.entries
}
