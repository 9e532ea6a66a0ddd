package canned

import (
	"strings"
	"testing"

	"nau-assistant/pkg/followup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatcher(t *testing.T) {
	m := NewDefaultMatcher()

	tests := []struct {
		name    string
		query   string
		wantKey string
		wantHit bool
	}{
		{"exact pattern", "what are the tuition fees", KeyTuition, true},
		{"case and punctuation", "What are the Tuition Fees?", KeyTuition, true},
		{"contained pattern", "hey, how much is tuition for me", KeyTuition, true},
		{"extra whitespace", "  how   do I   apply ", KeyAdmission, true},
		{"programs", "Which majors do you have", KeyPrograms, true},
		{"password", "I forgot password", KeyPassword, true},
		{"courses", "course registration help", KeyCourses, true},
		{"portal", "student portal login", KeyPortal, true},
		{"no match", "where is the library", "", false},
		{"empty", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := m.Match(tt.query)
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				require.NotNil(t, entry)
				assert.Equal(t, tt.wantKey, entry.Key)
			}
		})
	}
}

func TestMatcherPrecedence(t *testing.T) {
	t.Run("Should return first registered entry when several match", func(t *testing.T) {
		m := NewMatcher([]Entry{
			{Key: "first", Patterns: []string{"tuition"}},
			{Key: "second", Patterns: []string{"tuition fees"}},
		})

		for i := 0; i < 5; i++ {
			entry, ok := m.Match("tuition fees please")
			require.True(t, ok)
			assert.Equal(t, "first", entry.Key)
		}
	})

	t.Run("Should resolve tuition before programs for mixed query", func(t *testing.T) {
		entry, ok := NewDefaultMatcher().Match("tuition fees for majors")
		require.True(t, ok)
		assert.Equal(t, KeyTuition, entry.Key)
	})

	t.Run("Should normalize registered patterns", func(t *testing.T) {
		m := NewMatcher([]Entry{{Key: "k", Patterns: []string{"How To Apply?", "", "!!"}}})

		entry, ok := m.Match("how to apply")
		require.True(t, ok)
		assert.Equal(t, []string{"how to apply"}, entry.Patterns)

		_, ok = m.Match("anything else")
		assert.False(t, ok)
	})
}

func TestDefaultEntries(t *testing.T) {
	m := NewDefaultMatcher()

	t.Run("Should cite the tuition page and ask about housing", func(t *testing.T) {
		entry, ok := m.Lookup(KeyTuition)
		require.True(t, ok)

		assert.Equal(t, []string{"https://www.na.edu/admissions/tuition-and-fees/"}, entry.Sources)
		spec, ok := entry.FollowUp.(followup.Binary)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(spec.YesResponse, "Great! Here's the housing and meal plan information:"))
		assert.Contains(t, spec.YesResponse, "Housing On Campus 2 Bed-Room only for men: $2,500.00 per semester")
	})

	t.Run("Should leave password entry without follow up", func(t *testing.T) {
		entry, ok := m.Lookup(KeyPassword)
		require.True(t, ok)
		assert.False(t, entry.HasFollowUp())
	})

	t.Run("Should resolve admission choice to graduate branch", func(t *testing.T) {
		entry, ok := m.Lookup(KeyAdmission)
		require.True(t, ok)

		got := followup.Resolve(entry.FollowUp, "graduate")
		assert.True(t, strings.HasPrefix(got, "Excellent! For graduate admission"))
	})

	t.Run("Should resolve program topic", func(t *testing.T) {
		entry, ok := m.Lookup(KeyPrograms)
		require.True(t, ok)

		assert.Contains(t, followup.Resolve(entry.FollowUp, "criminal justice"), "The Criminal Justice program at NAU")
		assert.Contains(t, followup.Resolve(entry.FollowUp, "art"), "Each program at NAU")
	})

	t.Run("Should give every entry a key answer and source", func(t *testing.T) {
		seen := map[string]bool{}
		for _, e := range m.Entries() {
			assert.False(t, seen[e.Key], "duplicate key %s", e.Key)
			seen[e.Key] = true
			assert.NotEmpty(t, e.Answer)
			assert.NotEmpty(t, e.Sources)
			assert.NotEmpty(t, e.Patterns)
		}
		assert.Len(t, seen, 6)
	})
}
