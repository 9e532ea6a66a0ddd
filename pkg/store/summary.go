package store

import (
	"sort"

	"nau-assistant/pkg/utils"
)

// PreviewLength is the number of characters of the first user message shown
// in a session summary.
const PreviewLength = 50

// Summarize builds the list view of a session. Sessions without a user
// message have no summary.
func Summarize(sessionID string, messages []Message) (Summary, bool) {
	if len(messages) == 0 {
		return Summary{}, false
	}
	for _, m := range messages {
		if m.Role == RoleUser {
			return Summary{
				ID:        sessionID,
				Preview:   utils.Truncate(m.Content, PreviewLength),
				Timestamp: messages[len(messages)-1].Timestamp,
			}, true
		}
	}
	return Summary{}, false
}

// SortSummaries orders summaries newest first, then by id.
func SortSummaries(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		if !summaries[i].Timestamp.Equal(summaries[j].Timestamp) {
			return summaries[i].Timestamp.After(summaries[j].Timestamp)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
