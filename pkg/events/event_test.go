package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "events.index.refreshed", Subject(TypeIndexRefreshed))
	assert.Equal(t, TypeIndexRefreshRequested, TypeFromSubject("events.index.refresh_requested"))
}

func TestIndexEvents(t *testing.T) {
	at := time.Date(2024, 1, 8, 3, 0, 0, 0, time.UTC)

	refreshed := IndexRefreshed{Generation: 3, Chunks: 120, Origin: "file:data", LoadedAt: at}
	assert.Equal(t, uint64(3), refreshed.Payload()["generation"])
	assert.Equal(t, "2024-01-08T03:00:00Z", refreshed.Payload()["loaded_at"])

	req := IndexRefreshRequested{Reason: "crawl finished", RequestedAt: at}
	assert.Equal(t, "crawl finished", ReasonFrom(req, "bus"))
	assert.Equal(t, "bus", ReasonFrom(BaseEvent{Data: map[string]interface{}{}}, "bus"))
}
