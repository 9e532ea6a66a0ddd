package events

import "time"

const (
	TypeIndexRefreshRequested = "index.refresh_requested"
	TypeIndexRefreshed        = "index.refreshed"
)

// IndexRefreshRequested asks the assistant to reload its chunk store, usually
// sent by the crawler after it writes a new snapshot.
type IndexRefreshRequested struct {
	Reason      string
	RequestedAt time.Time
}

func (e IndexRefreshRequested) EventType() string { return TypeIndexRefreshRequested }

func (e IndexRefreshRequested) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reason":       e.Reason,
		"requested_at": e.RequestedAt.Format(time.RFC3339),
	}
}

func (e IndexRefreshRequested) Timestamp() time.Time { return e.RequestedAt }

// IndexRefreshed announces that a new chunk store went live.
type IndexRefreshed struct {
	Generation uint64
	Chunks     int
	Origin     string
	Fallback   bool
	LoadedAt   time.Time
}

func (e IndexRefreshed) EventType() string { return TypeIndexRefreshed }

func (e IndexRefreshed) Payload() map[string]interface{} {
	return map[string]interface{}{
		"generation": e.Generation,
		"chunks":     e.Chunks,
		"origin":     e.Origin,
		"fallback":   e.Fallback,
		"loaded_at":  e.LoadedAt.Format(time.RFC3339),
	}
}

func (e IndexRefreshed) Timestamp() time.Time { return e.LoadedAt }

// ReasonFrom reads the "reason" payload field, falling back to def.
func ReasonFrom(e Event, def string) string {
	if r, ok := e.Payload()["reason"].(string); ok && r != "" {
		return r
	}
	return def
}
