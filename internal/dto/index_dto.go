package dto

import "time"

type RefreshIndexRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type RefreshIndexResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// PublishIndexRefreshMessage is the payload on the in-process refresh topic.
type PublishIndexRefreshMessage struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type IndexRefreshedMessage struct {
	Generation uint64    `json:"generation"`
	Chunks     int       `json:"chunks"`
	Origin     string    `json:"origin"`
	Fallback   bool      `json:"fallback"`
	LoadedAt   time.Time `json:"loaded_at"`
}

type RefreshResult struct {
	Reason     string    `json:"reason"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	Generation uint64    `json:"generation"`
	Chunks     int       `json:"chunks"`
	Fallback   bool      `json:"fallback"`
	FinishedAt time.Time `json:"finished_at"`
}

type SnapshotFileResponse struct {
	Path       string     `json:"path"`
	Exists     bool       `json:"exists"`
	Size       int64      `json:"size"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

type IndexStatusResponse struct {
	Generation  uint64                 `json:"generation"`
	Chunks      int                    `json:"chunks"`
	Dimension   int                    `json:"dimension"`
	Origin      string                 `json:"origin"`
	Fallback    bool                   `json:"fallback"`
	LoadedAt    time.Time              `json:"loaded_at"`
	Files       []SnapshotFileResponse `json:"files"`
	LastRefresh *RefreshResult         `json:"last_refresh,omitempty"`
}
