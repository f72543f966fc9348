package schema

import "time"

// ScanEvent is one append-only audit row written per scan.
type ScanEvent struct {
	EventID       string     `json:"event_id"`
	UserID        string     `json:"user_id"`
	Mode          ScanMode   `json:"mode"`
	Status        ScanStatus `json:"status"`
	Score         *float64   `json:"score,omitempty"`
	Grade         Grade      `json:"grade,omitempty"`
	Persisted     bool       `json:"persisted"`
	RateRemaining int        `json:"rate_remaining"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
	DurationMs    int64      `json:"duration_ms"`
	Error         string     `json:"error,omitempty"`
}

// ScoreSample is one entry of the percentile population.
type ScoreSample struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}
