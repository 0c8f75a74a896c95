package model

import "time"

// Topics emitted by the sync service.
const (
	TopicEventsSynced  = "evt.er.events.synced.v1"
	TopicSyncCompleted = "evt.er.sync.completed.v1"
	TopicSyncFailed    = "evt.er.sync.failed.v1"
)

// EventSynced is published once per upserted chunk.
type EventSynced struct {
	Table    string    `json:"table"`
	EventIDs []string  `json:"event_ids"`
	Count    int       `json:"count"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncRun summarises one sync cycle.
type SyncRun struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Since        time.Time     `json:"since"`
	Watermark    time.Time     `json:"watermark"`
	Fetched      int           `json:"fetched"`
	Upserted     int           `json:"upserted"`
	FailedChunks int           `json:"failed_chunks"`
	Duration     time.Duration `json:"duration_ns"`
	Error        string        `json:"error,omitempty"`
}

// OK reports whether the run advanced the watermark.
func (r SyncRun) OK() bool { return r.Error == "" }
