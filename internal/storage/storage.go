package storage

import (
	"context"
	"time"
)

// RunRecord is one execution outcome kept for a room's history. Document
// content is never persisted; only what a run produced.
type RunRecord struct {
	ID         string    `json:"id"`
	RoomToken  string    `json:"roomToken"`
	LanguageID string    `json:"languageId"`
	Succeeded  bool      `json:"succeeded"`
	Stdout     string    `json:"standardOutput"`
	Stderr     string    `json:"standardError"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RunListOptions controls filtering and pagination for ListRuns.
type RunListOptions struct {
	RoomToken string
	Limit     int
	Offset    int
}

// Store is the persistence interface for run history.
type Store interface {
	// SaveRun inserts an execution record. The ID field must be set by the caller.
	SaveRun(ctx context.Context, rec *RunRecord) error

	// ListRuns returns records ordered by created_at descending.
	ListRuns(ctx context.Context, opts RunListOptions) ([]RunRecord, error)

	// Close releases resources.
	Close() error
}
