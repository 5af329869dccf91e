// ABOUTME: Types and interfaces for backend request telemetry
// ABOUTME: One record per inference round trip, for diagnostics and stats

package store

import (
	"context"
	"time"
)

// RequestKind identifies which gateway operation produced a record.
type RequestKind string

const (
	RequestKindChat   RequestKind = "chat"
	RequestKindVision RequestKind = "vision"
	RequestKindSearch RequestKind = "search"
)

// RequestRecord captures one backend round trip. Records hold timing and
// outcome only; message content is never persisted.
type RequestRecord struct {
	ID         string
	Kind       RequestKind
	Backend    string // backend model identifier
	DurationMs int64
	Failed     bool
	CreatedAt  time.Time
}

// StatsFilter narrows a stats query. Nil fields match everything.
type StatsFilter struct {
	Kind  *RequestKind
	Since *time.Time
	Until *time.Time
}

// Stats is an aggregate over request records.
type Stats struct {
	RequestCount    int64
	FailureCount    int64
	TotalDurationMs int64
}

// Store persists request telemetry.
type Store interface {
	RecordRequest(ctx context.Context, rec *RequestRecord) error
	GetStats(ctx context.Context, filter StatsFilter) (*Stats, error)
	Close() error
}
