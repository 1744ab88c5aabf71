// Package activity records the feed of what happened to each hypothesis.
//
// Mutations collect Events while they run and hand them to a Recorder once
// their transaction has committed. Recording is best effort: a failure is
// logged and dropped, never surfaced to the caller whose mutation already
// succeeded.
package activity

import (
	"context"
	"log/slog"
)

// Type names one kind of feed entry.
type Type string

const (
	HypothesisCreated      Type = "HYPOTHESIS_CREATED"
	HypothesisUpdated      Type = "HYPOTHESIS_UPDATED"
	ConfidenceChanged      Type = "CONFIDENCE_CHANGED"
	TagsChanged            Type = "TAGS_CHANGED"
	ChildAdded             Type = "CHILD_ADDED"
	HypothesisMoved        Type = "HYPOTHESIS_MOVED"
	HypothesisArchived     Type = "HYPOTHESIS_ARCHIVED"
	HypothesisDeleted      Type = "HYPOTHESIS_DELETED"
	EvidenceAdded          Type = "EVIDENCE_ADDED"
	EvidenceUpdated        Type = "EVIDENCE_UPDATED"
	EvidenceDeleted        Type = "EVIDENCE_DELETED"
	RefutationAdded        Type = "REFUTATION_ADDED"
	ConfidenceRecalculated Type = "CONFIDENCE_RECALCULATED"
)

// Actor identifies who caused an event. Both fields may be empty.
type Actor struct {
	ID   string
	Name string
}

// Event is one feed entry waiting to be persisted.
type Event struct {
	HypothesisID string
	Type         Type
	Summary      string
	Actor        Actor
	Metadata     map[string]any
}

// Sink persists events and content timestamps.
type Sink interface {
	InsertActivity(ctx context.Context, e Event) error
	// MarkContentUpdated bumps the content timestamp of id and of every
	// hypothesis above it.
	MarkContentUpdated(ctx context.Context, id string) error
}

// Recorder writes events to a Sink and swallows failures.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A nil logger uses slog.Default().
func NewRecorder(sink Sink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{sink: sink, logger: logger}
}

// Record persists events in order. It never fails.
func (r *Recorder) Record(ctx context.Context, events ...Event) {
	if r == nil || r.sink == nil {
		return
	}
	for _, e := range events {
		if err := r.sink.InsertActivity(ctx, e); err != nil {
			r.logger.Warn("activity: record failed",
				"type", string(e.Type),
				"hypothesis_id", e.HypothesisID,
				"error", err,
			)
		}
	}
}

// MarkContentUpdated bumps content timestamps for each id and its ancestors.
// It never fails.
func (r *Recorder) MarkContentUpdated(ctx context.Context, ids ...string) {
	if r == nil || r.sink == nil {
		return
	}
	for _, id := range ids {
		if err := r.sink.MarkContentUpdated(ctx, id); err != nil {
			r.logger.Warn("activity: mark content updated failed",
				"hypothesis_id", id,
				"error", err,
			)
		}
	}
}
