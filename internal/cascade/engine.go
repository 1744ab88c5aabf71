// Package cascade recomputes derived confidence values.
//
// A node in auto mode scores Cascade(own, children) where own comes from its
// evidence and children are the current values of its direct children. Manual
// nodes are inputs only: their stored value feeds their parents and is never
// written here.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/graph"
	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/metrics"
)

// Change is one persisted confidence update.
type Change struct {
	ID  string `json:"id"`
	Old int    `json:"old"`
	New int    `json:"new"`
}

// Result is the outcome of a cascade-up run.
type Result struct {
	Changes []Change `json:"changes"`
	Visited int      `json:"visited"`
	Cycle   bool     `json:"cycle,omitempty"`
}

// BatchResult is the outcome of a full-graph run.
type BatchResult struct {
	Changes []Change `json:"changes"`
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Cycle   bool     `json:"cycle,omitempty"`
}

// Engine runs recalculations against a store.
type Engine struct {
	store   *hypothesis.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an Engine. m may be nil; a nil logger uses slog.Default().
func New(store *hypothesis.Store, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, metrics: m, logger: logger}
}

// RecalculateWithCascade recomputes startID and then every ancestor of it.
//
// The affected set is startID plus its ancestors. It is processed in
// child-first waves, so a parent reached through several paths (a diamond)
// is computed once, after all of its affected children. This holds when the
// paths differ in length too: with R->A->B->D and R->D, R is computed after A
// has taken D's change into account. Nodes outside the set contribute their
// stored value.
func (e *Engine) RecalculateWithCascade(ctx context.Context, startID string) (*Result, error) {
	res := &Result{Changes: []Change{}}
	err := e.store.Update(ctx, func(q *hypothesis.Queries) error {
		if _, err := q.GetHypothesis(ctx, startID); err != nil {
			return err
		}
		idx, err := q.GraphIndex(ctx)
		if err != nil {
			return err
		}
		stored, err := q.Confidences(ctx)
		if err != nil {
			return err
		}

		affected := idx.Ancestry(startID)
		waves, werr := idx.Waves(affected)
		if errors.Is(werr, graph.ErrCycle) {
			res.Cycle = true
			e.logger.Warn("cascade: cycle above hypothesis, stopping early",
				"start_id", startID, "processed_waves", len(waves))
		}

		current := currentValues(stored)
		for _, wave := range waves {
			for _, id := range wave {
				res.Visited++
				h, ok := stored[id]
				if !ok || h.ConfidenceMode.IsManual() {
					continue
				}
				evidence, err := q.ListEvidence(ctx, id)
				if err != nil {
					return err
				}
				change, err := e.apply(ctx, q, idx, current, id, ownScore(evidence))
				if err != nil {
					return err
				}
				if change != nil {
					res.Changes = append(res.Changes, *change)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cascade from %s: %w", startID, err)
	}

	e.metrics.AddCascadeUpdates(len(res.Changes))
	if res.Cycle {
		e.metrics.IncCascadeCycle()
	}
	return res, nil
}

// RecalculateAll recomputes every hypothesis, leaves first.
//
// A cycle is a soft failure: the waves computed before it are persisted, the
// cycle is logged and flagged on the result, and no error is returned.
func (e *Engine) RecalculateAll(ctx context.Context) (*BatchResult, error) {
	res := &BatchResult{Changes: []Change{}}
	err := e.store.Update(ctx, func(q *hypothesis.Queries) error {
		idx, err := q.GraphIndex(ctx)
		if err != nil {
			return err
		}
		stored, err := q.Confidences(ctx)
		if err != nil {
			return err
		}
		evidence, err := q.AllEvidence(ctx)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(stored))
		own := make(map[string]int, len(stored))
		for id := range stored {
			ids = append(ids, id)
			own[id] = ownScore(evidence[id])
		}
		res.Total = len(ids)

		waves, werr := idx.Waves(ids)
		if errors.Is(werr, graph.ErrCycle) {
			res.Cycle = true
			done := 0
			for _, w := range waves {
				done += len(w)
			}
			e.logger.Warn("cascade: cycle detected during batch recalculation",
				"processed", done, "total", res.Total)
		}

		current := currentValues(stored)
		for _, wave := range waves {
			for _, id := range wave {
				if stored[id].ConfidenceMode.IsManual() {
					continue
				}
				change, err := e.apply(ctx, q, idx, current, id, own[id])
				if err != nil {
					return err
				}
				if change != nil {
					res.Changes = append(res.Changes, *change)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recalculate all: %w", err)
	}

	res.Updated = len(res.Changes)
	e.metrics.AddCascadeUpdates(res.Updated)
	if res.Cycle {
		e.metrics.IncCascadeCycle()
	}
	e.logger.Info("cascade: batch recalculation finished",
		"total", res.Total, "updated", res.Updated, "cycle", res.Cycle)
	return res, nil
}

// apply combines own with the current values of id's children and persists
// the result when it differs. current is updated in place.
func (e *Engine) apply(ctx context.Context, q *hypothesis.Queries, idx *graph.Index,
	current map[string]int, id string, own int) (*Change, error) {

	var children []int
	for _, c := range idx.Children(id) {
		if v, ok := current[c]; ok {
			children = append(children, v)
		}
	}
	next := confidence.Cascade(own, children)
	prev := current[id]
	if next == prev {
		return nil, nil
	}

	wrote, err := q.SetAutoConfidence(ctx, id, next)
	if err != nil {
		return nil, err
	}
	if !wrote {
		return nil, nil
	}
	current[id] = next
	e.logger.Debug("cascade: confidence updated", "id", id, "old", prev, "new", next)
	return &Change{ID: id, Old: prev, New: next}, nil
}

func ownScore(evidence []hypothesis.Evidence) int {
	items := make([]confidence.Item, len(evidence))
	for i, ev := range evidence {
		items[i] = ev.Item()
	}
	return confidence.Calculate(items)
}

func currentValues(stored map[string]hypothesis.Hypothesis) map[string]int {
	out := make(map[string]int, len(stored))
	for id, h := range stored {
		out[id] = h.Confidence
	}
	return out
}
