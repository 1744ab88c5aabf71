package mutation

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/cascade"
	"github.com/hypograph/hypograph/internal/hypothesis"
)

// ─── Recalculation ───────────────────────────────────────────────────────────

// RecalculateConfidence recomputes id and cascades to its ancestors.
func (s *Service) RecalculateConfidence(ctx context.Context, id string, actor activity.Actor) Result[*cascade.Result] {
	res, err := s.engine.RecalculateWithCascade(ctx, id)
	if err == nil {
		for _, c := range res.Changes {
			if c.ID != id {
				continue
			}
			s.recorder.Record(ctx, activity.Event{
				HypothesisID: id,
				Type:         activity.ConfidenceRecalculated,
				Summary:      fmt.Sprintf("Confidence recalculated: %d -> %d", c.Old, c.New),
				Actor:        actor,
				Metadata:     map[string]any{"old": c.Old, "new": c.New},
			})
		}
	}
	return finish(s, "recalculate confidence", res, err)
}

// RecalculateAllConfidences recomputes the whole graph, leaves first.
func (s *Service) RecalculateAllConfidences(ctx context.Context) Result[*cascade.BatchResult] {
	res, err := s.engine.RecalculateAll(ctx)
	return finish(s, "recalculate all confidences", res, err)
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// GetHypothesesWithRelations returns every non-archived hypothesis with its
// relations attached, ordered by (order, created_at).
func (s *Service) GetHypothesesWithRelations(ctx context.Context) Result[[]hypothesis.WithRelations] {
	list, err := s.store.Read().ListWithRelations(ctx)
	return finish(s, "load hypotheses", list, err)
}

// ListActivity returns the newest feed entries of a hypothesis.
func (s *Service) ListActivity(ctx context.Context, id string, limit int) Result[[]hypothesis.ActivityLog] {
	logs, err := s.store.Read().ListActivity(ctx, id, limit)
	if err == nil && logs == nil {
		logs = []hypothesis.ActivityLog{}
	}
	return finish(s, "load activity", logs, err)
}

// ─── Layout, caches & settings ───────────────────────────────────────────────

// SetLayout stores the canvas position of a hypothesis.
func (s *Service) SetLayout(ctx context.Context, id string, x, y float64) Result[struct{}] {
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.SetLayout(ctx, id, x, y)
	})
	return finish(s, "save layout", struct{}{}, err)
}

// SetExecSummary caches a generated executive summary.
func (s *Service) SetExecSummary(ctx context.Context, id, text string) Result[struct{}] {
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.SetExecSummary(ctx, id, text)
	})
	return finish(s, "save executive summary", struct{}{}, err)
}

// SetValidationSuggestions caches generated validation suggestions.
func (s *Service) SetValidationSuggestions(ctx context.Context, id, text string) Result[struct{}] {
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.SetValidationSuggestions(ctx, id, text)
	})
	return finish(s, "save validation suggestions", struct{}{}, err)
}

// IsExecSummaryStale reports whether the cached summary predates the last
// content change on the hypothesis or anything below it.
func (s *Service) IsExecSummaryStale(ctx context.Context, id string) Result[bool] {
	stale, err := s.store.Read().ExecSummaryStale(ctx, id)
	return finish(s, "check executive summary", stale, err)
}

// CompanyContext returns the organization description fed to the
// classifier.
func (s *Service) CompanyContext(ctx context.Context) Result[string] {
	v, err := s.store.Read().GetSetting(ctx, hypothesis.SettingCompanyContext)
	return finish(s, "load company context", v, err)
}

// SetCompanyContext replaces the organization description.
func (s *Service) SetCompanyContext(ctx context.Context, text string) Result[string] {
	text = strings.TrimSpace(text)
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.SetSetting(ctx, hypothesis.SettingCompanyContext, text)
	})
	return finish(s, "save company context", text, err)
}

// ─── Watchers ────────────────────────────────────────────────────────────────

// WatchHypothesis subscribes user to a hypothesis. A non-empty user name is
// stored so watcher lists can show it.
func (s *Service) WatchHypothesis(ctx context.Context, id string, user hypothesis.User) Result[struct{}] {
	if strings.TrimSpace(user.ID) == "" {
		return finish(s, "watch hypothesis", struct{}{}, reject("User id is required"))
	}
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if _, err := requireHypothesis(ctx, q, id, "Hypothesis"); err != nil {
			return err
		}
		if user.Name != "" {
			if err := q.UpsertUser(ctx, user); err != nil {
				return err
			}
		}
		return q.AddWatcher(ctx, id, user.ID)
	})
	return finish(s, "watch hypothesis", struct{}{}, err)
}

// UnwatchHypothesis removes a subscription. Removing a missing one is fine.
func (s *Service) UnwatchHypothesis(ctx context.Context, id, userID string) Result[struct{}] {
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.RemoveWatcher(ctx, id, userID)
	})
	return finish(s, "unwatch hypothesis", struct{}{}, err)
}
