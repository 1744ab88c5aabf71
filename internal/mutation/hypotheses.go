package mutation

import (
	"context"
	"slices"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/hypothesis"
)

// CreateInput is the form data for a new hypothesis.
type CreateInput struct {
	Statement   string
	Description string
	Confidence  *int   // nil means the default of 50
	Tags        string // comma separated
	OwnerID     string
	Actor       activity.Actor
}

// UpdateInput is the form data for an edit. Nil pointers keep the stored
// value.
type UpdateInput struct {
	Statement   string
	Description *string
	Confidence  *int
	Tags        *string
	Actor       activity.Actor
}

// ChildCreated is the result of CreateChildHypothesisAndEdge.
type ChildCreated struct {
	Hypothesis *hypothesis.Hypothesis `json:"hypothesis"`
	Edge       *hypothesis.Edge       `json:"edge"`
}

// Deleted is the result of DeleteHypothesis.
type Deleted struct {
	ID            string   `json:"id"`
	Statement     string   `json:"statement"`
	FormerParents []string `json:"former_parents"`
}

// insertHypothesis creates a root-ordered hypothesis inside q.
func insertHypothesis(ctx context.Context, q *hypothesis.Queries, statement string, in CreateInput) (*hypothesis.Hypothesis, error) {
	maxOrder, err := q.MaxRootOrder(ctx)
	if err != nil {
		return nil, err
	}

	ownerName := ""
	if in.OwnerID != "" {
		if u, err := q.GetUser(ctx, in.OwnerID); err == nil {
			ownerName = u.Name
		}
	}

	return q.InsertHypothesis(ctx, hypothesis.CreateParams{
		Statement:   statement,
		Description: in.Description,
		Confidence:  clampConfidence(in.Confidence),
		Tags:        hypothesis.ParseTags(in.Tags),
		Order:       maxOrder + 1,
		OwnerID:     in.OwnerID,
		OwnerName:   ownerName,
	})
}

func createdEvent(h *hypothesis.Hypothesis, actor activity.Actor) activity.Event {
	return activity.Event{
		HypothesisID: h.ID,
		Type:         activity.HypothesisCreated,
		Summary:      "Created hypothesis: " + h.Statement,
		Actor:        actor,
	}
}

// CreateHypothesis adds a new root hypothesis after the existing roots.
func (s *Service) CreateHypothesis(ctx context.Context, in CreateInput) Result[*hypothesis.Hypothesis] {
	const op = "create hypothesis"
	statement, err := validateStatement(in.Statement)
	if err != nil {
		return finish[*hypothesis.Hypothesis](s, op, nil, err)
	}

	var h *hypothesis.Hypothesis
	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		var err error
		h, err = insertHypothesis(ctx, q, statement, in)
		return err
	})
	if err == nil {
		s.afterCommit(ctx, []activity.Event{createdEvent(h, in.Actor)})
	}
	return finish(s, op, h, err)
}

// UpdateHypothesis edits content fields. One event is emitted per changed
// category. A confidence different from the stored one pins the hypothesis
// to manual mode for good.
func (s *Service) UpdateHypothesis(ctx context.Context, id string, in UpdateInput) Result[*hypothesis.Hypothesis] {
	const op = "update hypothesis"
	statement, err := validateStatement(in.Statement)
	if err != nil {
		return finish[*hypothesis.Hypothesis](s, op, nil, err)
	}

	var (
		updated *hypothesis.Hypothesis
		events  []activity.Event
	)
	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		cur, err := requireHypothesis(ctx, q, id, "Hypothesis")
		if err != nil {
			return err
		}

		p := hypothesis.UpdateParams{
			Statement:      statement,
			Description:    cur.Description,
			Confidence:     cur.Confidence,
			ConfidenceMode: cur.ConfidenceMode,
			Tags:           cur.Tags,
		}
		if in.Description != nil {
			p.Description = *in.Description
		}

		var changedFields []string
		if p.Statement != cur.Statement {
			changedFields = append(changedFields, "statement")
		}
		if p.Description != cur.Description {
			changedFields = append(changedFields, "description")
		}
		if len(changedFields) > 0 {
			p.ClearValidationCache = true
			events = append(events, activity.Event{
				HypothesisID: id,
				Type:         activity.HypothesisUpdated,
				Summary:      "Updated hypothesis",
				Actor:        in.Actor,
				Metadata:     map[string]any{"fields": changedFields},
			})
		}

		if in.Confidence != nil {
			next := clampConfidence(in.Confidence)
			if next != cur.Confidence {
				p.Confidence = next
				p.ConfidenceMode = cur.ConfidenceMode.Pin()
				events = append(events, activity.Event{
					HypothesisID: id,
					Type:         activity.ConfidenceChanged,
					Summary:      "Set confidence manually",
					Actor:        in.Actor,
					Metadata:     map[string]any{"old": cur.Confidence, "new": next},
				})
			}
		}

		if in.Tags != nil {
			next := hypothesis.ParseTags(*in.Tags)
			if !slices.Equal(next, cur.Tags) {
				p.Tags = next
				events = append(events, activity.Event{
					HypothesisID: id,
					Type:         activity.TagsChanged,
					Summary:      "Changed tags",
					Actor:        in.Actor,
					Metadata:     map[string]any{"old": cur.Tags, "new": next},
				})
			}
		}

		if err := q.UpdateContent(ctx, id, p); err != nil {
			return err
		}
		updated, err = q.GetHypothesis(ctx, id)
		return err
	})
	if err == nil {
		s.afterCommit(ctx, events, id)
	}
	return finish(s, op, updated, err)
}

// CreateChildHypothesisAndEdge creates a hypothesis and links it as the last
// child of parentID in the same transaction.
func (s *Service) CreateChildHypothesisAndEdge(ctx context.Context, parentID string, in CreateInput) Result[*ChildCreated] {
	const op = "create child hypothesis"
	statement, err := validateStatement(in.Statement)
	if err != nil {
		return finish[*ChildCreated](s, op, nil, err)
	}

	var out *ChildCreated
	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if _, err := requireHypothesis(ctx, q, parentID, "Parent hypothesis"); err != nil {
			return err
		}
		child, err := insertHypothesis(ctx, q, statement, in)
		if err != nil {
			return err
		}
		maxOrder, err := q.MaxChildOrder(ctx, parentID)
		if err != nil {
			return err
		}
		edge, err := q.InsertEdge(ctx, parentID, child.ID, maxOrder+1, hypothesis.DefaultEdgeLabel)
		if err != nil {
			return err
		}
		out = &ChildCreated{Hypothesis: child, Edge: edge}
		return nil
	})
	if err == nil {
		s.afterCommit(ctx, []activity.Event{
			createdEvent(out.Hypothesis, in.Actor),
			childAddedEvent(parentID, out.Hypothesis, in.Actor),
		}, parentID)
	}
	return finish(s, op, out, err)
}

func childAddedEvent(parentID string, child *hypothesis.Hypothesis, actor activity.Actor) activity.Event {
	return activity.Event{
		HypothesisID: parentID,
		Type:         activity.ChildAdded,
		Summary:      "Added child hypothesis: " + child.Statement,
		Actor:        actor,
		Metadata:     map[string]any{"childId": child.ID, "childStatement": child.Statement},
	}
}

// ArchiveHypothesis sets or clears the archive flag. Children are not
// affected. Only archiving is logged.
func (s *Service) ArchiveHypothesis(ctx context.Context, id string, archived bool, actor activity.Actor) Result[*hypothesis.Hypothesis] {
	const op = "archive hypothesis"
	var h *hypothesis.Hypothesis
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if _, err := requireHypothesis(ctx, q, id, "Hypothesis"); err != nil {
			return err
		}
		if err := q.SetArchived(ctx, id, archived); err != nil {
			return err
		}
		var err error
		h, err = q.GetHypothesis(ctx, id)
		return err
	})
	if err == nil && archived {
		s.afterCommit(ctx, []activity.Event{{
			HypothesisID: id,
			Type:         activity.HypothesisArchived,
			Summary:      "Archived hypothesis",
			Actor:        actor,
		}})
	}
	return finish(s, op, h, err)
}

// DeleteHypothesis removes a hypothesis with its edges, evidence,
// refutations, watchers and feed. Each former parent gets a
// HYPOTHESIS_DELETED entry carrying the deleted statement.
func (s *Service) DeleteHypothesis(ctx context.Context, id string, actor activity.Actor) Result[*Deleted] {
	const op = "delete hypothesis"
	var out *Deleted
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		h, err := requireHypothesis(ctx, q, id, "Hypothesis")
		if err != nil {
			return err
		}
		parentEdges, err := q.ParentEdges(ctx, id)
		if err != nil {
			return err
		}

		if err := q.DeleteActivityFor(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteEdgesTouching(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteEvidenceFor(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteRefutationsFor(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteWatchersFor(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteHypothesisRow(ctx, id); err != nil {
			return err
		}

		out = &Deleted{ID: id, Statement: h.Statement, FormerParents: make([]string, 0, len(parentEdges))}
		for _, e := range parentEdges {
			out.FormerParents = append(out.FormerParents, e.ParentID)
		}
		return nil
	})
	if err == nil {
		events := make([]activity.Event, 0, len(out.FormerParents))
		for _, pid := range out.FormerParents {
			events = append(events, activity.Event{
				HypothesisID: pid,
				Type:         activity.HypothesisDeleted,
				Summary:      "Deleted child hypothesis: " + out.Statement,
				Actor:        actor,
				Metadata:     map[string]any{"deletedId": id, "statement": out.Statement},
			})
		}
		s.afterCommit(ctx, events, out.FormerParents...)
	}
	return finish(s, op, out, err)
}

// GetHypothesis loads one hypothesis.
func (s *Service) GetHypothesis(ctx context.Context, id string) Result[*hypothesis.Hypothesis] {
	h, err := s.store.Read().GetHypothesis(ctx, id)
	return finish(s, "load hypothesis", h, err)
}
