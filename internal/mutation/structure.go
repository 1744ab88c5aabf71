package mutation

import (
	"context"
	"fmt"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/hypothesis"
)

// checkAttach verifies that childID may be placed under parentID: both
// exist, they differ, parentID is not already below childID and the edge is
// not there yet.
func checkAttach(ctx context.Context, q *hypothesis.Queries, parentID, childID string) (*hypothesis.Hypothesis, error) {
	if parentID == childID {
		return nil, hypothesis.ErrSelfParent
	}
	child, err := requireHypothesis(ctx, q, childID, "Hypothesis")
	if err != nil {
		return nil, err
	}
	if _, err := requireHypothesis(ctx, q, parentID, "Parent hypothesis"); err != nil {
		return nil, err
	}

	idx, err := q.GraphIndex(ctx)
	if err != nil {
		return nil, err
	}
	if idx.IsDescendant(parentID, childID) {
		return nil, hypothesis.ErrCycle
	}
	if idx.HasEdge(parentID, childID) {
		return nil, hypothesis.ErrDuplicateEdge
	}
	return child, nil
}

func appendChild(ctx context.Context, q *hypothesis.Queries, parentID, childID string) (*hypothesis.Edge, error) {
	maxOrder, err := q.MaxChildOrder(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return q.InsertEdge(ctx, parentID, childID, maxOrder+1, hypothesis.DefaultEdgeLabel)
}

// MoveHypothesisToParent reparents id under newParentID. Every existing
// parent edge of id is removed first: the result has exactly one parent.
func (s *Service) MoveHypothesisToParent(ctx context.Context, id, newParentID string, actor activity.Actor) Result[*hypothesis.Edge] {
	const op = "move hypothesis"
	var (
		edge    *hypothesis.Edge
		child   *hypothesis.Hypothesis
		formers []string
	)
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		var err error
		child, err = checkAttach(ctx, q, newParentID, id)
		if err != nil {
			return err
		}
		formers, err = q.DetachFromParents(ctx, id)
		if err != nil {
			return err
		}
		edge, err = appendChild(ctx, q, newParentID, id)
		return err
	})
	if err == nil {
		s.afterCommit(ctx, []activity.Event{
			{
				HypothesisID: id,
				Type:         activity.HypothesisMoved,
				Summary:      "Moved hypothesis",
				Actor:        actor,
				Metadata:     map[string]any{"fromParentIds": formers, "toParentId": newParentID},
			},
			childAddedEvent(newParentID, child, actor),
		}, newParentID)
	}
	return finish(s, op, edge, err)
}

// LinkExistingHypothesis adds parentID -> childID without touching other
// parents of childID. An empty parentID detaches childID from every parent,
// making it a root.
func (s *Service) LinkExistingHypothesis(ctx context.Context, parentID, childID string, actor activity.Actor) Result[*hypothesis.Edge] {
	const op = "link hypothesis"
	if parentID == "" {
		err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
			_, err := q.DetachFromParents(ctx, childID)
			return err
		})
		return finish[*hypothesis.Edge](s, op, nil, err)
	}

	var (
		edge  *hypothesis.Edge
		child *hypothesis.Hypothesis
	)
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		var err error
		child, err = checkAttach(ctx, q, parentID, childID)
		if err != nil {
			return err
		}
		edge, err = appendChild(ctx, q, parentID, childID)
		return err
	})
	if err == nil {
		s.afterCommit(ctx, []activity.Event{childAddedEvent(parentID, child, actor)}, parentID)
	}
	return finish(s, op, edge, err)
}

// ReorderHypotheses assigns order = index to each id. With an empty
// parentID the ids are roots; otherwise they must all be children of
// parentID. Either every row is rewritten or none is.
func (s *Service) ReorderHypotheses(ctx context.Context, orderedIDs []string, parentID string) Result[[]string] {
	const op = "reorder hypotheses"
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return finish[[]string](s, op, nil, reject(fmt.Sprintf("Duplicate hypothesis %s in order list", id)))
		}
		seen[id] = true
	}

	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if parentID == "" {
			for i, id := range orderedIDs {
				if _, err := requireHypothesis(ctx, q, id, "Hypothesis"); err != nil {
					return err
				}
				parents, err := q.ParentEdges(ctx, id)
				if err != nil {
					return err
				}
				if len(parents) > 0 {
					return reject(fmt.Sprintf("Hypothesis %s is not a root", id))
				}
				if err := q.SetRootOrder(ctx, id, i); err != nil {
					return err
				}
			}
			return nil
		}

		if _, err := requireHypothesis(ctx, q, parentID, "Parent hypothesis"); err != nil {
			return err
		}
		for i, id := range orderedIDs {
			ok, err := q.SetEdgeOrder(ctx, parentID, id, i)
			if err != nil {
				return err
			}
			if !ok {
				return reject(fmt.Sprintf("Hypothesis %s is not a child of %s", id, parentID))
			}
		}
		return nil
	})
	return finish(s, op, orderedIDs, err)
}

// GetAncestorIDs returns every ancestor of id, nearest first.
func (s *Service) GetAncestorIDs(ctx context.Context, id string) Result[[]string] {
	idx, err := s.store.Read().GraphIndex(ctx)
	var ids []string
	if err == nil {
		ids = idx.AncestorIDs(id)
		if ids == nil {
			ids = []string{}
		}
	}
	return finish(s, "load ancestors", ids, err)
}
