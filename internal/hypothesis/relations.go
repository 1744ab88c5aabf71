package hypothesis

import (
	"context"
	"sort"
)

// ─── Read models ─────────────────────────────────────────────────────────────

// ListWithRelations returns every non-archived hypothesis with its evidence,
// refutations, child and parent edges, owner and watchers, ordered by sort
// order then creation time. Edges to archived hypotheses are still listed.
func (q *Queries) ListWithRelations(ctx context.Context) ([]WithRelations, error) {
	all, err := q.ListHypotheses(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Hypothesis, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	edges, err := q.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	evidence, err := q.AllEvidence(ctx)
	if err != nil {
		return nil, err
	}
	refutations, err := q.AllRefutations(ctx)
	if err != nil {
		return nil, err
	}
	watchers, err := q.AllWatchers(ctx)
	if err != nil {
		return nil, err
	}
	users, err := q.AllUsers(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]EdgeRef)
	parents := make(map[string][]EdgeRef)
	for _, e := range edges {
		if c, ok := byID[e.ChildID]; ok {
			children[e.ParentID] = append(children[e.ParentID], EdgeRef{
				EdgeID: e.ID, ID: c.ID, Statement: c.Statement, Order: e.Order, Label: e.Label,
			})
		}
		if p, ok := byID[e.ParentID]; ok {
			parents[e.ChildID] = append(parents[e.ChildID], EdgeRef{
				EdgeID: e.ID, ID: p.ID, Statement: p.Statement, Order: e.Order, Label: e.Label,
			})
		}
	}

	out := make([]WithRelations, 0, len(all))
	for _, h := range all {
		if h.IsArchived {
			continue
		}
		w := WithRelations{
			Hypothesis:  h,
			Evidence:    nonNil(evidence[h.ID]),
			Refutations: nonNil(refutations[h.ID]),
			Children:    nonNil(children[h.ID]),
			Parents:     nonNil(parents[h.ID]),
			Watchers:    []User{},
		}
		sort.SliceStable(w.Children, func(i, j int) bool { return w.Children[i].Order < w.Children[j].Order })

		if h.OwnerID != nil {
			if u, ok := users[*h.OwnerID]; ok {
				w.Owner = &u
			} else {
				w.Owner = &User{ID: *h.OwnerID, Name: derefString(h.OwnerName)}
			}
		}
		for _, wr := range watchers[h.ID] {
			u, ok := users[wr.UserID]
			if !ok {
				u = User{ID: wr.UserID}
			}
			w.Watchers = append(w.Watchers, u)
		}
		out = append(out, w)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
