package hypothesis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hypograph/hypograph/internal/graph"
)

// ─── Edges ───────────────────────────────────────────────────────────────────

const edgeColumns = `id, parent_id, child_id, sort_order, label, created_at`

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var (
			e       Edge
			label   sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.ParentID, &e.ChildID, &e.Order, &label, &created); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Label = nullStr(label)
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllEdges returns every edge ordered by parent then sort order.
func (q *Queries) AllEdges(ctx context.Context) ([]Edge, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM hypothesis_edges ORDER BY parent_id, sort_order, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	return scanEdges(rows)
}

// GraphIndex loads the full edge set into a graph.Index.
func (q *Queries) GraphIndex(ctx context.Context) (*graph.Index, error) {
	edges, err := q.AllEdges(ctx)
	if err != nil {
		return nil, err
	}
	pairs := make([]graph.Edge, len(edges))
	for i, e := range edges {
		pairs[i] = graph.Edge{ParentID: e.ParentID, ChildID: e.ChildID}
	}
	return graph.NewIndex(pairs), nil
}

// ChildEdges returns the edges below parentID in sort order.
func (q *Queries) ChildEdges(ctx context.Context, parentID string) ([]Edge, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM hypothesis_edges WHERE parent_id = ? ORDER BY sort_order, created_at`,
		parentID)
	if err != nil {
		return nil, fmt.Errorf("child edges: %w", err)
	}
	return scanEdges(rows)
}

// ParentEdges returns the edges above childID.
func (q *Queries) ParentEdges(ctx context.Context, childID string) ([]Edge, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+edgeColumns+` FROM hypothesis_edges WHERE child_id = ? ORDER BY created_at`,
		childID)
	if err != nil {
		return nil, fmt.Errorf("parent edges: %w", err)
	}
	return scanEdges(rows)
}

// MaxChildOrder returns the highest child order under parentID, or -1 when
// the parent has no children.
func (q *Queries) MaxChildOrder(ctx context.Context, parentID string) (int, error) {
	var max sql.NullInt64
	err := q.c.QueryRowContext(ctx,
		`SELECT MAX(sort_order) FROM hypothesis_edges WHERE parent_id = ?`, parentID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max child order: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// InsertEdge links parentID -> childID. A second edge between the same pair
// returns ErrDuplicateEdge. Cycle checks are the caller's job.
func (q *Queries) InsertEdge(ctx context.Context, parentID, childID string, order int, label string) (*Edge, error) {
	if parentID == childID {
		return nil, ErrSelfParent
	}
	e := Edge{
		ID:        uuid.NewString(),
		ParentID:  parentID,
		ChildID:   childID,
		Order:     order,
		Label:     nullableString(label),
		CreatedAt: fromMillis(toMillis(timeNow())),
	}
	_, err := q.c.ExecContext(ctx,
		`INSERT INTO hypothesis_edges (id, parent_id, child_id, sort_order, label, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ParentID, e.ChildID, e.Order, e.Label, toMillis(e.CreatedAt),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%s -> %s: %w", parentID, childID, ErrDuplicateEdge)
	}
	if err != nil {
		return nil, fmt.Errorf("insert edge: %w", err)
	}
	return &e, nil
}

// DetachFromParents deletes every edge where id is the child and returns the
// former parent ids.
func (q *Queries) DetachFromParents(ctx context.Context, id string) ([]string, error) {
	edges, err := q.ParentEdges(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := q.c.ExecContext(ctx, `DELETE FROM hypothesis_edges WHERE child_id = ?`, id); err != nil {
		return nil, fmt.Errorf("detach from parents: %w", err)
	}
	parents := make([]string, len(edges))
	for i, e := range edges {
		parents[i] = e.ParentID
	}
	return parents, nil
}

// DeleteEdgesTouching removes every edge with id at either end.
func (q *Queries) DeleteEdgesTouching(ctx context.Context, id string) error {
	_, err := q.c.ExecContext(ctx,
		`DELETE FROM hypothesis_edges WHERE parent_id = ? OR child_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("delete edges: %w", err)
	}
	return nil
}

// SetEdgeOrder updates the order of parentID -> childID. It reports whether
// such an edge existed.
func (q *Queries) SetEdgeOrder(ctx context.Context, parentID, childID string, order int) (bool, error) {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypothesis_edges SET sort_order = ? WHERE parent_id = ? AND child_id = ?`,
		order, parentID, childID)
	if err != nil {
		return false, fmt.Errorf("set edge order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
