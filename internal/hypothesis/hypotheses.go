package hypothesis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hypograph/hypograph/internal/confidence"
)

// ─── Hypotheses ──────────────────────────────────────────────────────────────

const hypothesisColumns = `id, statement, description, confidence, confidence_mode, tags,
	sort_order, is_archived, owner_id, owner_name, content_updated_at,
	graph_x, graph_y, exec_summary, exec_summary_generated_at,
	validation_suggestions, validation_suggestions_generated_at,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanHypothesis(sc scanner) (*Hypothesis, error) {
	var (
		h                        Hypothesis
		mode, tags               string
		archived                 int
		ownerID, ownerName       sql.NullString
		execSummary, suggestions sql.NullString
		graphX, graphY           sql.NullFloat64
		execAt, suggestionsAt    sql.NullInt64
		contentAt, created, upd  int64
	)
	if err := sc.Scan(
		&h.ID, &h.Statement, &h.Description, &h.Confidence, &mode, &tags,
		&h.Order, &archived, &ownerID, &ownerName, &contentAt,
		&graphX, &graphY, &execSummary, &execAt,
		&suggestions, &suggestionsAt,
		&created, &upd,
	); err != nil {
		return nil, err
	}

	h.ConfidenceMode = ConfidenceMode(mode)
	if err := json.Unmarshal([]byte(tags), &h.Tags); err != nil || h.Tags == nil {
		h.Tags = []string{}
	}
	h.IsArchived = archived != 0
	h.OwnerID = nullStr(ownerID)
	h.OwnerName = nullStr(ownerName)
	h.ContentUpdatedAt = fromMillis(contentAt)
	h.GraphX = nullFloat(graphX)
	h.GraphY = nullFloat(graphY)
	h.ExecSummary = nullStr(execSummary)
	h.ExecSummaryGeneratedAt = nullTime(execAt)
	h.ValidationSuggestions = nullStr(suggestions)
	h.ValidationSuggestionsGeneratedAt = nullTime(suggestionsAt)
	h.CreatedAt = fromMillis(created)
	h.UpdatedAt = fromMillis(upd)
	return &h, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// GetHypothesis loads one hypothesis, archived or not.
func (q *Queries) GetHypothesis(ctx context.Context, id string) (*Hypothesis, error) {
	row := q.c.QueryRowContext(ctx,
		`SELECT `+hypothesisColumns+` FROM hypotheses WHERE id = ?`, id)
	h, err := scanHypothesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hypothesis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get hypothesis: %w", err)
	}
	return h, nil
}

// ListHypotheses returns hypotheses ordered by sort order, then creation time.
func (q *Queries) ListHypotheses(ctx context.Context, includeArchived bool) ([]Hypothesis, error) {
	query := `SELECT ` + hypothesisColumns + ` FROM hypotheses`
	if !includeArchived {
		query += ` WHERE is_archived = 0`
	}
	query += ` ORDER BY sort_order ASC, created_at ASC`

	rows, err := q.c.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hypotheses: %w", err)
	}
	defer rows.Close()

	var out []Hypothesis
	for rows.Next() {
		h, err := scanHypothesis(rows)
		if err != nil {
			return nil, fmt.Errorf("scan hypothesis: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// Confidences returns id -> (confidence, mode) for every hypothesis.
func (q *Queries) Confidences(ctx context.Context) (map[string]Hypothesis, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT id, confidence, confidence_mode FROM hypotheses`)
	if err != nil {
		return nil, fmt.Errorf("load confidences: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Hypothesis)
	for rows.Next() {
		var (
			h    Hypothesis
			mode string
		)
		if err := rows.Scan(&h.ID, &h.Confidence, &mode); err != nil {
			return nil, err
		}
		h.ConfidenceMode = ConfidenceMode(mode)
		out[h.ID] = h
	}
	return out, rows.Err()
}

// MaxRootOrder returns the highest sort order among hypotheses that have no
// parent, or -1 when there are none.
func (q *Queries) MaxRootOrder(ctx context.Context) (int, error) {
	var max sql.NullInt64
	err := q.c.QueryRowContext(ctx,
		`SELECT MAX(h.sort_order) FROM hypotheses h
		 WHERE NOT EXISTS (SELECT 1 FROM hypothesis_edges e WHERE e.child_id = h.id)`,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max root order: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

// InsertHypothesis stores a new hypothesis in auto mode.
func (q *Queries) InsertHypothesis(ctx context.Context, p CreateParams) (*Hypothesis, error) {
	now := toMillis(timeNow())
	id := uuid.NewString()
	tags := NormalizeTags(p.Tags)

	_, err := q.c.ExecContext(ctx,
		`INSERT INTO hypotheses (id, statement, description, confidence, confidence_mode, tags,
		                         sort_order, owner_id, owner_name, content_updated_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'auto', ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Statement, p.Description, confidence.ClampScore(p.Confidence), encodeTags(tags),
		p.Order, nullableString(p.OwnerID), nullableString(p.OwnerName), now, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert hypothesis: %w", err)
	}
	return q.GetHypothesis(ctx, id)
}

// UpdateContent overwrites the editable content fields. When
// p.ClearValidationCache is set the cached validation suggestions go too.
func (q *Queries) UpdateContent(ctx context.Context, id string, p UpdateParams) error {
	query := `UPDATE hypotheses
		 SET statement = ?, description = ?, confidence = ?, confidence_mode = ?, tags = ?, updated_at = ?`
	if p.ClearValidationCache {
		query += `, validation_suggestions = NULL, validation_suggestions_generated_at = NULL`
	}
	query += ` WHERE id = ?`

	res, err := q.c.ExecContext(ctx, query,
		p.Statement, p.Description, confidence.ClampScore(p.Confidence), string(p.ConfidenceMode),
		encodeTags(NormalizeTags(p.Tags)), toMillis(timeNow()), id,
	)
	if err != nil {
		return fmt.Errorf("update hypothesis: %w", err)
	}
	return requireOneRow(res, id)
}

// SetAutoConfidence writes a computed confidence. Rows in manual mode are
// never touched; the returned bool reports whether a row was written.
func (q *Queries) SetAutoConfidence(ctx context.Context, id string, value int) (bool, error) {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET confidence = ?, updated_at = ?
		 WHERE id = ? AND confidence_mode = 'auto'`,
		confidence.ClampScore(value), toMillis(timeNow()), id,
	)
	if err != nil {
		return false, fmt.Errorf("set confidence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetArchived flips the archive flag.
func (q *Queries) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET is_archived = ?, updated_at = ? WHERE id = ?`,
		boolToInt(archived), toMillis(timeNow()), id,
	)
	if err != nil {
		return fmt.Errorf("archive hypothesis: %w", err)
	}
	return requireOneRow(res, id)
}

// SetRootOrder sets the sort order column.
func (q *Queries) SetRootOrder(ctx context.Context, id string, order int) error {
	_, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET sort_order = ? WHERE id = ?`, order, id)
	if err != nil {
		return fmt.Errorf("set order: %w", err)
	}
	return nil
}

// SetLayout stores the graph canvas position.
func (q *Queries) SetLayout(ctx context.Context, id string, x, y float64) error {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET graph_x = ?, graph_y = ? WHERE id = ?`, x, y, id)
	if err != nil {
		return fmt.Errorf("set layout: %w", err)
	}
	return requireOneRow(res, id)
}

// SetExecSummary caches a generated executive summary.
func (q *Queries) SetExecSummary(ctx context.Context, id, text string) error {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET exec_summary = ?, exec_summary_generated_at = ? WHERE id = ?`,
		text, toMillis(timeNow()), id)
	if err != nil {
		return fmt.Errorf("set exec summary: %w", err)
	}
	return requireOneRow(res, id)
}

// SetValidationSuggestions caches generated validation suggestions.
func (q *Queries) SetValidationSuggestions(ctx context.Context, id, text string) error {
	res, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET validation_suggestions = ?, validation_suggestions_generated_at = ? WHERE id = ?`,
		text, toMillis(timeNow()), id)
	if err != nil {
		return fmt.Errorf("set validation suggestions: %w", err)
	}
	return requireOneRow(res, id)
}

// TouchContent sets content_updated_at on every id.
func (q *Queries) TouchContent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{toMillis(at)}, stringArgs(ids)...)
	_, err := q.c.ExecContext(ctx,
		`UPDATE hypotheses SET content_updated_at = ? WHERE id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("touch content: %w", err)
	}
	return nil
}

// ExecSummaryStale reports whether the cached summary is missing or older
// than the last content change.
func (q *Queries) ExecSummaryStale(ctx context.Context, id string) (bool, error) {
	h, err := q.GetHypothesis(ctx, id)
	if err != nil {
		return false, err
	}
	if h.ExecSummary == nil || h.ExecSummaryGeneratedAt == nil {
		return true, nil
	}
	return h.ContentUpdatedAt.After(*h.ExecSummaryGeneratedAt), nil
}

// DeleteHypothesisRow removes the hypothesis row itself.
func (q *Queries) DeleteHypothesisRow(ctx context.Context, id string) error {
	res, err := q.c.ExecContext(ctx, `DELETE FROM hypotheses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete hypothesis: %w", err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("hypothesis %s: %w", id, ErrNotFound)
	}
	return nil
}
