package hypothesis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hypograph/hypograph/internal/confidence"
)

// ─── Evidence ────────────────────────────────────────────────────────────────

const evidenceColumns = `id, hypothesis_id, direction, strength, quality, summary,
	source_url, owner_name, created_at, updated_at`

// DefaultQuality is the quality recorded when the caller gives none.
const DefaultQuality = 3

func scanEvidence(sc scanner) (*Evidence, error) {
	var (
		e                 Evidence
		direction         string
		source, owner     sql.NullString
		created, modified int64
	)
	if err := sc.Scan(&e.ID, &e.HypothesisID, &direction, &e.Strength, &e.Quality, &e.Summary,
		&source, &owner, &created, &modified); err != nil {
		return nil, err
	}
	e.Direction = confidence.Direction(direction)
	e.SourceURL = nullStr(source)
	e.OwnerName = nullStr(owner)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(modified)
	return &e, nil
}

func collectEvidence(rows *sql.Rows) ([]Evidence, error) {
	defer rows.Close()
	var out []Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// InsertEvidence stores one evidence row. Strength and quality are clamped
// to 1..5.
func (q *Queries) InsertEvidence(ctx context.Context, p EvidenceParams) (*Evidence, error) {
	if !p.Direction.Valid() {
		return nil, fmt.Errorf("insert evidence: invalid direction %q", p.Direction)
	}
	quality := p.Quality
	if quality == 0 {
		quality = DefaultQuality
	}
	now := toMillis(timeNow())
	id := uuid.NewString()

	_, err := q.c.ExecContext(ctx,
		`INSERT INTO evidence (id, hypothesis_id, direction, strength, quality, summary,
		                       source_url, owner_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.HypothesisID, string(p.Direction), confidence.ClampStrength(p.Strength),
		confidence.ClampStrength(quality), p.Summary,
		nullableString(p.SourceURL), nullableString(p.OwnerName), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert evidence: %w", err)
	}
	return q.GetEvidence(ctx, id)
}

// GetEvidence loads one evidence row.
func (q *Queries) GetEvidence(ctx context.Context, id string) (*Evidence, error) {
	row := q.c.QueryRowContext(ctx, `SELECT `+evidenceColumns+` FROM evidence WHERE id = ?`, id)
	e, err := scanEvidence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("evidence %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get evidence: %w", err)
	}
	return e, nil
}

// ListEvidence returns the evidence of one hypothesis, oldest first.
func (q *Queries) ListEvidence(ctx context.Context, hypothesisID string) ([]Evidence, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence WHERE hypothesis_id = ? ORDER BY created_at, id`,
		hypothesisID)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return collectEvidence(rows)
}

// AllEvidence returns every evidence row grouped by hypothesis id.
func (q *Queries) AllEvidence(ctx context.Context) (map[string][]Evidence, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+evidenceColumns+` FROM evidence ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	list, err := collectEvidence(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Evidence)
	for _, e := range list {
		out[e.HypothesisID] = append(out[e.HypothesisID], e)
	}
	return out, nil
}

// UpdateEvidence rewrites the summary, direction and strength of a row.
func (q *Queries) UpdateEvidence(ctx context.Context, id, summary string, direction confidence.Direction, strength int) error {
	res, err := q.c.ExecContext(ctx,
		`UPDATE evidence SET summary = ?, direction = ?, strength = ?, updated_at = ? WHERE id = ?`,
		summary, string(direction), confidence.ClampStrength(strength), toMillis(timeNow()), id)
	if err != nil {
		return fmt.Errorf("update evidence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("evidence %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEvidence removes one evidence row.
func (q *Queries) DeleteEvidence(ctx context.Context, id string) error {
	res, err := q.c.ExecContext(ctx, `DELETE FROM evidence WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("evidence %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEvidenceFor removes all evidence of a hypothesis.
func (q *Queries) DeleteEvidenceFor(ctx context.Context, hypothesisID string) error {
	if _, err := q.c.ExecContext(ctx, `DELETE FROM evidence WHERE hypothesis_id = ?`, hypothesisID); err != nil {
		return fmt.Errorf("delete evidence: %w", err)
	}
	return nil
}

// ─── Refutations ─────────────────────────────────────────────────────────────

const refutationColumns = `id, hypothesis_id, type, summary, proposed_test, impact, created_at`

func scanRefutations(rows *sql.Rows) ([]Refutation, error) {
	defer rows.Close()
	var out []Refutation
	for rows.Next() {
		var (
			r            Refutation
			test, impact sql.NullString
			created      int64
		)
		if err := rows.Scan(&r.ID, &r.HypothesisID, &r.Type, &r.Summary, &test, &impact, &created); err != nil {
			return nil, fmt.Errorf("scan refutation: %w", err)
		}
		r.ProposedTest = nullStr(test)
		r.Impact = nullStr(impact)
		r.CreatedAt = fromMillis(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRefutation stores a challenge record.
func (q *Queries) InsertRefutation(ctx context.Context, p RefutationParams) (*Refutation, error) {
	r := Refutation{
		ID:           uuid.NewString(),
		HypothesisID: p.HypothesisID,
		Type:         p.Type,
		Summary:      p.Summary,
		ProposedTest: nullableString(p.ProposedTest),
		Impact:       nullableString(p.Impact),
		CreatedAt:    fromMillis(toMillis(timeNow())),
	}
	_, err := q.c.ExecContext(ctx,
		`INSERT INTO refutations (id, hypothesis_id, type, summary, proposed_test, impact, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.HypothesisID, r.Type, r.Summary, r.ProposedTest, r.Impact, toMillis(r.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert refutation: %w", err)
	}
	return &r, nil
}

// ListRefutations returns the refutations of one hypothesis, oldest first.
func (q *Queries) ListRefutations(ctx context.Context, hypothesisID string) ([]Refutation, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+refutationColumns+` FROM refutations WHERE hypothesis_id = ? ORDER BY created_at, id`,
		hypothesisID)
	if err != nil {
		return nil, fmt.Errorf("list refutations: %w", err)
	}
	return scanRefutations(rows)
}

// AllRefutations returns every refutation grouped by hypothesis id.
func (q *Queries) AllRefutations(ctx context.Context) (map[string][]Refutation, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT `+refutationColumns+` FROM refutations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list refutations: %w", err)
	}
	list, err := scanRefutations(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Refutation)
	for _, r := range list {
		out[r.HypothesisID] = append(out[r.HypothesisID], r)
	}
	return out, nil
}

// DeleteRefutationsFor removes all refutations of a hypothesis.
func (q *Queries) DeleteRefutationsFor(ctx context.Context, hypothesisID string) error {
	if _, err := q.c.ExecContext(ctx, `DELETE FROM refutations WHERE hypothesis_id = ?`, hypothesisID); err != nil {
		return fmt.Errorf("delete refutations: %w", err)
	}
	return nil
}
