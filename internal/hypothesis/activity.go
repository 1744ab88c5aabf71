package hypothesis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hypograph/hypograph/internal/activity"
)

// ─── Activity feed ───────────────────────────────────────────────────────────

// Store satisfies activity.Sink.
var _ activity.Sink = (*Store)(nil)

// InsertActivity persists one feed entry outside any mutation transaction.
// When the actor has an id but no name, the name is looked up in users.
func (s *Store) InsertActivity(ctx context.Context, e activity.Event) error {
	q := s.Read()

	name := e.Actor.Name
	if name == "" && e.Actor.ID != "" {
		if u, err := q.GetUser(ctx, e.Actor.ID); err == nil {
			name = u.Name
		}
	}

	metadata := "{}"
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode activity metadata: %w", err)
		}
		metadata = string(b)
	}

	_, err := q.c.ExecContext(ctx,
		`INSERT INTO activity_logs (id, hypothesis_id, actor_id, actor_name, type, summary, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), e.HypothesisID, nullableString(e.Actor.ID), nullableString(name),
		string(e.Type), e.Summary, metadata, toMillis(timeNow()),
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// MarkContentUpdated sets content_updated_at on id and all of its ancestors,
// so cached summaries further up the graph read as stale.
func (s *Store) MarkContentUpdated(ctx context.Context, id string) error {
	return s.Update(ctx, func(q *Queries) error {
		idx, err := q.GraphIndex(ctx)
		if err != nil {
			return err
		}
		return q.TouchContent(ctx, idx.Ancestry(id), timeNow())
	})
}

// ListActivity returns the newest feed entries of a hypothesis first.
func (q *Queries) ListActivity(ctx context.Context, hypothesisID string, limit int) ([]ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.c.QueryContext(ctx,
		`SELECT id, hypothesis_id, actor_id, actor_name, type, summary, metadata, created_at
		 FROM activity_logs WHERE hypothesis_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		hypothesisID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var out []ActivityLog
	for rows.Next() {
		var (
			a           ActivityLog
			actorID     sql.NullString
			actorName   sql.NullString
			createdAtMs int64
		)
		if err := rows.Scan(&a.ID, &a.HypothesisID, &actorID, &actorName, &a.Type, &a.Summary, &a.Metadata, &createdAtMs); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.ActorID = nullStr(actorID)
		a.ActorName = nullStr(actorName)
		a.CreatedAt = fromMillis(createdAtMs)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteActivityFor removes the feed of a hypothesis.
func (q *Queries) DeleteActivityFor(ctx context.Context, hypothesisID string) error {
	if _, err := q.c.ExecContext(ctx, `DELETE FROM activity_logs WHERE hypothesis_id = ?`, hypothesisID); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	return nil
}

// ─── Users & watchers ────────────────────────────────────────────────────────

// UpsertUser creates or renames a user.
func (q *Queries) UpsertUser(ctx context.Context, u User) error {
	_, err := q.c.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.ID, u.Name, nullableString(u.Email), toMillis(timeNow()))
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser loads one user.
func (q *Queries) GetUser(ctx context.Context, id string) (*User, error) {
	var (
		u     User
		email sql.NullString
	)
	err := q.c.QueryRowContext(ctx, `SELECT id, name, email FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Email = email.String
	return &u, nil
}

// AllUsers returns every known user keyed by id.
func (q *Queries) AllUsers(ctx context.Context) (map[string]User, error) {
	rows, err := q.c.QueryContext(ctx, `SELECT id, name, email FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make(map[string]User)
	for rows.Next() {
		var (
			u     User
			email sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Name, &email); err != nil {
			return nil, err
		}
		u.Email = email.String
		out[u.ID] = u
	}
	return out, rows.Err()
}

// AddWatcher subscribes a user to a hypothesis. Watching twice is a no-op.
func (q *Queries) AddWatcher(ctx context.Context, hypothesisID, userID string) error {
	_, err := q.c.ExecContext(ctx,
		`INSERT OR IGNORE INTO watchers (hypothesis_id, user_id, created_at) VALUES (?, ?, ?)`,
		hypothesisID, userID, toMillis(timeNow()))
	if err != nil {
		return fmt.Errorf("add watcher: %w", err)
	}
	return nil
}

// RemoveWatcher unsubscribes a user.
func (q *Queries) RemoveWatcher(ctx context.Context, hypothesisID, userID string) error {
	_, err := q.c.ExecContext(ctx,
		`DELETE FROM watchers WHERE hypothesis_id = ? AND user_id = ?`, hypothesisID, userID)
	if err != nil {
		return fmt.Errorf("remove watcher: %w", err)
	}
	return nil
}

// AllWatchers returns hypothesis id -> watcher rows.
func (q *Queries) AllWatchers(ctx context.Context) (map[string][]Watcher, error) {
	rows, err := q.c.QueryContext(ctx,
		`SELECT hypothesis_id, user_id, created_at FROM watchers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Watcher)
	for rows.Next() {
		var (
			w       Watcher
			created int64
		)
		if err := rows.Scan(&w.HypothesisID, &w.UserID, &created); err != nil {
			return nil, err
		}
		w.CreatedAt = fromMillis(created)
		out[w.HypothesisID] = append(out[w.HypothesisID], w)
	}
	return out, rows.Err()
}

// DeleteWatchersFor removes every watcher of a hypothesis.
func (q *Queries) DeleteWatchersFor(ctx context.Context, hypothesisID string) error {
	if _, err := q.c.ExecContext(ctx, `DELETE FROM watchers WHERE hypothesis_id = ?`, hypothesisID); err != nil {
		return fmt.Errorf("delete watchers: %w", err)
	}
	return nil
}

// ─── Settings ────────────────────────────────────────────────────────────────

// SettingCompanyContext is the key holding the free-text organization
// description handed to the classifier.
const SettingCompanyContext = "company_context"

// GetSetting returns the value for key, or "" when unset.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.c.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key.
func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.c.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, toMillis(timeNow()))
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}
