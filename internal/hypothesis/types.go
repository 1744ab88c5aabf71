package hypothesis

import (
	"errors"
	"time"

	"github.com/hypograph/hypograph/internal/confidence"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrEmptyStatement = errors.New("statement is required")
	ErrSelfParent     = errors.New("hypothesis cannot be its own parent")
	ErrCycle          = errors.New("edge would create a cycle")
	ErrDuplicateEdge  = errors.New("edge already exists")
)

// DefaultConfidence is the score of a freshly created hypothesis.
const DefaultConfidence = confidence.Base

// DefaultEdgeLabel is the label every parent->child edge gets on creation.
const DefaultEdgeLabel = "depends on"

// ─── Confidence mode ─────────────────────────────────────────────────────────

// ConfidenceMode says who owns a hypothesis' confidence value. In ModeAuto
// the cascade engine writes it; in ModeManual only a direct edit does.
//
// The only transition is Pin (auto -> manual). There is deliberately no
// Unpin: a manual override is permanent.
type ConfidenceMode string

const (
	ModeAuto   ConfidenceMode = "auto"
	ModeManual ConfidenceMode = "manual"
)

// Pin returns the mode after a user overrides the confidence.
func (m ConfidenceMode) Pin() ConfidenceMode {
	return ModeManual
}

// IsManual reports whether cascade recomputation must leave the value alone.
func (m ConfidenceMode) IsManual() bool {
	return m == ModeManual
}

// ─── Rows ────────────────────────────────────────────────────────────────────

// Hypothesis is one node of the belief graph.
type Hypothesis struct {
	ID                               string         `json:"id"`
	Statement                        string         `json:"statement"`
	Description                      string         `json:"description,omitempty"`
	Confidence                       int            `json:"confidence"`
	ConfidenceMode                   ConfidenceMode `json:"confidence_mode"`
	Tags                             []string       `json:"tags"`
	Order                            int            `json:"order"`
	IsArchived                       bool           `json:"is_archived"`
	OwnerID                          *string        `json:"owner_id,omitempty"`
	OwnerName                        *string        `json:"owner_name,omitempty"`
	ContentUpdatedAt                 time.Time      `json:"content_updated_at"`
	GraphX                           *float64       `json:"graph_x,omitempty"`
	GraphY                           *float64       `json:"graph_y,omitempty"`
	ExecSummary                      *string        `json:"exec_summary,omitempty"`
	ExecSummaryGeneratedAt           *time.Time     `json:"exec_summary_generated_at,omitempty"`
	ValidationSuggestions            *string        `json:"validation_suggestions,omitempty"`
	ValidationSuggestionsGeneratedAt *time.Time     `json:"validation_suggestions_generated_at,omitempty"`
	CreatedAt                        time.Time      `json:"created_at"`
	UpdatedAt                        time.Time      `json:"updated_at"`
}

// Edge is a parent->child "depends on" link with an order local to ParentID.
type Edge struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id"`
	ChildID   string    `json:"child_id"`
	Order     int       `json:"order"`
	Label     *string   `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Evidence is one directional observation attached to a hypothesis.
type Evidence struct {
	ID           string               `json:"id"`
	HypothesisID string               `json:"hypothesis_id"`
	Direction    confidence.Direction `json:"direction"`
	Strength     int                  `json:"strength"`
	Quality      int                  `json:"quality"`
	Summary      string               `json:"summary"`
	SourceURL    *string              `json:"source_url,omitempty"`
	OwnerName    *string              `json:"owner_name,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Item converts the row into calculator input.
func (e Evidence) Item() confidence.Item {
	return confidence.Item{Direction: e.Direction, Strength: e.Strength}
}

// Refutation is a challenge record. It is persisted and shown but does not
// feed the confidence score.
type Refutation struct {
	ID           string    `json:"id"`
	HypothesisID string    `json:"hypothesis_id"`
	Type         string    `json:"type"`
	Summary      string    `json:"summary"`
	ProposedTest *string   `json:"proposed_test,omitempty"`
	Impact       *string   `json:"impact,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// User is the minimal identity record used for owner/watcher display names.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Watcher links a user to a hypothesis they follow.
type Watcher struct {
	HypothesisID string    `json:"hypothesis_id"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityLog is a persisted activity feed entry.
type ActivityLog struct {
	ID           string    `json:"id"`
	HypothesisID string    `json:"hypothesis_id"`
	ActorID      *string   `json:"actor_id,omitempty"`
	ActorName    *string   `json:"actor_name,omitempty"`
	Type         string    `json:"type"`
	Summary      string    `json:"summary"`
	Metadata     string    `json:"metadata,omitempty"` // JSON object
	CreatedAt    time.Time `json:"created_at"`
}

// ─── Params ──────────────────────────────────────────────────────────────────

// CreateParams holds the input for a new hypothesis row.
type CreateParams struct {
	Statement   string
	Description string
	Confidence  int
	Tags        []string
	Order       int
	OwnerID     string
	OwnerName   string
}

// UpdateParams holds the content fields updateHypothesis may change.
type UpdateParams struct {
	Statement            string
	Description          string
	Confidence           int
	ConfidenceMode       ConfidenceMode
	Tags                 []string
	ClearValidationCache bool
}

// EvidenceParams holds the input for a new evidence row.
type EvidenceParams struct {
	HypothesisID string
	Direction    confidence.Direction
	Strength     int
	Quality      int
	Summary      string
	SourceURL    string
	OwnerName    string
}

// RefutationParams holds the input for a new refutation row.
type RefutationParams struct {
	HypothesisID string
	Type         string
	Summary      string
	ProposedTest string
	Impact       string
}

// ─── Read models ─────────────────────────────────────────────────────────────

// EdgeRef is an edge seen from one end, carrying the statement of the other.
type EdgeRef struct {
	EdgeID    string  `json:"edge_id"`
	ID        string  `json:"id"`
	Statement string  `json:"statement"`
	Order     int     `json:"order"`
	Label     *string `json:"label,omitempty"`
}

// WithRelations is a hypothesis with everything the graph views need.
type WithRelations struct {
	Hypothesis
	Evidence    []Evidence   `json:"evidence"`
	Refutations []Refutation `json:"refutations"`
	Children    []EdgeRef    `json:"children"`
	Parents     []EdgeRef    `json:"parents"`
	Owner       *User        `json:"owner,omitempty"`
	Watchers    []User       `json:"watchers"`
}
