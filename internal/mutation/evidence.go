package mutation

import (
	"context"
	"errors"
	"strings"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/cascade"
	"github.com/hypograph/hypograph/internal/classifier"
	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/hypothesis"
)

// EvidenceResult is returned by evidence operations. Changes lists every
// hypothesis whose confidence the cascade rewrote; it is empty for manual
// hypotheses.
type EvidenceResult struct {
	Evidence  *hypothesis.Evidence `json:"evidence"`
	Reasoning string               `json:"reasoning,omitempty"`
	Changes   []cascade.Change     `json:"changes"`
}

// RefutationInput is the form data for a refutation record.
type RefutationInput struct {
	Type         string
	Summary      string
	ProposedTest string
	Impact       string
}

// manualDefault is used instead of the classifier on manual hypotheses.
func manualDefault(challenge bool) classifier.Classification {
	if challenge {
		return classifier.Classification{Direction: confidence.Refutes, Strength: 3}
	}
	return classifier.Classification{Direction: confidence.Supports, Strength: 3}
}

// classify asks the classifier about text. The company context is read once
// here and passed explicitly.
func (s *Service) classify(ctx context.Context, h *hypothesis.Hypothesis, text string) classifier.Classification {
	company, err := s.store.Read().GetSetting(ctx, hypothesis.SettingCompanyContext)
	if err != nil {
		s.logger.Warn("mutation: company context unavailable", "error", err)
	}
	c := s.classifier.Classify(ctx, classifier.Request{
		CompanyContext: company,
		Statement:      h.Statement,
		Evidence:       text,
	})
	if !c.Direction.Valid() {
		return classifier.Fallback()
	}
	c.Strength = confidence.ClampStrength(c.Strength)
	return c
}

// cascadeFrom runs the cascade after an evidence change on an auto
// hypothesis. The evidence write has already committed, so a cascade failure
// is logged and yields no changes.
func (s *Service) cascadeFrom(ctx context.Context, h *hypothesis.Hypothesis) []cascade.Change {
	if h.ConfidenceMode.IsManual() {
		return []cascade.Change{}
	}
	res, err := s.engine.RecalculateWithCascade(ctx, h.ID)
	if err != nil {
		s.logger.Error("mutation: cascade after evidence change failed", "hypothesis_id", h.ID, "error", err)
		return []cascade.Change{}
	}
	return res.Changes
}

// EvidenceOption sets an optional field on new evidence.
type EvidenceOption func(*hypothesis.EvidenceParams)

// WithSourceURL records where the evidence came from. Blank is ignored.
func WithSourceURL(url string) EvidenceOption {
	return func(p *hypothesis.EvidenceParams) {
		p.SourceURL = strings.TrimSpace(url)
	}
}

// WithQuality rates the source from 1 to 5. Zero keeps the default.
func WithQuality(quality int) EvidenceOption {
	return func(p *hypothesis.EvidenceParams) {
		if quality != 0 {
			p.Quality = confidence.ClampStrength(quality)
		}
	}
}

// AddEvidenceSimple attaches free-text evidence. On auto hypotheses the
// classifier infers direction and strength and the cascade runs.
func (s *Service) AddEvidenceSimple(ctx context.Context, hypothesisID, summary string, actor activity.Actor, opts ...EvidenceOption) Result[*EvidenceResult] {
	return s.addEvidence(ctx, "add evidence", hypothesisID, summary, actor, false, opts)
}

// AddChallengeSimple attaches free-text counter evidence. The stored
// direction is always refuting.
func (s *Service) AddChallengeSimple(ctx context.Context, hypothesisID, summary string, actor activity.Actor, opts ...EvidenceOption) Result[*EvidenceResult] {
	return s.addEvidence(ctx, "add challenge", hypothesisID, summary, actor, true, opts)
}

func (s *Service) addEvidence(ctx context.Context, op, hypothesisID, summary string, actor activity.Actor, challenge bool, opts []EvidenceOption) Result[*EvidenceResult] {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return finish[*EvidenceResult](s, op, nil, reject("Evidence text is required"))
	}

	h, err := s.store.Read().GetHypothesis(ctx, hypothesisID)
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	cls := manualDefault(challenge)
	if !h.ConfidenceMode.IsManual() {
		cls = s.classify(ctx, h, summary)
		if challenge && !cls.Direction.IsRefuting() {
			cls.Direction = confidence.Refutes
		}
	}

	var ev *hypothesis.Evidence
	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		p := hypothesis.EvidenceParams{
			HypothesisID: hypothesisID,
			Direction:    cls.Direction,
			Strength:     cls.Strength,
			Summary:      summary,
			OwnerName:    actor.Name,
		}
		for _, opt := range opts {
			opt(&p)
		}
		var err error
		ev, err = q.InsertEvidence(ctx, p)
		return err
	})
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	label := "evidence"
	if challenge {
		label = "challenge"
	}
	s.afterCommit(ctx, []activity.Event{{
		HypothesisID: hypothesisID,
		Type:         activity.EvidenceAdded,
		Summary:      "Added " + label + ": " + summary,
		Actor:        actor,
		Metadata: map[string]any{
			"evidenceId": ev.ID,
			"direction":  string(ev.Direction),
			"strength":   ev.Strength,
			"challenge":  challenge,
		},
	}}, hypothesisID)

	out := &EvidenceResult{Evidence: ev, Reasoning: cls.Reasoning, Changes: s.cascadeFrom(ctx, h)}
	return finish(s, op, out, nil)
}

// loadEvidence returns the evidence row and its hypothesis.
func (s *Service) loadEvidence(ctx context.Context, evidenceID string) (*hypothesis.Evidence, *hypothesis.Hypothesis, error) {
	q := s.store.Read()
	ev, err := q.GetEvidence(ctx, evidenceID)
	if errors.Is(err, hypothesis.ErrNotFound) {
		return nil, nil, reject("Evidence not found")
	}
	if err != nil {
		return nil, nil, err
	}
	h, err := q.GetHypothesis(ctx, ev.HypothesisID)
	if err != nil {
		return nil, nil, err
	}
	return ev, h, nil
}

// UpdateEvidence replaces the text of an evidence row. On auto hypotheses the
// text is reclassified; refuting evidence stays refuting.
func (s *Service) UpdateEvidence(ctx context.Context, evidenceID, summary string, actor activity.Actor) Result[*EvidenceResult] {
	const op = "update evidence"
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return finish[*EvidenceResult](s, op, nil, reject("Evidence text is required"))
	}

	ev, h, err := s.loadEvidence(ctx, evidenceID)
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	cls := classifier.Classification{Direction: ev.Direction, Strength: ev.Strength}
	if !h.ConfidenceMode.IsManual() {
		cls = s.classify(ctx, h, summary)
		if ev.Direction.IsRefuting() && !cls.Direction.IsRefuting() {
			cls.Direction = confidence.Refutes
		}
	}

	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if err := q.UpdateEvidence(ctx, evidenceID, summary, cls.Direction, cls.Strength); err != nil {
			return err
		}
		var err error
		ev, err = q.GetEvidence(ctx, evidenceID)
		return err
	})
	if errors.Is(err, hypothesis.ErrNotFound) {
		err = reject("Evidence not found")
	}
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	s.afterCommit(ctx, []activity.Event{{
		HypothesisID: h.ID,
		Type:         activity.EvidenceUpdated,
		Summary:      "Updated evidence: " + summary,
		Actor:        actor,
		Metadata: map[string]any{
			"evidenceId": ev.ID,
			"direction":  string(ev.Direction),
			"strength":   ev.Strength,
		},
	}}, h.ID)

	out := &EvidenceResult{Evidence: ev, Reasoning: cls.Reasoning, Changes: s.cascadeFrom(ctx, h)}
	return finish(s, op, out, nil)
}

// DeleteEvidence removes an evidence row and recomputes on auto hypotheses.
func (s *Service) DeleteEvidence(ctx context.Context, evidenceID string, actor activity.Actor) Result[*EvidenceResult] {
	const op = "delete evidence"
	ev, h, err := s.loadEvidence(ctx, evidenceID)
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	err = s.store.Update(ctx, func(q *hypothesis.Queries) error {
		return q.DeleteEvidence(ctx, evidenceID)
	})
	if errors.Is(err, hypothesis.ErrNotFound) {
		err = reject("Evidence not found")
	}
	if err != nil {
		return finish[*EvidenceResult](s, op, nil, err)
	}

	s.afterCommit(ctx, []activity.Event{{
		HypothesisID: h.ID,
		Type:         activity.EvidenceDeleted,
		Summary:      "Deleted evidence: " + ev.Summary,
		Actor:        actor,
		Metadata:     map[string]any{"evidenceId": ev.ID},
	}}, h.ID)

	out := &EvidenceResult{Evidence: ev, Changes: s.cascadeFrom(ctx, h)}
	return finish(s, op, out, nil)
}

// AddRefutation stores a challenge record. It has no effect on confidence.
func (s *Service) AddRefutation(ctx context.Context, hypothesisID string, in RefutationInput, actor activity.Actor) Result[*hypothesis.Refutation] {
	const op = "add refutation"
	in.Type = strings.TrimSpace(in.Type)
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Type == "" {
		return finish[*hypothesis.Refutation](s, op, nil, reject("Refutation type is required"))
	}
	if in.Summary == "" {
		return finish[*hypothesis.Refutation](s, op, nil, reject("Refutation summary is required"))
	}

	var r *hypothesis.Refutation
	err := s.store.Update(ctx, func(q *hypothesis.Queries) error {
		if _, err := requireHypothesis(ctx, q, hypothesisID, "Hypothesis"); err != nil {
			return err
		}
		var err error
		r, err = q.InsertRefutation(ctx, hypothesis.RefutationParams{
			HypothesisID: hypothesisID,
			Type:         in.Type,
			Summary:      in.Summary,
			ProposedTest: in.ProposedTest,
			Impact:       in.Impact,
		})
		return err
	})
	if err == nil {
		s.afterCommit(ctx, []activity.Event{{
			HypothesisID: hypothesisID,
			Type:         activity.RefutationAdded,
			Summary:      "Added refutation: " + in.Summary,
			Actor:        actor,
			Metadata:     map[string]any{"refutationId": r.ID, "type": in.Type},
		}}, hypothesisID)
	}
	return finish(s, op, r, err)
}
