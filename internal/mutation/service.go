// Package mutation is the externally facing API over the hypothesis graph.
//
// Every operation validates its input, runs its reads and writes in one store
// transaction, and only after commit hands its activity events to the
// recorder and, for evidence changes, runs the cascade. Callers always get a
// Result: validation and structural problems carry a readable message,
// persistence problems are logged and reported as "Failed to <operation>".
package mutation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/cascade"
	"github.com/hypograph/hypograph/internal/classifier"
	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/metrics"
)

// Result is the uniform return shape of every operation.
type Result[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Options configures optional collaborators of a Service.
type Options struct {
	Classifier classifier.Classifier // nil uses classifier.Neutral
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Service implements the Mutation API.
type Service struct {
	store      *hypothesis.Store
	engine     *cascade.Engine
	classifier classifier.Classifier
	recorder   *activity.Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New wires a Service over store.
func New(store *hypothesis.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classifier.Neutral{}
	}
	return &Service{
		store:      store,
		engine:     cascade.New(store, opts.Metrics, logger),
		classifier: cls,
		recorder:   activity.NewRecorder(store, logger),
		metrics:    opts.Metrics,
		logger:     logger,
	}
}

// ─── Errors ──────────────────────────────────────────────────────────────────

// rejection is an expected failure whose message is shown to the caller.
type rejection struct {
	msg string
}

func (r *rejection) Error() string { return r.msg }

func reject(msg string) error {
	return &rejection{msg: msg}
}

// userMessage returns the caller-facing message for expected failures.
func userMessage(err error) (string, bool) {
	var r *rejection
	switch {
	case errors.As(err, &r):
		return r.msg, true
	case errors.Is(err, hypothesis.ErrEmptyStatement):
		return "Statement is required", true
	case errors.Is(err, hypothesis.ErrSelfParent):
		return "A hypothesis cannot be its own parent", true
	case errors.Is(err, hypothesis.ErrCycle):
		return "This would create a circular dependency", true
	case errors.Is(err, hypothesis.ErrDuplicateEdge):
		return "This relationship already exists", true
	case errors.Is(err, hypothesis.ErrNotFound):
		return "Hypothesis not found", true
	}
	return "", false
}

// finish converts an operation outcome into a Result and counts it.
func finish[T any](s *Service, op string, data T, err error) Result[T] {
	label := strings.ReplaceAll(op, " ", "_")
	if err == nil {
		s.metrics.ObserveMutation(label, metrics.OutcomeOK)
		return Result[T]{OK: true, Data: data}
	}

	var zero T
	if msg, ok := userMessage(err); ok {
		s.metrics.ObserveMutation(label, metrics.OutcomeRejected)
		s.logger.Debug("mutation rejected", "op", op, "reason", msg)
		return Result[T]{Error: msg, Data: zero}
	}

	s.metrics.ObserveMutation(label, metrics.OutcomeFailed)
	s.logger.Error("mutation failed", "op", op, "error", err)
	return Result[T]{Error: "Failed to " + op, Data: zero}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func validateStatement(statement string) (string, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", hypothesis.ErrEmptyStatement
	}
	return statement, nil
}

// requireHypothesis loads id, turning a missing row into a rejection with
// the given noun ("Hypothesis", "Parent hypothesis").
func requireHypothesis(ctx context.Context, q *hypothesis.Queries, id, noun string) (*hypothesis.Hypothesis, error) {
	h, err := q.GetHypothesis(ctx, id)
	if errors.Is(err, hypothesis.ErrNotFound) {
		return nil, reject(noun + " not found")
	}
	return h, err
}

// afterCommit records events and bumps content timestamps. Both are best
// effort.
func (s *Service) afterCommit(ctx context.Context, events []activity.Event, touched ...string) {
	s.recorder.Record(ctx, events...)
	s.recorder.MarkContentUpdated(ctx, touched...)
}

func clampConfidence(v *int) int {
	if v == nil {
		return hypothesis.DefaultConfidence
	}
	return confidence.ClampScore(*v)
}
