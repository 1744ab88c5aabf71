package mutation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypograph/hypograph/internal/activity"
	"github.com/hypograph/hypograph/internal/cascade"
	"github.com/hypograph/hypograph/internal/classifier"
	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/metrics"
	"github.com/hypograph/hypograph/internal/mutation"
)

type stubClassifier struct {
	result classifier.Classification
	calls  int
	last   classifier.Request
}

func (s *stubClassifier) Classify(_ context.Context, req classifier.Request) classifier.Classification {
	s.calls++
	s.last = req
	return s.result
}

type env struct {
	t     *testing.T
	ctx   context.Context
	store *hypothesis.Store
	svc   *mutation.Service
	cls   *stubClassifier
	m     *metrics.Metrics
	actor activity.Actor
}

func newEnv(t *testing.T) *env {
	t.Helper()
	s, err := hypothesis.New(hypothesis.Config{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cls := &stubClassifier{result: classifier.Classification{Direction: confidence.Supports, Strength: 5}}
	m := metrics.New()
	return &env{
		t:     t,
		ctx:   context.Background(),
		store: s,
		svc:   mutation.New(s, mutation.Options{Classifier: cls, Metrics: m}),
		cls:   cls,
		m:     m,
		actor: activity.Actor{ID: "u1", Name: "Tester"},
	}
}

func (e *env) root(statement string) *hypothesis.Hypothesis {
	e.t.Helper()
	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: statement, Actor: e.actor})
	require.True(e.t, res.OK, res.Error)
	return res.Data
}

func (e *env) child(parentID, statement string) *hypothesis.Hypothesis {
	e.t.Helper()
	res := e.svc.CreateChildHypothesisAndEdge(e.ctx, parentID, mutation.CreateInput{Statement: statement, Actor: e.actor})
	require.True(e.t, res.OK, res.Error)
	return res.Data.Hypothesis
}

func (e *env) get(id string) *hypothesis.Hypothesis {
	e.t.Helper()
	h, err := e.store.Read().GetHypothesis(e.ctx, id)
	require.NoError(e.t, err)
	return h
}

func (e *env) parents(id string) []string {
	e.t.Helper()
	edges, err := e.store.Read().ParentEdges(e.ctx, id)
	require.NoError(e.t, err)
	out := []string{}
	for _, ed := range edges {
		out = append(out, ed.ParentID)
	}
	return out
}

func (e *env) activityTypes(id string) []activity.Type {
	e.t.Helper()
	logs, err := e.store.Read().ListActivity(e.ctx, id, 100)
	require.NoError(e.t, err)
	out := []activity.Type{}
	// oldest first reads more naturally in assertions
	for i := len(logs) - 1; i >= 0; i-- {
		out = append(out, activity.Type(logs[i].Type))
	}
	return out
}

func count(types []activity.Type, want activity.Type) int {
	n := 0
	for _, t := range types {
		if t == want {
			n++
		}
	}
	return n
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// ─── Create / update ─────────────────────────────────────────────────────────

func TestCreateHypothesis_DedupsTags(t *testing.T) {
	e := newEnv(t)
	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "Tagged", Tags: "A, a, B, A"})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []string{"A", "B"}, res.Data.Tags)
	assert.Equal(t, []string{"A", "B"}, e.get(res.Data.ID).Tags)
}

func TestCreateHypothesis_RejectsBlankStatement(t *testing.T) {
	e := newEnv(t)
	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "   "})
	assert.False(t, res.OK)
	assert.Equal(t, "Statement is required", res.Error)
	assert.Nil(t, res.Data)
}

func TestCreateHypothesis_AppendsRootsAndClampsConfidence(t *testing.T) {
	e := newEnv(t)
	a := e.root("a")
	b := e.root("b")
	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "c", Confidence: intPtr(140)})
	require.True(t, res.OK)

	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order)
	assert.Equal(t, 2, res.Data.Order)
	assert.Equal(t, 100, res.Data.Confidence)
	assert.Equal(t, 50, a.Confidence)
	assert.Equal(t, []activity.Type{activity.HypothesisCreated}, e.activityTypes(a.ID))
}

func TestCreateHypothesis_ResolvesOwnerName(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Update(e.ctx, func(q *hypothesis.Queries) error {
		return q.UpsertUser(e.ctx, hypothesis.User{ID: "owner-1", Name: "Rio"})
	}))

	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "owned", OwnerID: "owner-1"})
	require.True(t, res.OK)
	require.NotNil(t, res.Data.OwnerName)
	assert.Equal(t, "Rio", *res.Data.OwnerName)
}

func TestUpdateHypothesis_EmitsOneEventPerChangedCategory(t *testing.T) {
	e := newEnv(t)
	h := e.root("original")

	res := e.svc.UpdateHypothesis(e.ctx, h.ID, mutation.UpdateInput{
		Statement:   "original",
		Description: strPtr(""),
		Confidence:  intPtr(50),
		Tags:        strPtr(""),
	})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []activity.Type{activity.HypothesisCreated}, e.activityTypes(h.ID), "no-op edit logs nothing")
	assert.Equal(t, hypothesis.ModeAuto, res.Data.ConfidenceMode)

	res = e.svc.UpdateHypothesis(e.ctx, h.ID, mutation.UpdateInput{
		Statement:   "rewritten",
		Description: strPtr("more detail"),
		Confidence:  intPtr(72),
		Tags:        strPtr("growth"),
	})
	require.True(t, res.OK, res.Error)

	types := e.activityTypes(h.ID)
	assert.Equal(t, 1, count(types, activity.HypothesisUpdated))
	assert.Equal(t, 1, count(types, activity.ConfidenceChanged))
	assert.Equal(t, 1, count(types, activity.TagsChanged))
	assert.Equal(t, 72, res.Data.Confidence)
	assert.Equal(t, hypothesis.ModeManual, res.Data.ConfidenceMode)
	assert.Equal(t, []string{"growth"}, res.Data.Tags)
}

func TestUpdateHypothesis_ReorderedTagsAreAChange(t *testing.T) {
	e := newEnv(t)
	created := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "tagged", Tags: "A, B", Actor: e.actor})
	require.True(t, created.OK, created.Error)

	res := e.svc.UpdateHypothesis(e.ctx, created.Data.ID, mutation.UpdateInput{Statement: "tagged", Tags: strPtr("B, A")})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []string{"B", "A"}, res.Data.Tags)
	assert.Equal(t, []string{"B", "A"}, e.get(created.Data.ID).Tags)
	assert.Equal(t, 1, count(e.activityTypes(created.Data.ID), activity.TagsChanged))

	same := e.svc.UpdateHypothesis(e.ctx, created.Data.ID, mutation.UpdateInput{Statement: "tagged", Tags: strPtr("B, A")})
	require.True(t, same.OK, same.Error)
	assert.Equal(t, 1, count(e.activityTypes(created.Data.ID), activity.TagsChanged), "same order is not a change")
}

func TestUpdateHypothesis_NotFound(t *testing.T) {
	e := newEnv(t)
	res := e.svc.UpdateHypothesis(e.ctx, "missing", mutation.UpdateInput{Statement: "x"})
	assert.False(t, res.OK)
	assert.Equal(t, "Hypothesis not found", res.Error)
}

func TestUpdateHypothesis_ClearsValidationSuggestionsOnStatementChange(t *testing.T) {
	e := newEnv(t)
	h := e.root("before")
	require.True(t, e.svc.SetValidationSuggestions(e.ctx, h.ID, "interview 5 customers").OK)

	res := e.svc.UpdateHypothesis(e.ctx, h.ID, mutation.UpdateInput{Statement: "before", Tags: strPtr("x")})
	require.True(t, res.OK)
	assert.NotNil(t, res.Data.ValidationSuggestions, "tag change keeps suggestions")

	res = e.svc.UpdateHypothesis(e.ctx, h.ID, mutation.UpdateInput{Statement: "after"})
	require.True(t, res.OK)
	assert.Nil(t, res.Data.ValidationSuggestions)
}

// ─── Structure ───────────────────────────────────────────────────────────────

func TestCreateChildHypothesisAndEdge(t *testing.T) {
	e := newEnv(t)
	p := e.root("parent")

	first := e.svc.CreateChildHypothesisAndEdge(e.ctx, p.ID, mutation.CreateInput{Statement: "c1"})
	second := e.svc.CreateChildHypothesisAndEdge(e.ctx, p.ID, mutation.CreateInput{Statement: "c2"})
	require.True(t, first.OK)
	require.True(t, second.OK)

	assert.Equal(t, 0, first.Data.Edge.Order)
	assert.Equal(t, 1, second.Data.Edge.Order)
	require.NotNil(t, first.Data.Edge.Label)
	assert.Equal(t, "depends on", *first.Data.Edge.Label)
	assert.Equal(t, 2, count(e.activityTypes(p.ID), activity.ChildAdded))

	missing := e.svc.CreateChildHypothesisAndEdge(e.ctx, "nope", mutation.CreateInput{Statement: "orphan"})
	assert.False(t, missing.OK)
	assert.Equal(t, "Parent hypothesis not found", missing.Error)
}

func TestCreateChildHypothesisAndEdge_ConcurrentOrdersAreDistinct(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")

	const n = 20
	errs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := e.svc.CreateChildHypothesisAndEdge(e.ctx, p.ID, mutation.CreateInput{
				Statement: fmt.Sprintf("child %d", i),
				Actor:     e.actor,
			})
			if !res.OK {
				errs[i] = res.Error
			}
		}(i)
	}
	wg.Wait()

	for i, msg := range errs {
		assert.Empty(t, msg, "child %d failed", i)
	}

	edges, err := e.store.Read().ChildEdges(e.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edges, n)
	orders := map[int]bool{}
	for _, ed := range edges {
		orders[ed.Order] = true
	}
	assert.Len(t, orders, n, "every child gets its own order")
}

func TestMoveHypothesisToParent_RejectsCycle(t *testing.T) {
	e := newEnv(t)
	a := e.root("A")
	b := e.child(a.ID, "B")
	c := e.child(b.ID, "C")

	before, err := e.store.Read().AllEdges(e.ctx)
	require.NoError(t, err)

	res := e.svc.MoveHypothesisToParent(e.ctx, a.ID, c.ID, e.actor)
	assert.False(t, res.OK)
	assert.Equal(t, "This would create a circular dependency", res.Error)

	after, err := e.store.Read().AllEdges(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMoveHypothesisToParent_RejectsSelfAndDuplicate(t *testing.T) {
	e := newEnv(t)
	a := e.root("A")
	b := e.child(a.ID, "B")

	self := e.svc.MoveHypothesisToParent(e.ctx, a.ID, a.ID, e.actor)
	assert.Equal(t, "A hypothesis cannot be its own parent", self.Error)

	dup := e.svc.MoveHypothesisToParent(e.ctx, b.ID, a.ID, e.actor)
	assert.Equal(t, "This relationship already exists", dup.Error)
}

func TestMoveHypothesisToParent_DropsOtherParents(t *testing.T) {
	e := newEnv(t)
	p1 := e.root("P1")
	p2 := e.root("P2")
	target := e.root("Target")
	e.child(target.ID, "existing")
	c := e.child(p1.ID, "C")
	require.True(t, e.svc.LinkExistingHypothesis(e.ctx, p2.ID, c.ID, e.actor).OK)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, e.parents(c.ID))

	res := e.svc.MoveHypothesisToParent(e.ctx, c.ID, target.ID, e.actor)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []string{target.ID}, e.parents(c.ID))
	assert.Equal(t, 1, res.Data.Order, "appended after the existing child")
	assert.Contains(t, e.activityTypes(c.ID), activity.HypothesisMoved)
}

func TestLinkExistingHypothesis(t *testing.T) {
	e := newEnv(t)
	p1 := e.root("P1")
	p2 := e.root("P2")
	c := e.child(p1.ID, "C")

	res := e.svc.LinkExistingHypothesis(e.ctx, p2.ID, c.ID, e.actor)
	require.True(t, res.OK, res.Error)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, e.parents(c.ID))

	dup := e.svc.LinkExistingHypothesis(e.ctx, p2.ID, c.ID, e.actor)
	assert.Equal(t, "This relationship already exists", dup.Error)

	cycle := e.svc.LinkExistingHypothesis(e.ctx, c.ID, p1.ID, e.actor)
	assert.Equal(t, "This would create a circular dependency", cycle.Error)

	detach := e.svc.LinkExistingHypothesis(e.ctx, "", c.ID, e.actor)
	require.True(t, detach.OK)
	assert.Empty(t, e.parents(c.ID))
}

func TestReorderHypotheses_UnderParent(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")
	other := e.root("Other")
	c1 := e.child(p.ID, "c1")
	c2 := e.child(p.ID, "c2")
	c3 := e.child(p.ID, "c3")
	require.True(t, e.svc.LinkExistingHypothesis(e.ctx, other.ID, c1.ID, e.actor).OK)

	res := e.svc.ReorderHypotheses(e.ctx, []string{c2.ID, c1.ID, c3.ID}, p.ID)
	require.True(t, res.OK, res.Error)

	edges, err := e.store.Read().ChildEdges(e.ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Equal(t, c2.ID, edges[0].ChildID)
	assert.Equal(t, 0, edges[0].Order)
	assert.Equal(t, c1.ID, edges[1].ChildID)
	assert.Equal(t, 1, edges[1].Order)
	assert.Equal(t, c3.ID, edges[2].ChildID)
	assert.Equal(t, 2, edges[2].Order)

	otherEdges, err := e.store.Read().ChildEdges(e.ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, otherEdges, 1)
	assert.Equal(t, 0, otherEdges[0].Order)
}

func TestReorderHypotheses_IsAtomic(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")
	c1 := e.child(p.ID, "c1")
	c2 := e.child(p.ID, "c2")
	stranger := e.root("stranger")

	res := e.svc.ReorderHypotheses(e.ctx, []string{c2.ID, stranger.ID, c1.ID}, p.ID)
	assert.False(t, res.OK)

	edges, err := e.store.Read().ChildEdges(e.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, edges[0].ChildID, "first write rolled back")
	assert.Equal(t, 0, edges[0].Order)

	dup := e.svc.ReorderHypotheses(e.ctx, []string{c1.ID, c1.ID}, p.ID)
	assert.False(t, dup.OK)
}

func TestReorderHypotheses_Roots(t *testing.T) {
	e := newEnv(t)
	a := e.root("a")
	b := e.root("b")

	require.True(t, e.svc.ReorderHypotheses(e.ctx, []string{b.ID, a.ID}, "").OK)
	assert.Equal(t, 0, e.get(b.ID).Order)
	assert.Equal(t, 1, e.get(a.ID).Order)

	list := e.svc.GetHypothesesWithRelations(e.ctx)
	require.True(t, list.OK)
	require.Len(t, list.Data, 2)
	assert.Equal(t, b.ID, list.Data[0].ID)
}

func TestReorderHypotheses_RootsRejectsChildren(t *testing.T) {
	e := newEnv(t)
	a := e.root("a")
	b := e.root("b")
	c := e.child(a.ID, "c")

	res := e.svc.ReorderHypotheses(e.ctx, []string{b.ID, c.ID, a.ID}, "")
	assert.False(t, res.OK)
	assert.Equal(t, fmt.Sprintf("Hypothesis %s is not a root", c.ID), res.Error)

	assert.Equal(t, 0, e.get(a.ID).Order, "first write rolled back")
	assert.Equal(t, 1, e.get(b.ID).Order)
}

func TestArchiveHypothesis(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")
	c := e.child(p.ID, "C")

	res := e.svc.ArchiveHypothesis(e.ctx, p.ID, true, e.actor)
	require.True(t, res.OK)
	assert.True(t, res.Data.IsArchived)
	assert.False(t, e.get(c.ID).IsArchived, "children are not archived")

	require.True(t, e.svc.ArchiveHypothesis(e.ctx, p.ID, false, e.actor).OK)
	assert.Equal(t, 1, count(e.activityTypes(p.ID), activity.HypothesisArchived))

	require.True(t, e.svc.ArchiveHypothesis(e.ctx, c.ID, true, e.actor).OK)
	list := e.svc.GetHypothesesWithRelations(e.ctx)
	require.True(t, list.OK)
	require.Len(t, list.Data, 1)
	assert.Equal(t, p.ID, list.Data[0].ID)
}

func TestDeleteHypothesis_RemovesEverythingAndLogsPerParent(t *testing.T) {
	e := newEnv(t)
	p1 := e.root("P1")
	p2 := e.root("P2")
	x := e.child(p1.ID, "X")
	require.True(t, e.svc.LinkExistingHypothesis(e.ctx, p2.ID, x.ID, e.actor).OK)
	grandchild := e.child(x.ID, "G")

	require.True(t, e.svc.AddEvidenceSimple(e.ctx, x.ID, "survey says yes", e.actor).OK)
	require.True(t, e.svc.AddChallengeSimple(e.ctx, x.ID, "churn is up", e.actor).OK)
	require.True(t, e.svc.AddRefutation(e.ctx, x.ID, mutation.RefutationInput{Type: "ALTERNATIVE", Summary: "seasonality"}, e.actor).OK)
	require.True(t, e.svc.WatchHypothesis(e.ctx, x.ID, hypothesis.User{ID: "u9", Name: "Kai"}).OK)

	res := e.svc.DeleteHypothesis(e.ctx, x.ID, e.actor)
	require.True(t, res.OK, res.Error)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, res.Data.FormerParents)

	q := e.store.Read()
	ev, err := q.ListEvidence(e.ctx, x.ID)
	require.NoError(t, err)
	assert.Empty(t, ev)
	refs, err := q.ListRefutations(e.ctx, x.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)
	edges, err := q.AllEdges(e.ctx)
	require.NoError(t, err)
	for _, ed := range edges {
		assert.NotEqual(t, x.ID, ed.ParentID)
		assert.NotEqual(t, x.ID, ed.ChildID)
	}
	watchers, err := q.AllWatchers(e.ctx)
	require.NoError(t, err)
	assert.Empty(t, watchers[x.ID])
	assert.Empty(t, e.activityTypes(x.ID))

	assert.Equal(t, 1, count(e.activityTypes(p1.ID), activity.HypothesisDeleted))
	assert.Equal(t, 1, count(e.activityTypes(p2.ID), activity.HypothesisDeleted))
	assert.Empty(t, e.parents(grandchild.ID), "former child becomes a root")

	again := e.svc.DeleteHypothesis(e.ctx, x.ID, e.actor)
	assert.Equal(t, "Hypothesis not found", again.Error)
}

func TestGetAncestorIDs(t *testing.T) {
	e := newEnv(t)
	r := e.root("R")
	m := e.child(r.ID, "M")
	l := e.child(m.ID, "L")

	res := e.svc.GetAncestorIDs(e.ctx, l.ID)
	require.True(t, res.OK)
	assert.Equal(t, []string{m.ID, r.ID}, res.Data)

	rootRes := e.svc.GetAncestorIDs(e.ctx, r.ID)
	require.True(t, rootRes.OK)
	assert.Empty(t, rootRes.Data)
}

// ─── Evidence & cascade ──────────────────────────────────────────────────────

func TestAddEvidenceSimple_EndToEndCascade(t *testing.T) {
	e := newEnv(t)
	h1 := e.root("H1")
	assert.Equal(t, 50, h1.Confidence)
	h2 := e.child(h1.ID, "H2")

	res := e.svc.AddEvidenceSimple(e.ctx, h2.ID, "10 of 10 interviewees asked for it", e.actor)
	require.True(t, res.OK, res.Error)

	assert.Equal(t, confidence.Supports, res.Data.Evidence.Direction)
	assert.Equal(t, 5, res.Data.Evidence.Strength)
	assert.Equal(t, []cascade.Change{
		{ID: h2.ID, Old: 50, New: 65},
		{ID: h1.ID, Old: 50, New: 58},
	}, res.Data.Changes)
	assert.Equal(t, 58, e.get(h1.ID).Confidence)
	assert.Contains(t, e.activityTypes(h2.ID), activity.EvidenceAdded)
}

func TestAddEvidenceSimple_DiamondHasNoDuplicateChanges(t *testing.T) {
	e := newEnv(t)
	r := e.root("R")
	p1 := e.child(r.ID, "P1")
	p2 := e.child(r.ID, "P2")
	d := e.child(p1.ID, "D")
	require.True(t, e.svc.LinkExistingHypothesis(e.ctx, p2.ID, d.ID, e.actor).OK)

	res := e.svc.AddEvidenceSimple(e.ctx, d.ID, "strong signal", e.actor)
	require.True(t, res.OK, res.Error)

	seen := map[string]bool{}
	for _, c := range res.Data.Changes {
		assert.False(t, seen[c.ID], "duplicate change for %s", c.ID)
		seen[c.ID] = true
	}
	assert.Len(t, res.Data.Changes, 4)
	assert.Equal(t, d.ID, res.Data.Changes[0].ID)
	assert.Equal(t, r.ID, res.Data.Changes[3].ID)
}

func TestAddEvidenceSimple_ManualOverrideIsSticky(t *testing.T) {
	e := newEnv(t)
	h := e.root("pinned")
	require.True(t, e.svc.UpdateHypothesis(e.ctx, h.ID, mutation.UpdateInput{Statement: "pinned", Confidence: intPtr(80)}).OK)

	e.cls.result = classifier.Classification{Direction: confidence.Refutes, Strength: 5}
	res := e.svc.AddEvidenceSimple(e.ctx, h.ID, "devastating counterexample", e.actor)
	require.True(t, res.OK, res.Error)

	assert.Equal(t, 0, e.cls.calls, "classifier skipped on manual hypotheses")
	assert.Equal(t, confidence.Supports, res.Data.Evidence.Direction)
	assert.Equal(t, 3, res.Data.Evidence.Strength)
	assert.Empty(t, res.Data.Changes)
	assert.Equal(t, 80, e.get(h.ID).Confidence)

	all := e.svc.RecalculateAllConfidences(e.ctx)
	require.True(t, all.OK)
	assert.Equal(t, 80, e.get(h.ID).Confidence, "batch leaves manual values alone")
}

func TestAddChallengeSimple_ForcesRefuting(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")

	e.cls.result = classifier.Classification{Direction: confidence.WeaklySupports, Strength: 4}
	res := e.svc.AddChallengeSimple(e.ctx, h.ID, "competitor already does this", e.actor)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, confidence.Refutes, res.Data.Evidence.Direction)
	assert.Equal(t, 4, res.Data.Evidence.Strength)
	assert.Equal(t, 38, e.get(h.ID).Confidence)

	e.cls.result = classifier.Classification{Direction: confidence.WeaklyRefutes, Strength: 2}
	res = e.svc.AddChallengeSimple(e.ctx, h.ID, "one churned account", e.actor)
	require.True(t, res.OK)
	assert.Equal(t, confidence.WeaklyRefutes, res.Data.Evidence.Direction)
}

func TestAddEvidenceSimple_PassesCompanyContext(t *testing.T) {
	e := newEnv(t)
	h := e.root("Teams will pay for SSO")
	require.True(t, e.svc.SetCompanyContext(e.ctx, "  B2B collaboration suite  ").OK)

	require.True(t, e.svc.AddEvidenceSimple(e.ctx, h.ID, "3 enterprise deals blocked on SSO", e.actor).OK)
	assert.Equal(t, "B2B collaboration suite", e.cls.last.CompanyContext)
	assert.Equal(t, "Teams will pay for SSO", e.cls.last.Statement)
	assert.Equal(t, "3 enterprise deals blocked on SSO", e.cls.last.Evidence)
}

func TestAddEvidenceSimple_SourceAndQuality(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")

	plain := e.svc.AddEvidenceSimple(e.ctx, h.ID, "heard it twice", e.actor)
	require.True(t, plain.OK, plain.Error)
	assert.Nil(t, plain.Data.Evidence.SourceURL)
	assert.Equal(t, hypothesis.DefaultQuality, plain.Data.Evidence.Quality)

	rich := e.svc.AddChallengeSimple(e.ctx, h.ID, "survey says no", e.actor,
		mutation.WithSourceURL("https://example.com/survey"), mutation.WithQuality(9))
	require.True(t, rich.OK, rich.Error)
	require.NotNil(t, rich.Data.Evidence.SourceURL)
	assert.Equal(t, "https://example.com/survey", *rich.Data.Evidence.SourceURL)
	assert.Equal(t, 5, rich.Data.Evidence.Quality, "quality is clamped")
}

func TestAddEvidenceSimple_Validation(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")

	blank := e.svc.AddEvidenceSimple(e.ctx, h.ID, " ", e.actor)
	assert.Equal(t, "Evidence text is required", blank.Error)

	missing := e.svc.AddEvidenceSimple(e.ctx, "missing", "text", e.actor)
	assert.Equal(t, "Hypothesis not found", missing.Error)
}

func TestUpdateAndDeleteEvidence_Cascade(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")
	c := e.child(p.ID, "C")

	added := e.svc.AddEvidenceSimple(e.ctx, c.ID, "good sign", e.actor)
	require.True(t, added.OK)
	evID := added.Data.Evidence.ID

	e.cls.result = classifier.Classification{Direction: confidence.Refutes, Strength: 5}
	upd := e.svc.UpdateEvidence(e.ctx, evID, "actually a bad sign", e.actor)
	require.True(t, upd.OK, upd.Error)
	assert.Equal(t, "actually a bad sign", upd.Data.Evidence.Summary)
	assert.Equal(t, confidence.Refutes, upd.Data.Evidence.Direction)
	assert.Equal(t, 35, e.get(c.ID).Confidence)
	// (50 + 35) / 2 = 42.5
	assert.Equal(t, 43, e.get(p.ID).Confidence)
	assert.Contains(t, e.activityTypes(c.ID), activity.EvidenceUpdated)

	del := e.svc.DeleteEvidence(e.ctx, evID, e.actor)
	require.True(t, del.OK, del.Error)
	assert.Equal(t, []cascade.Change{
		{ID: c.ID, Old: 35, New: 50},
		{ID: p.ID, Old: 43, New: 50},
	}, del.Data.Changes)
	assert.Contains(t, e.activityTypes(c.ID), activity.EvidenceDeleted)

	gone := e.svc.DeleteEvidence(e.ctx, evID, e.actor)
	assert.Equal(t, "Evidence not found", gone.Error)
}

func TestUpdateEvidence_KeepsChallengesRefuting(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")
	e.cls.result = classifier.Classification{Direction: confidence.Refutes, Strength: 3}
	added := e.svc.AddChallengeSimple(e.ctx, h.ID, "counter point", e.actor)
	require.True(t, added.OK)

	e.cls.result = classifier.Classification{Direction: confidence.Supports, Strength: 2}
	upd := e.svc.UpdateEvidence(e.ctx, added.Data.Evidence.ID, "reworded counter point", e.actor)
	require.True(t, upd.OK)
	assert.Equal(t, confidence.Refutes, upd.Data.Evidence.Direction)
	assert.Equal(t, 2, upd.Data.Evidence.Strength)
}

func TestRecalculateConfidence(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")
	require.NoError(t, e.store.Update(e.ctx, func(q *hypothesis.Queries) error {
		_, err := q.InsertEvidence(e.ctx, hypothesis.EvidenceParams{
			HypothesisID: h.ID, Direction: confidence.Supports, Strength: 2, Summary: "raw insert",
		})
		return err
	}))

	res := e.svc.RecalculateConfidence(e.ctx, h.ID, e.actor)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []cascade.Change{{ID: h.ID, Old: 50, New: 56}}, res.Data.Changes)
	assert.Contains(t, e.activityTypes(h.ID), activity.ConfidenceRecalculated)

	missing := e.svc.RecalculateConfidence(e.ctx, "missing", e.actor)
	assert.Equal(t, "Hypothesis not found", missing.Error)
}

// ─── Supplements ─────────────────────────────────────────────────────────────

func TestExecSummaryStaleness(t *testing.T) {
	e := newEnv(t)
	p := e.root("P")

	stale := e.svc.IsExecSummaryStale(e.ctx, p.ID)
	require.True(t, stale.OK)
	assert.True(t, stale.Data)

	require.True(t, e.svc.SetExecSummary(e.ctx, p.ID, "summary").OK)
	fresh := e.svc.IsExecSummaryStale(e.ctx, p.ID)
	require.True(t, fresh.OK)
	assert.False(t, fresh.Data)
}

func TestSetLayout(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")
	require.True(t, e.svc.SetLayout(e.ctx, h.ID, 10.5, -3).OK)

	got := e.get(h.ID)
	require.NotNil(t, got.GraphX)
	assert.Equal(t, 10.5, *got.GraphX)
	assert.Equal(t, -3.0, *got.GraphY)

	missing := e.svc.SetLayout(e.ctx, "missing", 0, 0)
	assert.Equal(t, "Hypothesis not found", missing.Error)
}

func TestWatchAndUnwatch(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")

	require.True(t, e.svc.WatchHypothesis(e.ctx, h.ID, hypothesis.User{ID: "u2", Name: "Noa"}).OK)
	require.True(t, e.svc.WatchHypothesis(e.ctx, h.ID, hypothesis.User{ID: "u2"}).OK)

	list := e.svc.GetHypothesesWithRelations(e.ctx)
	require.True(t, list.OK)
	require.Len(t, list.Data[0].Watchers, 1)
	assert.Equal(t, "Noa", list.Data[0].Watchers[0].Name)

	require.True(t, e.svc.UnwatchHypothesis(e.ctx, h.ID, "u2").OK)
	list = e.svc.GetHypothesesWithRelations(e.ctx)
	assert.Empty(t, list.Data[0].Watchers)

	assert.Equal(t, "User id is required", e.svc.WatchHypothesis(e.ctx, h.ID, hypothesis.User{}).Error)
}

func TestListActivity(t *testing.T) {
	e := newEnv(t)
	h := e.root("H")
	e.child(h.ID, "C")

	res := e.svc.ListActivity(e.ctx, h.ID, 1)
	require.True(t, res.OK)
	require.Len(t, res.Data, 1)
	assert.Equal(t, string(activity.ChildAdded), res.Data[0].Type, "newest first")
	require.NotNil(t, res.Data[0].ActorName)
	assert.Equal(t, "Tester", *res.Data[0].ActorName)
}

func TestPersistenceFailureIsGeneric(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.store.Close())

	res := e.svc.CreateHypothesis(e.ctx, mutation.CreateInput{Statement: "after close"})
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to create hypothesis", res.Error)
}
