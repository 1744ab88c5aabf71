package hypotools

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/classifier"
	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/mutation"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

type fixedClassifier struct {
	c classifier.Classification
}

func (f fixedClassifier) Classify(context.Context, classifier.Request) classifier.Classification {
	return f.c
}

// newTestService creates a mutation.Service over a temp-dir store. The
// classifier always answers SUPPORTS/5.
func newTestService(t *testing.T) *mutation.Service {
	t.Helper()
	store, err := hypothesis.New(hypothesis.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return mutation.New(store, mutation.Options{
		Classifier: fixedClassifier{c: classifier.Classification{Direction: confidence.Supports, Strength: 5, Reasoning: "clear demand"}},
	})
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

func mustToolError(t *testing.T, r *mcp.CallToolResult, err error, want string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error, got: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), want) {
		t.Errorf("error = %q, want it to contain %q", resultText(r), want)
	}
}

func create(t *testing.T, svc *mutation.Service, statement, parentID string) string {
	t.Helper()
	if parentID == "" {
		r := svc.CreateHypothesis(context.Background(), mutation.CreateInput{Statement: statement})
		if !r.OK {
			t.Fatalf("create %q: %s", statement, r.Error)
		}
		return r.Data.ID
	}
	r := svc.CreateChildHypothesisAndEdge(context.Background(), parentID, mutation.CreateInput{Statement: statement})
	if !r.OK {
		t.Fatalf("create child %q: %s", statement, r.Error)
	}
	return r.Data.Hypothesis.ID
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestDefinitions_NamesAndRequired(t *testing.T) {
	svc := newTestService(t)
	cases := []struct {
		def      mcp.Tool
		name     string
		required []string
	}{
		{NewCreateTool(svc).Definition(), "hypo_create", []string{"statement"}},
		{NewUpdateTool(svc).Definition(), "hypo_update", []string{"id"}},
		{NewMoveTool(svc).Definition(), "hypo_move", []string{"id", "parent_id"}},
		{NewLinkTool(svc).Definition(), "hypo_link", []string{"child_id"}},
		{NewAddEvidenceTool(svc).Definition(), "hypo_add_evidence", []string{"hypothesis_id", "text"}},
		{NewAddChallengeTool(svc).Definition(), "hypo_add_challenge", []string{"hypothesis_id", "text"}},
		{NewAddRefutationTool(svc).Definition(), "hypo_add_refutation", []string{"hypothesis_id", "type", "summary"}},
		{NewRecalculateTool(svc).Definition(), "hypo_recalculate", nil},
	}
	for _, tc := range cases {
		if tc.def.Name != tc.name {
			t.Errorf("tool name = %q, want %q", tc.def.Name, tc.name)
		}
		for _, req := range tc.required {
			found := false
			for _, r := range tc.def.InputSchema.Required {
				if r == req {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: %q should be required", tc.name, req)
			}
		}
	}

	props := NewCreateTool(svc).Definition().InputSchema.Properties
	if _, ok := props["actor_name"]; !ok {
		t.Error("hypo_create should accept actor_name")
	}
}

// ─── CreateTool / UpdateTool ─────────────────────────────────────────────────

func TestCreateTool_RootAndChild(t *testing.T) {
	svc := newTestService(t)
	tool := NewCreateTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"statement": "Users want dark mode",
		"tags":      "ux, UX, theme",
	}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, "Created hypothesis") {
		t.Errorf("expected headline, got: %s", text)
	}
	if !strings.Contains(text, `"theme"`) || strings.Contains(text, `"UX"`) {
		t.Errorf("tags not deduplicated: %s", text)
	}

	list := svc.GetHypothesesWithRelations(context.Background())
	parentID := list.Data[0].ID
	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"statement": "Power users toggle it daily",
		"parent_id": parentID,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "under "+parentID) {
		t.Errorf("expected child headline, got: %s", resultText(result))
	}
}

func TestCreateTool_BlankStatement(t *testing.T) {
	svc := newTestService(t)
	result, err := NewCreateTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"statement": "  ",
	}))
	mustToolError(t, result, err, "Statement is required")
}

func TestUpdateTool_PartialEditKeepsStatement(t *testing.T) {
	svc := newTestService(t)
	id := create(t, svc, "Original statement", "")

	result, err := NewUpdateTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"id":         id,
		"confidence": float64(85),
	}))
	mustNotError(t, result, err)

	h := svc.GetHypothesis(context.Background(), id).Data
	if h.Statement != "Original statement" {
		t.Errorf("statement = %q, want unchanged", h.Statement)
	}
	if h.Confidence != 85 || h.ConfidenceMode != hypothesis.ModeManual {
		t.Errorf("confidence = %d/%s, want 85/manual", h.Confidence, h.ConfidenceMode)
	}
}

func TestUpdateTool_UnknownID(t *testing.T) {
	svc := newTestService(t)
	result, err := NewUpdateTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"id": "missing",
	}))
	mustToolError(t, result, err, "Hypothesis not found")
}

// ─── Structure tools ─────────────────────────────────────────────────────────

func TestMoveTool_RejectsCycle(t *testing.T) {
	svc := newTestService(t)
	a := create(t, svc, "A", "")
	b := create(t, svc, "B", a)
	c := create(t, svc, "C", b)

	result, err := NewMoveTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"id":        a,
		"parent_id": c,
	}))
	mustToolError(t, result, err, "circular dependency")
}

func TestLinkTool_DetachWithEmptyParent(t *testing.T) {
	svc := newTestService(t)
	p := create(t, svc, "P", "")
	c := create(t, svc, "C", p)

	result, err := NewLinkTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"child_id": c,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Detached") {
		t.Errorf("expected detach headline, got: %s", resultText(result))
	}

	ancestors := svc.GetAncestorIDs(context.Background(), c)
	if len(ancestors.Data) != 0 {
		t.Errorf("ancestors = %v, want none", ancestors.Data)
	}
}

func TestReorderTool_AcceptsArrayOrString(t *testing.T) {
	svc := newTestService(t)
	p := create(t, svc, "P", "")
	c1 := create(t, svc, "c1", p)
	c2 := create(t, svc, "c2", p)
	tool := NewReorderTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"ordered_ids": c2 + ", " + c1,
		"parent_id":   p,
	}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"ordered_ids": []interface{}{c1, c2},
		"parent_id":   p,
	}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustToolError(t, result, err, "'ordered_ids' is required")
}

func TestAncestorsTool(t *testing.T) {
	svc := newTestService(t)
	r := create(t, svc, "R", "")
	m := create(t, svc, "M", r)
	l := create(t, svc, "L", m)
	tool := NewAncestorsTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": l}))
	mustNotError(t, result, err)
	text := resultText(result)
	if strings.Index(text, m) > strings.Index(text, r) {
		t.Errorf("nearest ancestor should come first: %s", text)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": r}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "is a root") {
		t.Errorf("expected root message, got: %s", resultText(result))
	}
}

// ─── Evidence tools ──────────────────────────────────────────────────────────

func TestAddEvidenceTool_ReportsCascade(t *testing.T) {
	svc := newTestService(t)
	h1 := create(t, svc, "H1", "")
	h2 := create(t, svc, "H2", h1)

	result, err := NewAddEvidenceTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"hypothesis_id": h2,
		"text":          "8 of 10 interviewees asked for it",
		"actor_name":    "Sam",
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	for _, want := range []string{"SUPPORTS", "Reasoning: clear demand", h2 + ": 50 -> 65", h1 + ": 50 -> 58"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in: %s", want, text)
		}
	}
}

func TestAddEvidenceTool_StoresSourceAndQuality(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")

	result, err := NewAddEvidenceTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"hypothesis_id": h,
		"text":          "Churn report shows 12% monthly loss",
		"source_url":    " https://example.com/churn-q3 ",
		"quality":       float64(4),
	}))
	mustNotError(t, result, err)

	text := resultText(result)
	for _, want := range []string{`"source_url": "https://example.com/churn-q3"`, `"quality": 4`} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in: %s", want, text)
		}
	}
}

func TestAddChallengeTool_StoresRefuting(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")

	result, err := NewAddChallengeTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"hypothesis_id": h,
		"text":          "A competitor tried this and failed",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "REFUTES") {
		t.Errorf("challenge should be refuting: %s", resultText(result))
	}
	if !strings.Contains(resultText(result), h+": 50 -> 35") {
		t.Errorf("expected confidence drop: %s", resultText(result))
	}
}

func TestAddEvidenceTool_Validation(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	tool := NewAddEvidenceTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"text": "x"}))
	mustToolError(t, result, err, "'hypothesis_id' is required")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"hypothesis_id": h}))
	mustToolError(t, result, err, "Evidence text is required")
}

func TestAddRefutationTool(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	tool := NewAddRefutationTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"hypothesis_id": h,
		"type":          "CONFOUND",
		"summary":       "Launch coincided with a price cut",
		"proposed_test": "Compare regions without the price cut",
	}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"hypothesis_id": h,
		"summary":       "no type",
	}))
	mustToolError(t, result, err, "Refutation type is required")
}

// ─── Graph tools ─────────────────────────────────────────────────────────────

func TestGraphTool_Outline(t *testing.T) {
	svc := newTestService(t)
	root := create(t, svc, "Retention will rise", "")
	create(t, svc, "Onboarding is the bottleneck", root)

	result, err := NewGraphTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"outline": true,
	}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, "- [50] Retention will rise") {
		t.Errorf("root missing: %s", text)
	}
	if !strings.Contains(text, "  - [50] Onboarding is the bottleneck") {
		t.Errorf("child should be indented: %s", text)
	}
}

func TestGraphTool_EmptyOutline(t *testing.T) {
	svc := newTestService(t)
	result, err := NewGraphTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"outline": true,
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "empty") {
		t.Errorf("expected empty message, got: %s", resultText(result))
	}
}

func TestRecalculateTool_All(t *testing.T) {
	svc := newTestService(t)
	create(t, svc, "A", "")
	create(t, svc, "B", "")

	result, err := NewRecalculateTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Recalculated 2 hypotheses, 0 changed") {
		t.Errorf("unexpected summary: %s", resultText(result))
	}
}

func TestActivityTool(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	create(t, svc, "child", h)

	result, err := NewActivityTool(svc).Handle(context.Background(), makeReq(map[string]interface{}{
		"id": h,
	}))
	mustNotError(t, result, err)
	text := resultText(result)
	if !strings.Contains(text, "CHILD_ADDED") || !strings.Contains(text, "HYPOTHESIS_CREATED") {
		t.Errorf("feed incomplete: %s", text)
	}
	if strings.Index(text, "CHILD_ADDED") > strings.Index(text, "HYPOTHESIS_CREATED") {
		t.Errorf("feed should be newest first: %s", text)
	}
}

func TestLayoutTool_RequiresCoordinates(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	tool := NewLayoutTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": h, "x": float64(1)}))
	mustToolError(t, result, err, "'y' are required")

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": h, "x": float64(1), "y": float64(2)}))
	mustNotError(t, result, err)
}

func TestWatchTool_WatchAndUnwatch(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	tool := NewWatchTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id": h, "user_id": "u1", "user_name": "Ari",
	}))
	mustNotError(t, result, err)

	list := svc.GetHypothesesWithRelations(context.Background())
	if len(list.Data[0].Watchers) != 1 || list.Data[0].Watchers[0].Name != "Ari" {
		t.Errorf("watchers = %+v", list.Data[0].Watchers)
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id": h, "user_id": "u1", "watch": false,
	}))
	mustNotError(t, result, err)
	list = svc.GetHypothesesWithRelations(context.Background())
	if len(list.Data[0].Watchers) != 0 {
		t.Errorf("watchers = %+v, want none", list.Data[0].Watchers)
	}
}

func TestCompanyContextTool_RoundTrip(t *testing.T) {
	svc := newTestService(t)
	tool := NewCompanyContextTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "No company context") {
		t.Errorf("expected empty message, got: %s", resultText(result))
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"text": "Fintech for SMBs"}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "Fintech for SMBs") {
		t.Errorf("context not returned: %s", resultText(result))
	}
}

func TestInsightsTool_Staleness(t *testing.T) {
	svc := newTestService(t)
	h := create(t, svc, "H", "")
	tool := NewInsightsTool(svc)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": h}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "stale") {
		t.Errorf("missing summary should be stale: %s", resultText(result))
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"id": h, "exec_summary": "Looks promising",
	}))
	mustNotError(t, result, err)
	if !strings.Contains(resultText(result), "fresh") {
		t.Errorf("new summary should be fresh: %s", resultText(result))
	}
}
