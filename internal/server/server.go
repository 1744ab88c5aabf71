// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the store, classifier, metrics
// and Mutation API and injects them into the tools, prompts and resources
// that depend on them. No business logic lives here, only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/hypograph/hypograph/internal/classifier"
	"github.com/hypograph/hypograph/internal/config"
	"github.com/hypograph/hypograph/internal/hypothesis"
	"github.com/hypograph/hypograph/internal/hypotools"
	"github.com/hypograph/hypograph/internal/metrics"
	"github.com/hypograph/hypograph/internal/mutation"
	"github.com/hypograph/hypograph/internal/prompts"
	"github.com/hypograph/hypograph/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds the wired components. MCP is nil for Open.
type App struct {
	MCP     *server.MCPServer
	Service *mutation.Service
	Metrics *metrics.Metrics
}

// New opens the store and builds the MCP server with every tool, prompt
// and resource registered.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	app, cleanup, err := Open(ctx, cfg, logger)
	if err != nil {
		return nil, cleanup, err
	}

	s := server.NewMCPServer(
		"hypograph",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerHypothesisTools(s, app.Service)

	// --- Register prompts ---

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	challengePrompt := prompts.NewChallengePrompt()
	s.AddPrompt(challengePrompt.Definition(), challengePrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(app.Service)
	s.AddResource(resourceHandler.GraphResource(), resourceHandler.HandleGraph)
	s.AddResource(resourceHandler.CompanyContextResource(), resourceHandler.HandleCompanyContext)

	app.MCP = s
	return app, cleanup, nil
}

// Open builds everything except the MCP server. The CLI maintenance
// commands use it directly.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := hypothesis.New(hypothesis.Config{
		DataDir: cfg.DataDir,
		DBPath:  cfg.DBPath,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening hypothesis store: %w", err)
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("hypothesis store close failed", "error", err)
		}
	}

	m := metrics.New()
	svc := mutation.New(store, mutation.Options{
		Classifier: newClassifier(cfg, m, logger),
		Metrics:    m,
		Logger:     logger,
	})

	if cfg.CompanyContext != "" {
		if r := svc.SetCompanyContext(ctx, cfg.CompanyContext); !r.OK {
			cleanup()
			return nil, noop, fmt.Errorf("seeding company context: %s", r.Error)
		}
	}

	return &App{Service: svc, Metrics: m}, cleanup, nil
}

// newClassifier returns the OpenAI classifier when configured, the neutral
// one otherwise.
func newClassifier(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) classifier.Classifier {
	if !cfg.UseOpenAI() {
		if cfg.Classifier.Provider == config.ProviderOpenAI {
			logger.Info("no OpenAI API key configured: evidence will be classified as neutral")
		}
		return classifier.Neutral{}
	}
	c, err := classifier.NewOpenAI(classifier.Config{
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
		BaseURL: cfg.Classifier.BaseURL,
		Timeout: cfg.Classifier.Timeout,
	}, m, logger)
	if err != nil {
		logger.Warn("OpenAI classifier disabled", "error", err)
		return classifier.Neutral{}
	}
	return c
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// registerHypothesisTools registers every hypothesis MCP tool.
func registerHypothesisTools(s *server.MCPServer, svc *mutation.Service) {
	// --- Hypotheses ---
	createTool := hypotools.NewCreateTool(svc)
	s.AddTool(createTool.Definition(), createTool.Handle)

	updateTool := hypotools.NewUpdateTool(svc)
	s.AddTool(updateTool.Definition(), updateTool.Handle)

	getTool := hypotools.NewGetTool(svc)
	s.AddTool(getTool.Definition(), getTool.Handle)

	archiveTool := hypotools.NewArchiveTool(svc)
	s.AddTool(archiveTool.Definition(), archiveTool.Handle)

	deleteTool := hypotools.NewDeleteTool(svc)
	s.AddTool(deleteTool.Definition(), deleteTool.Handle)

	// --- Structure ---
	moveTool := hypotools.NewMoveTool(svc)
	s.AddTool(moveTool.Definition(), moveTool.Handle)

	linkTool := hypotools.NewLinkTool(svc)
	s.AddTool(linkTool.Definition(), linkTool.Handle)

	reorderTool := hypotools.NewReorderTool(svc)
	s.AddTool(reorderTool.Definition(), reorderTool.Handle)

	ancestorsTool := hypotools.NewAncestorsTool(svc)
	s.AddTool(ancestorsTool.Definition(), ancestorsTool.Handle)

	// --- Evidence ---
	addEvidence := hypotools.NewAddEvidenceTool(svc)
	s.AddTool(addEvidence.Definition(), addEvidence.Handle)

	addChallenge := hypotools.NewAddChallengeTool(svc)
	s.AddTool(addChallenge.Definition(), addChallenge.Handle)

	updateEvidence := hypotools.NewUpdateEvidenceTool(svc)
	s.AddTool(updateEvidence.Definition(), updateEvidence.Handle)

	deleteEvidence := hypotools.NewDeleteEvidenceTool(svc)
	s.AddTool(deleteEvidence.Definition(), deleteEvidence.Handle)

	addRefutation := hypotools.NewAddRefutationTool(svc)
	s.AddTool(addRefutation.Definition(), addRefutation.Handle)

	// --- Graph & confidence ---
	graphTool := hypotools.NewGraphTool(svc)
	s.AddTool(graphTool.Definition(), graphTool.Handle)

	recalcTool := hypotools.NewRecalculateTool(svc)
	s.AddTool(recalcTool.Definition(), recalcTool.Handle)

	activityTool := hypotools.NewActivityTool(svc)
	s.AddTool(activityTool.Definition(), activityTool.Handle)

	// --- Canvas, watchers & cached insights ---
	layoutTool := hypotools.NewLayoutTool(svc)
	s.AddTool(layoutTool.Definition(), layoutTool.Handle)

	watchTool := hypotools.NewWatchTool(svc)
	s.AddTool(watchTool.Definition(), watchTool.Handle)

	insightsTool := hypotools.NewInsightsTool(svc)
	s.AddTool(insightsTool.Definition(), insightsTool.Handle)

	companyContext := hypotools.NewCompanyContextTool(svc)
	s.AddTool(companyContext.Definition(), companyContext.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use hypograph effectively.
func serverInstructions() string {
	return `You have access to hypograph, a graph of business hypotheses with evidence-driven confidence.

## Model
- A hypothesis is a falsifiable statement with a confidence from 0 to 100 (new ones start at 50).
- Hypotheses form a directed acyclic graph: a parent depends on its children. A child may have several parents.
- Evidence attached to a hypothesis moves its confidence. The parent's confidence is the plain average of its
  own evidence score and its children's confidence, so adding evidence to a leaf updates every ancestor.
- Setting a confidence by hand (hypo_update with confidence) pins the hypothesis to manual mode for good:
  evidence is still recorded but no longer moves it.

## Workflow
1. Call hypo_graph with outline=true to see what exists before creating anything.
2. Create goals with hypo_create, then break them down with hypo_create parent_id=<goal>.
3. Record what the user learned with hypo_add_evidence (or hypo_add_challenge for counter evidence).
   Pass the user's words as text: direction and strength are inferred.
4. Use hypo_add_refutation for structured doubts that should not move confidence yet.
5. hypo_move replaces all parents; hypo_link adds one. Cycles and duplicate links are refused.

## Rules
- Never invent evidence. Only record what the user reports.
- Confidence is computed: do not set it by hand unless the user explicitly asks to override it.
- Set the company context once with hypo_company_context; it sharpens evidence classification.`
}
