package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hypograph/hypograph/internal/confidence"
	"github.com/hypograph/hypograph/internal/metrics"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// DefaultTimeout bounds one classification call.
const DefaultTimeout = 15 * time.Second

// Config configures the OpenAI-backed classifier.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for OpenAI compatible gateways
	Timeout time.Duration
}

// OpenAI classifies evidence with a chat completion.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI classifier. An empty API key is an error.
func NewOpenAI(cfg Config, m *metrics.Metrics, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("classifier: OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	logger.Info("classifier: initializing OpenAI client", "model", cfg.Model)

	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		metrics: m,
		logger:  logger,
	}, nil
}

// Classify implements Classifier.
func (o *OpenAI) Classify(ctx context.Context, req Request) Classification {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		reason := "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		return o.fallback(reason, err)
	}
	if len(resp.Choices) == 0 {
		return o.fallback("error", errors.New("no choices returned"))
	}

	c, err := parseResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return o.fallback("parse", err)
	}
	o.logger.Debug("classifier: evidence classified",
		"direction", string(c.Direction), "strength", c.Strength)
	return c
}

func (o *OpenAI) fallback(reason string, err error) Classification {
	o.logger.Warn("classifier: using fallback classification", "reason", reason, "error", err)
	o.metrics.IncClassifierFallback(reason)
	return Fallback()
}

const systemPrompt = `You classify evidence against a product or strategy hypothesis.
Answer with a JSON object only: {"direction": "...", "strength": N, "reasoning": "..."}.
direction is one of SUPPORTS, WEAKLY_SUPPORTS, NEUTRAL, WEAKLY_REFUTES, REFUTES.
strength is an integer from 1 (anecdotal) to 5 (conclusive).
reasoning is one short sentence.`

func buildPrompt(req Request) string {
	var b strings.Builder
	if company := strings.TrimSpace(req.CompanyContext); company != "" {
		b.WriteString("Company context:\n")
		b.WriteString(company)
		b.WriteString("\n\n")
	}
	b.WriteString("Hypothesis:\n")
	b.WriteString(strings.TrimSpace(req.Statement))
	b.WriteString("\n\nEvidence:\n")
	b.WriteString(strings.TrimSpace(req.Evidence))
	return b.String()
}

type rawClassification struct {
	Direction string `json:"direction"`
	Strength  *int   `json:"strength"`
	Reasoning string `json:"reasoning"`
}

// parseResponse accepts a bare JSON object or one wrapped in a markdown
// fence or surrounding prose. A missing strength reads as 3; out of range
// strengths are clamped.
func parseResponse(content string) (Classification, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return Classification{}, fmt.Errorf("no JSON object in response %q", truncate(content, 80))
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Classification{}, fmt.Errorf("decode classification: %w", err)
	}
	dir, err := confidence.ParseDirection(raw.Direction)
	if err != nil {
		return Classification{}, err
	}
	strength := 3
	if raw.Strength != nil {
		strength = confidence.ClampStrength(*raw.Strength)
	}
	return Classification{
		Direction: dir,
		Strength:  strength,
		Reasoning: strings.TrimSpace(raw.Reasoning),
	}, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
