// Package resources implements MCP resource handlers for the hypothesis
// graph.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (hypograph://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hypograph/hypograph/internal/mutation"
)

// Resource URIs.
const (
	GraphURI          = "hypograph://graph"
	CompanyContextURI = "hypograph://company-context"
)

// Handler serves graph resources from the Mutation API.
type Handler struct {
	svc *mutation.Service
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(svc *mutation.Service) *Handler {
	return &Handler{svc: svc}
}

// GraphResource returns the MCP resource definition for the whole graph.
func (h *Handler) GraphResource() mcp.Resource {
	return mcp.NewResource(
		GraphURI,
		"Hypothesis Graph",
		mcp.WithResourceDescription("Every non-archived hypothesis with evidence, refutations, children, parents and watchers"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleGraph returns the graph as JSON.
func (h *Handler) HandleGraph(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	r := h.svc.GetHypothesesWithRelations(ctx)
	if !r.OK {
		return errorResource(req.Params.URI, r.Error), nil
	}

	data, err := json.MarshalIndent(r.Data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling graph: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// CompanyContextResource returns the MCP resource definition for the
// organization description.
func (h *Handler) CompanyContextResource() mcp.Resource {
	return mcp.NewResource(
		CompanyContextURI,
		"Company Context",
		mcp.WithResourceDescription("Organization description used when classifying evidence"),
		mcp.WithMIMEType("text/plain"),
	)
}

// HandleCompanyContext returns the stored organization description.
func (h *Handler) HandleCompanyContext(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	r := h.svc.CompanyContext(ctx)
	if !r.OK {
		return errorResource(req.Params.URI, r.Error), nil
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     r.Data,
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
