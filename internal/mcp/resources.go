package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/authwatch-mcp/internal/mcp/tools"
)

const resourceScheme = "authwatch://"

// registerResources adds the authwatch:// templates. Sequence numbers come
// from authwatch_list_exchanges or authwatch_find_login.
func (s *Server) registerResources() {
	templates := []struct {
		uri, name, desc string
		priority        float64
		handler         func(context.Context, *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error)
	}{
		{resourceScheme + "request/{seq}", "Recorded Request",
			"A recorded request with masked headers and body.",
			0.6, s.handleResourceRequest},
		{resourceScheme + "response/{seq}", "Recorded Response",
			"A recorded response with masked headers. Use authwatch://body/{request_id} for the body.",
			0.6, s.handleResourceResponse},
		{resourceScheme + "body/{request_id}", "Response Body",
			"Masked response body for a request ID, truncated to RESOURCE_MAX_BODY_BYTES. authwatch_validate_shape already checks JSON structure; read the body only for its values.",
			0.3, s.handleResourceBody},
	}
	for _, t := range templates {
		s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
			URITemplate: t.uri,
			Name:        t.name,
			Description: t.desc,
			MIMEType:    tools.MimeJSON,
			Annotations: &sdkmcp.Annotations{
				Audience: []sdkmcp.Role{"assistant"},
				Priority: t.priority,
			},
		}, t.handler)
	}
}

func (s *Server) handleResourceRequest(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	seq, err := parseSeq(params["seq"])
	if err != nil {
		return nil, err
	}

	rec, ok := s.deps.Observer.Request(seq)
	if !ok {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}

	display := tools.ToDisplayRequest(rec, s.deps.Masker, tools.DisplayOptions{
		IncludeHeaders: true,
		IncludeBody:    true,
		MaxBodyBytes:   s.deps.Config.ResourceMaxBodyBytes,
	})
	return toResourceResult(req.Params.URI, display)
}

func (s *Server) handleResourceResponse(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	seq, err := parseSeq(params["seq"])
	if err != nil {
		return nil, err
	}

	rec, ok := s.deps.Observer.Response(seq)
	if !ok {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}

	display := tools.ToDisplayResponse(rec, s.deps.Masker, tools.DisplayOptions{IncludeHeaders: true})
	return toResourceResult(req.Params.URI, display)
}

func (s *Server) handleResourceBody(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	requestID := params["request_id"]
	body, err := s.deps.Observer.ResponseBody(ctx, requestID)
	if err != nil {
		return nil, tools.WrapSessionError(err)
	}

	content := map[string]any{
		"request_id": requestID,
		"size":       len(body),
		"body":       tools.MaskBody(body, s.deps.Masker, s.deps.Config.ResourceMaxBodyBytes),
	}
	return toResourceResult(req.Params.URI, content)
}

// parseResourceURI extracts parameters from an authwatch:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + resourceScheme)
	}

	path := strings.TrimPrefix(uri, resourceScheme)
	resourceType, id, _ := strings.Cut(path, "/")
	if resourceType == "" {
		return nil, tools.ErrInvalidInput("empty resource path")
	}

	params := make(map[string]string)
	switch resourceType {
	case "request", "response":
		if id == "" {
			return nil, tools.ErrInvalidInput(resourceType + " URI requires a sequence number")
		}
		params["seq"] = id

	case "body":
		if id == "" {
			return nil, tools.ErrInvalidInput("body URI requires a request ID")
		}
		// Request IDs from chromedp contain dots but never slashes.
		params["request_id"] = id

	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", resourceType))
	}

	return params, nil
}

func parseSeq(raw string) (uint32, error) {
	seq, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || seq == 0 {
		return 0, tools.ErrInvalidInput(fmt.Sprintf("invalid sequence number: %q", raw))
	}
	return uint32(seq), nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
