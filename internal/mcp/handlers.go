package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/condense/internal/compact"
	"github.com/hpungsan/condense/internal/errors"
	"github.com/hpungsan/condense/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// TrackRequest represents the arguments for session_track.
type TrackRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	File      string `json:"file"`
}

// StatusRequest represents the arguments for session_status.
type StatusRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
}

// CompressDeltaRequest represents the arguments for compress_delta.
type CompressDeltaRequest struct {
	ProjectID string            `json:"project_id"`
	SessionID string            `json:"session_id"`
	Settings  *compact.Settings `json:"settings,omitempty"`
}

// RecompressPartRequest represents the arguments for recompress_part.
type RecompressPartRequest struct {
	ProjectID  string            `json:"project_id"`
	SessionID  string            `json:"session_id"`
	PartNumber int               `json:"part_number"`
	Settings   *compact.Settings `json:"settings,omitempty"`
}

// ListRequest represents the arguments for version_list.
type ListRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id,omitempty"`
}

// ShowRequest represents the arguments for version_show.
type ShowRequest struct {
	ProjectID string `json:"project_id"`
	SessionID string `json:"session_id"`
	VersionID string `json:"version_id,omitempty"`
	File      string `json:"file,omitempty"`
	Format    string `json:"format,omitempty"`
}

// HandleTrack handles the session_track tool call.
func (h *Handlers) HandleTrack(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TrackRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Track(ctx, h.env, ops.TrackInput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
		File:      input.File,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatus handles the session_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Status(ctx, h.env, ops.StatusInput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCompressDelta handles the compress_delta tool call.
func (h *Handlers) HandleCompressDelta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CompressDeltaRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	settings := compact.DefaultUniform()
	if input.Settings != nil {
		settings = *input.Settings
	}

	result, err := ops.CompressDelta(ctx, h.env, ops.CompressDeltaInput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
		Settings:  settings,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRecompressPart handles the recompress_part tool call.
func (h *Handlers) HandleRecompressPart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecompressPartRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	settings := compact.DefaultUniform()
	if input.Settings != nil {
		settings = *input.Settings
	}

	result, err := ops.RecompressPart(ctx, h.env, ops.RecompressPartInput{
		ProjectID:  input.ProjectID,
		SessionID:  input.SessionID,
		PartNumber: input.PartNumber,
		Settings:   settings,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the version_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.env, ops.ListInput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the version_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Show(ctx, h.env, ops.ShowInput{
		ProjectID: input.ProjectID,
		SessionID: input.SessionID,
		VersionID: input.VersionID,
		File:      input.File,
		Format:    ops.ShowFormat(input.Format),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// errorResult converts an operation error into an MCP tool result payload.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if cErr, ok := err.(*errors.CondenseError); ok {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": err.Error(),
				"status":  500,
			},
		}
	}

	result, jsonErr := mcp.NewToolResultJSON(payload)
	if jsonErr != nil {
		return mcp.NewToolResultError(err.Error())
	}
	result.IsError = true
	return result
}

// successResult wraps operation output as a JSON tool result.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
