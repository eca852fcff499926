package mcp

import (
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/curator/internal/domain/collection"
	"github.com/rpggio/curator/internal/domain/notification"
)

// Error codes returned in tool results.
const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodePreconditionNotMet = "PRECONDITION_NOT_MET"
	CodeImmutableState     = "IMMUTABLE_STATE"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeDependency         = "DEPENDENCY_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// errActorRequired is returned when no actor can be attributed to a mutation.
var errActorRequired = errors.New("actor required")

// MapError maps domain errors to MCP error codes. The message carries the
// wrapped error text so callers see which field or state was rejected.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, notification.ErrNotFound):
		return &APIError{Code: CodeNotFound, Message: err.Error(), RecoveryHint: "Check the ID with list_collections or list_notifications"}
	case errors.Is(err, collection.ErrInvalidTransition):
		return &APIError{Code: CodeInvalidTransition, Message: err.Error(), RecoveryHint: "Only the next workflow state is reachable"}
	case errors.Is(err, collection.ErrPreconditionNotMet):
		return &APIError{Code: CodePreconditionNotMet, Message: err.Error(), RecoveryHint: "Call get_readiness and complete the unmet items"}
	case errors.Is(err, collection.ErrImmutableState):
		return &APIError{Code: CodeImmutableState, Message: err.Error(), RecoveryHint: "Datasets and terms are frozen once terms are approved"}
	case errors.Is(err, collection.ErrAlreadyExists):
		return &APIError{Code: CodeConflict, Message: err.Error(), RecoveryHint: "Choose another id or omit it to have one generated"}
	case errors.Is(err, collection.ErrValidation), errors.Is(err, notification.ErrValidation):
		return &APIError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, errActorRequired):
		return &APIError{Code: CodeValidation, Message: err.Error(), RecoveryHint: "Pass actor_id or authenticate with a bearer token"}
	case errors.Is(err, collection.ErrDependency), errors.Is(err, notification.ErrDependency):
		return &APIError{Code: CodeDependency, Message: err.Error(), RecoveryHint: "Retry later; no state was changed"}
	default:
		return nil
	}
}

// toolError converts err into a tool result carrying the API error. Errors
// that do not map to a domain code are returned as-is.
func toolError(err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := MapError(err)
	if apiErr == nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		IsError:           true,
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: apiErr.Error()}},
		StructuredContent: apiErr,
	}, nil, nil
}
