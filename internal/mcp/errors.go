package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/iceinvein/code-intelligence-mcp-server/internal/cierrors"
)

// Standard JSON-RPC error codes, plus a small set of engine-specific ones in
// the -320XX reserved-for-implementation-defined-server-errors band.
const (
	ErrCodeInvalidParams  = -32602
	ErrCodeMethodNotFound = -32601
	ErrCodeInternalError  = -32603

	ErrCodeNotFound         = -32001
	ErrCodeModelUnavailable = -32002
	ErrCodeTimeout          = -32003
	ErrCodeStoreBusy        = -32004
)

// MCPError is the engine's single wire error shape, following the teacher's
// {code, message} MCP error convention.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error into an MCPError, preferring the
// structured *cierrors.CIError Kind when present.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ce *cierrors.CIError
	if errors.As(err, &ce) {
		return mapCIError(ce)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request was canceled"}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
	}
}

func mapCIError(ce *cierrors.CIError) *MCPError {
	switch ce.Kind {
	case cierrors.KindNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: ce.Message}
	case cierrors.KindInvalidArgument:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ce.Message}
	case cierrors.KindModelUnavailable:
		return &MCPError{Code: ErrCodeModelUnavailable, Message: ce.Message}
	case cierrors.KindTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: ce.Message}
	case cierrors.KindStoreBusy:
		return &MCPError{Code: ErrCodeStoreBusy, Message: ce.Message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: ce.Message}
	}
}

// NewInvalidParamsError builds a -32602 error with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError builds a -32601 error for an unknown tool name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}
