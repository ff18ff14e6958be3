// Package models defines the core data structures for ParcelPipe.
//
// It includes the shipment record, the session snapshot, the engine reply and
// the API request/response envelopes shared across modules.
package models

import (
	"errors"
	"strings"
)

// Validation constants for API input
const (
	// MaxMessageLength defines the maximum accepted length of one utterance
	MaxMessageLength = 4096
	// MaxMessageIDLength defines the maximum length of a client-supplied message ID
	MaxMessageIDLength = 128
)

// Error variables for better error handling and testability
var (
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
	ErrMessageIDTooLong   = errors.New("message_id exceeds maximum length")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionData = errors.New("invalid session data")
)

// MessageRequest represents the payload for submitting one user turn.
type MessageRequest struct {
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"` // optional client ID for redelivery de-duplication
}

// Validate performs validation on a MessageRequest.
func (r *MessageRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if len(r.MessageID) > MaxMessageIDLength {
		return ErrMessageIDTooLong
	}
	return nil
}

// CreateSessionResult is returned when a session is opened.
type CreateSessionResult struct {
	SessionID string `json:"session_id"`
	Reply     Reply  `json:"reply"`
}

// TurnResult is returned for every processed turn.
type TurnResult struct {
	SessionID string `json:"session_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Reply     Reply  `json:"reply"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// API Response types for consistent JSON responses

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
