// Package apperror defines the structured error that travels from the
// service layer to the transport boundary, plus the assertion primitive
// every service precondition goes through.
package apperror

import "fmt"

// Code is an optional machine-readable error code carried alongside the
// status and message, for clients that need to react to a specific failure
// rather than parse message text.
type Code string

const (
	// CodeInvalidAccessToken tells API clients that the access token they
	// presented was rejected and a refresh should be attempted.
	CodeInvalidAccessToken Code = "InvalidAccessToken"
)

// AppError carries an HTTP-style status classification, a human-readable
// message and an optional machine code. The transport boundary maps it
// verbatim onto the response; nothing else about the failure leaks out.
type AppError struct {
	Status  int
	Message string
	Code    Code
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// New builds an AppError. The code is optional; at most one is used.
func New(status int, message string, code ...Code) *AppError {
	e := &AppError{Status: status, Message: message}
	if len(code) > 0 {
		e.Code = code[0]
	}
	return e
}

// ValidationError reports malformed input shape, keyed by field path.
// It is raised only at the transport boundary; services receive payloads
// that already passed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation error"
}
