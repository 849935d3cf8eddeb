// Package services provides the graph catalog and run sessions behind the
// control API, and the error types the API maps to HTTP statuses.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/storyflow/pkg/document"
	"github.com/dukex/storyflow/pkg/models"
	"github.com/dukex/storyflow/pkg/persistence"
	"github.com/dukex/storyflow/pkg/presenter"
	"github.com/dukex/storyflow/pkg/registry"
	"github.com/dukex/storyflow/pkg/savegame"
	"github.com/dukex/storyflow/pkg/workflow"
)

var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Lookup Errors (404 Not Found).
	ErrGraphNotFound = errors.New("graph not found")
	ErrRunNotFound   = errors.New("run not found")

	// Business Logic Conflicts (409 Conflict).
	ErrGraphExists = errors.New("graph already exists")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, document.ErrInvalidDocument) ||
		errors.Is(err, registry.ErrNodeTypeNotRegistered) ||
		errors.Is(err, registry.ErrInvalidNodeConfig) ||
		errors.Is(err, models.ErrDuplicateNode) ||
		errors.Is(err, models.ErrInvalidConnection) ||
		errors.Is(err, workflow.ErrJumpTargetNotFound) ||
		errors.Is(err, presenter.ErrInvalidChoice) ||
		errors.Is(err, presenter.ErrAmbiguousPrompt) ||
		errors.Is(err, presenter.ErrPromptMismatch)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrGraphNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		persistence.IsSaveNotFound(err)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrGraphExists) ||
		errors.Is(err, workflow.ErrNotRunning) ||
		errors.Is(err, workflow.ErrAlreadyRunning) ||
		errors.Is(err, savegame.ErrNothingToSave) ||
		errors.Is(err, presenter.ErrNoPendingPrompt)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
