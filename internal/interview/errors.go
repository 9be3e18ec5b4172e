// Package interview owns interview records and enforces legal status transitions.
package interview

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// ErrValidation indicates malformed or out-of-range input. It is rejected
// immediately and never retried.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrStateTransition indicates an illegal status change. It names the current
// status and enumerates the allowed next states.
type ErrStateTransition struct {
	Current   types.InterviewStatus
	Requested types.InterviewStatus
	Allowed   []types.InterviewStatus
}

func (e *ErrStateTransition) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	next := "none (terminal)"
	if len(allowed) > 0 {
		next = strings.Join(allowed, ", ")
	}
	return fmt.Sprintf("invalid transition from %s to %s; allowed next states: %s",
		e.Current, e.Requested, next)
}

// ErrNotFound indicates an unknown interview id.
type ErrNotFound struct {
	ID uuid.UUID
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("interview not found: %s", e.ID)
}
