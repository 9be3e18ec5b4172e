// Package server provides the HTTP REST API for the hiring orchestrator.
package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/hiring-orchestrator/internal/interview"
	"github.com/jonathan/hiring-orchestrator/internal/shortlist"
)

// HTTPStatus maps core error types to HTTP status codes. External-service
// errors never surface here; the core absorbs them before responding.
func HTTPStatus(err error) int {
	var validation *interview.ErrValidation
	var transition *interview.ErrStateTransition
	var notFound *interview.ErrNotFound
	var jobNotFound *shortlist.ErrJobNotFound

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &notFound), errors.As(err, &jobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorType labels an error for metrics grouping.
func ErrorType(err error) string {
	var validation *interview.ErrValidation
	var transition *interview.ErrStateTransition
	var notFound *interview.ErrNotFound
	var jobNotFound *shortlist.ErrJobNotFound

	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &transition):
		return "state_transition"
	case errors.As(err, &notFound), errors.As(err, &jobNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
