// Package server provides the HTTP REST API for the blog generation
// pipeline.
package server

import (
	"errors"
	"net/http"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
)

// ErrInvalidCredentials indicates a failed login attempt.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// HTTPStatus maps an error to its HTTP status code. Unknown errors map
// to 500; their details stay out of the response body.
func HTTPStatus(err error) int {
	var (
		invalidCreds    *ErrInvalidCredentials
		validationErr   *pipeline.ValidationError
		preconditionErr *pipeline.PreconditionError
		notFound        *jobs.ErrJobNotFound
		jobExists       *jobs.ErrJobExists
		stageTimeout    *pipeline.StageTimeoutError
		pipelineTimeout *pipeline.PipelineTimeoutError
	)

	switch {
	case errors.As(err, &invalidCreds):
		return http.StatusUnauthorized
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &preconditionErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &jobExists):
		return http.StatusConflict
	case errors.As(err, &stageTimeout), errors.As(err, &pipelineTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the client-facing error code carried by precondition
// errors, or an empty string.
func ErrorCode(err error) string {
	var pe *pipeline.PreconditionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// SafeMessage returns an error message suitable for clients. Internal
// errors are replaced with a generic message.
func SafeMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
