package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid credentials map to 401",
			err:  &ErrInvalidCredentials{},
			want: http.StatusUnauthorized,
		},
		{
			name: "validation errors map to 400",
			err:  &pipeline.ValidationError{Message: "jobId is required"},
			want: http.StatusBadRequest,
		},
		{
			name: "precondition errors map to 422",
			err:  pipeline.NewResearchIncompleteError("job-1"),
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "missing jobs map to 404",
			err:  &jobs.ErrJobNotFound{ID: "job-1"},
			want: http.StatusNotFound,
		},
		{
			name: "duplicate jobs map to 409",
			err:  &jobs.ErrJobExists{ID: "job-1"},
			want: http.StatusConflict,
		},
		{
			name: "stage timeouts map to 504",
			err:  &pipeline.StageTimeoutError{Stage: "draft", Budget: time.Minute},
			want: http.StatusGatewayTimeout,
		},
		{
			name: "pipeline timeouts map to 504",
			err:  &pipeline.PipelineTimeoutError{Deadline: 10 * time.Minute, Stage: "research"},
			want: http.StatusGatewayTimeout,
		},
		{
			name: "wrapped errors unwrap to their status",
			err:  fmt.Errorf("running stage: %w", &pipeline.ValidationError{Message: "bad input"}),
			want: http.StatusBadRequest,
		},
		{
			name: "stage errors carry their cause's status",
			err:  &pipeline.StageError{Stage: "brief", Cause: &jobs.ErrJobNotFound{ID: "job-1"}},
			want: http.StatusNotFound,
		},
		{
			name: "unknown errors map to 500",
			err:  errors.New("pgx: connection refused"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, pipeline.CodeResearchIncomplete, ErrorCode(pipeline.NewResearchIncompleteError("job-1")))
	assert.Equal(t, pipeline.CodeDraftMissing, ErrorCode(&pipeline.PreconditionError{
		Code:    pipeline.CodeDraftMissing,
		Message: "no draft to validate",
	}))
	assert.Empty(t, ErrorCode(&pipeline.ValidationError{Message: "bad input"}))
	assert.Empty(t, ErrorCode(errors.New("boom")))
}

func TestSafeMessage(t *testing.T) {
	// Client-caused errors keep their message.
	assert.Equal(t, "jobId is required", SafeMessage(&pipeline.ValidationError{Message: "jobId is required"}))
	assert.Equal(t, "job not found: job-1", SafeMessage(&jobs.ErrJobNotFound{ID: "job-1"}))

	// Internal details never reach the client.
	assert.Equal(t, "internal server error", SafeMessage(errors.New("pgx: connection refused to 10.0.0.4:5432")))

	// Timeouts are 504s, so the stage and budget stay visible.
	assert.Equal(t, "draft stage timed out after 3m0s", SafeMessage(&pipeline.StageTimeoutError{Stage: "draft", Budget: 3 * time.Minute}))
}
