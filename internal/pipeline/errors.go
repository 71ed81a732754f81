package pipeline

import (
	"fmt"
	"time"
)

// Precondition error codes surfaced to API clients so the frontend can
// route the user to the stage that still needs to run.
const (
	CodeResearchIncomplete = "ERROR_CODE_RESEARCH_INCOMPLETE"
	CodeAnalysisMissing    = "ERROR_CODE_ANALYSIS_MISSING"
	CodeDraftMissing       = "ERROR_CODE_DRAFT_MISSING"
)

// ValidationError is a client input error detected before any external
// call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// PreconditionError indicates a stage was requested before its upstream
// chunk exists.
type PreconditionError struct {
	Code    string
	Message string
}

func (e *PreconditionError) Error() string {
	return e.Message
}

// NewResearchIncompleteError builds the distinguished precondition error
// for the brief stage.
func NewResearchIncompleteError(jobID string) *PreconditionError {
	return &PreconditionError{
		Code:    CodeResearchIncomplete,
		Message: fmt.Sprintf("research is incomplete for job %s: run the research stage first", jobID),
	}
}

// StageError wraps a stage failure with the stage name after it has been
// recorded on the job.
type StageError struct {
	Stage string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// StageTimeoutError indicates a single stage exhausted its time budget.
type StageTimeoutError struct {
	Stage  string
	Budget time.Duration
	Cause  error
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out after %s", e.Stage, e.Budget)
}

func (e *StageTimeoutError) Unwrap() error {
	return e.Cause
}

// PipelineTimeoutError indicates a one-shot run hit the overall
// wall-clock deadline. No partial result is returned.
type PipelineTimeoutError struct {
	Deadline time.Duration
	Stage    string
}

func (e *PipelineTimeoutError) Error() string {
	return fmt.Sprintf("pipeline timed out after %s during %s", e.Deadline, e.Stage)
}
