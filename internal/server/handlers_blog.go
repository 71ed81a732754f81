package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
)

var validate = validator.New()

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. On failure it writes the 400 response and returns false.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, &pipeline.ValidationError{Message: "invalid request body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		s.errorResponse(w, &pipeline.ValidationError{Message: extractValidationErrors(err)})
		return false
	}
	return true
}

// researchRequest starts the SERP phase of a new or existing job.
type researchRequest struct {
	JobID               string   `json:"jobId" validate:"required"`
	PrimaryKeyword      string   `json:"primaryKeyword" validate:"required"`
	SecondaryKeywords   []string `json:"secondaryKeywords" validate:"max=5"`
	PeopleAlsoSearchFor []string `json:"peopleAlsoSearchFor" validate:"max=5"`
	Intents             []string `json:"intents"`
	WordCountTarget     int      `json:"wordCountTarget" validate:"omitempty,min=500,max=6000"`
}

func (req *researchRequest) pipelineInput() (jobs.PipelineInput, error) {
	intents, err := pipeline.ParseIntents(req.Intents)
	if err != nil {
		return jobs.PipelineInput{}, err
	}
	return jobs.PipelineInput{
		PrimaryKeyword:      req.PrimaryKeyword,
		SecondaryKeywords:   req.SecondaryKeywords,
		PeopleAlsoSearchFor: req.PeopleAlsoSearchFor,
		Intents:             intents,
		WordCountTarget:     req.WordCountTarget,
	}, nil
}

// handleResearch runs the SERP phase and returns the results for review.
func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	input, err := req.pipelineInput()
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	chunk, err := s.runner.RunSerp(r.Context(), req.JobID, input, nil)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"jobId":       req.JobID,
		"serpResults": chunk.Results,
	})
}

// fetchRequest carries the reviewer's URL selection plus enough client
// state to rebuild a lost job.
type fetchRequest struct {
	JobID        string            `json:"jobId" validate:"required"`
	Input        *researchRequest  `json:"input"`
	SerpResults  []jobs.SerpResult `json:"serpResults"`
	SelectedURLs []string          `json:"selectedUrls" validate:"required,min=1,max=3,dive,url"`
}

// handleResearchFetch streams competitor fetching progress over SSE.
func (s *Server) handleResearchFetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	preq := pipeline.FetchRequest{
		JobID:        req.JobID,
		SerpResults:  req.SerpResults,
		SelectedURLs: req.SelectedURLs,
	}
	if req.Input != nil {
		input, err := req.Input.pipelineInput()
		if err != nil {
			s.errorResponse(w, err)
			return
		}
		preq.Input = &input
	}

	s.streamStage(w, r, func(ctx context.Context, cb pipeline.ProgressCallback) (any, error) {
		chunk, err := s.runner.RunFetch(ctx, preq, cb)
		if err != nil {
			return nil, err
		}
		urls := make([]string, len(chunk.Competitors))
		totalWords := 0
		for i, c := range chunk.Competitors {
			urls[i] = c.URL
			totalWords += c.WordCount
		}
		return map[string]any{
			"researchSummary": fmt.Sprintf("Fetched %d competitor articles (%d words total)", len(urls), totalWords),
			"competitorUrls":  urls,
		}, nil
	})
}

// briefRequest triggers brief synthesis, optionally revising toward a
// new word count target.
type briefRequest struct {
	JobID           string `json:"jobId" validate:"required"`
	Revise          bool   `json:"revise"`
	WordCountTarget int    `json:"wordCountTarget"`
}

// handleBrief streams brief synthesis over SSE.
func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	var req briefRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	s.streamStage(w, r, func(ctx context.Context, cb pipeline.ProgressCallback) (any, error) {
		analysis, err := s.runner.RunBrief(ctx, pipeline.BriefRequest{
			JobID:           req.JobID,
			Revise:          req.Revise,
			WordCountTarget: req.WordCountTarget,
		}, cb)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"brief":   analysis.Brief,
			"outline": analysis.Outline,
		}, nil
	})
}

// draftRequest triggers article drafting with optional overrides.
type draftRequest struct {
	JobID   string                `json:"jobId" validate:"required"`
	Title   string                `json:"title"`
	Outline []jobs.OutlineSection `json:"outline"`
}

// handleDraft streams draft generation over SSE.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	var req draftRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	s.streamStage(w, r, func(ctx context.Context, cb pipeline.ProgressCallback) (any, error) {
		draft, err := s.runner.RunDraft(ctx, pipeline.DraftRequest{
			JobID:           req.JobID,
			TitleOverride:   req.Title,
			OutlineOverride: req.Outline,
		}, cb)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"wordCount": draft.WordCount,
			"draft":     draft,
		}, nil
	})
}

// validateRequest triggers the validation engines.
type validateRequest struct {
	JobID string `json:"jobId" validate:"required"`
}

// handleValidate runs validation synchronously; the engines are
// deterministic and fast enough not to stream.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	chunk, err := s.runner.RunValidate(r.Context(), req.JobID, nil)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, chunk)
}

// humanizeRequest carries the article HTML to rewrite.
type humanizeRequest struct {
	Content string `json:"content" validate:"required"`
}

// handleHumanize runs the humanize pass over finished article HTML and
// returns the rewritten content, or 504 when the pass deadline is hit.
func (s *Server) handleHumanize(w http.ResponseWriter, r *http.Request) {
	var req humanizeRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	content, err := s.runner.RunHumanize(r.Context(), req.Content)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"content": content})
}

// generateRequest is the one-shot generation payload.
type generateRequest struct {
	JobID               string   `json:"jobId"`
	Keywords            string   `json:"keywords" validate:"required"`
	PeopleAlsoSearchFor []string `json:"peopleAlsoSearchFor"`
	Intents             []string `json:"intents"`
	WordCountPreset     string   `json:"wordCountPreset"`
	CustomWordCount     int      `json:"customWordCount"`
}

// handleGenerate runs the whole pipeline back to back and responds with
// the final result, or 504 when the run deadline is hit.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	input, err := pipeline.ParseGenerateInput(pipeline.GenerateInput{
		Keywords:            req.Keywords,
		PeopleAlsoSearchFor: req.PeopleAlsoSearchFor,
		Intents:             req.Intents,
		WordCountPreset:     req.WordCountPreset,
		CustomWordCount:     req.CustomWordCount,
	})
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.New().String()
	}

	result, err := s.runner.RunOneShot(r.Context(), jobID, input, nil)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// jobStatusResponse is the job status projection.
type jobStatusResponse struct {
	JobID             string                `json:"jobId"`
	Phase             jobs.Phase            `json:"phase"`
	Input             jobs.PipelineInput    `json:"input"`
	CompletedChunks   []jobs.CompletedChunk `json:"completedChunks"`
	NextStep          string                `json:"nextStep"`
	ErrorMessage      string                `json:"errorMessage,omitempty"`
	ValidationSummary *validationSummary    `json:"validationSummary,omitempty"`
	SerpResults       []jobs.SerpResult     `json:"serpResults,omitempty"`
}

type validationSummary struct {
	AuditScore        int  `json:"auditScore"`
	Publishable       bool `json:"publishable"`
	FAQPassed         bool `json:"faqPassed"`
	FactCheckVerified bool `json:"factCheckVerified"`
}

// handleJobStatus returns the resumable state of a job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if job == nil {
		s.errorResponse(w, &jobs.ErrJobNotFound{ID: id})
		return
	}

	resp := jobStatusResponse{
		JobID:           job.ID,
		Phase:           job.Phase,
		Input:           job.Input,
		CompletedChunks: job.CompletedChunks,
		NextStep:        pipeline.NextStep(job.CompletedKinds()),
		ErrorMessage:    job.ErrorMessage,
	}

	if job.HasChunk(jobs.KindPostprocess) {
		post, err := jobs.GetPostprocess(r.Context(), s.store, id)
		if err == nil && post != nil {
			resp.ValidationSummary = &validationSummary{
				AuditScore:        post.AuditResult.Score,
				Publishable:       post.AuditResult.Publishable,
				FAQPassed:         post.FAQEnforcement.Passed,
				FactCheckVerified: post.FactCheck.Verified,
			}
		}
	}
	// SERP results ride along while the job waits for URL selection.
	if job.Phase == jobs.PhaseWaitingForReview {
		serp, err := jobs.GetSerp(r.Context(), s.store, id)
		if err == nil && serp != nil {
			resp.SerpResults = serp.Results
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleMetrics returns recent per-stage run statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"stages": s.metrics.Snapshot()})
}

// streamStage runs a stage with a bounded progress sink and drains it
// into SSE events. The stream always ends with a result or error event.
func (s *Server) streamStage(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, cb pipeline.ProgressCallback) (any, error)) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sink := pipeline.NewProgressSink(32)
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		// A panic in the stage must still end the stream with an error
		// event; the outer recovery middleware cannot see this goroutine.
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[panic] stage goroutine: %v\n%s", rec, debug.Stack())
				sink.Close()
				done <- outcome{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		result, runErr := run(r.Context(), sink.Callback())
		sink.Close()
		done <- outcome{result: result, err: runErr}
	}()

	for event := range sink.Events() {
		if writeErr := sse.WriteEvent("progress", event); writeErr != nil {
			log.Printf("[sse] client write failed: %v", writeErr)
		}
	}

	out := <-done
	if out.err != nil {
		sse.WriteError(out.err)
		return
	}
	sse.WriteResult(out.result)
}
