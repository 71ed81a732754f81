package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kolavi/blog-pipeline/internal/schemas"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

// PostprocessChunk aggregates the four validation engines' results plus
// the final (FAQ-corrected) content.
type PostprocessChunk struct {
	FAQEnforcement seo.FAQEnforcementResult `json:"faqEnforcement"`
	AuditResult    seo.AuditResult          `json:"auditResult"`
	FactCheck      seo.FactCheckResult      `json:"factCheck"`
	SchemaMarkup   seo.SchemaMarkup         `json:"schemaMarkup"`
	FinalContent   string                   `json:"finalContent"`
}

// MarshalPayload serializes a chunk payload and validates it against the
// kind's JSON Schema. Both store implementations call this so malformed
// payloads are rejected at the store boundary regardless of backend.
func MarshalPayload(kind ChunkKind, payload any) ([]byte, error) {
	if !KnownKind(kind) {
		return nil, &ErrUnknownKind{Kind: kind}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	if err := schemas.ValidateChunk(string(kind), raw); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", kind, err)
	}

	return raw, nil
}

func getChunk(ctx context.Context, s Store, id string, kind ChunkKind, out any) (bool, error) {
	raw, err := s.GetChunkOutput(ctx, id, kind)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s chunk for job %s: %w", kind, id, err)
	}
	return true, nil
}

// GetSerp returns the research_serp chunk, or nil when absent.
func GetSerp(ctx context.Context, s Store, id string) (*SerpChunk, error) {
	var chunk SerpChunk
	ok, err := getChunk(ctx, s, id, KindResearchSerp, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}

// GetResearch returns the research chunk, or nil when absent.
func GetResearch(ctx context.Context, s Store, id string) (*ResearchChunk, error) {
	var chunk ResearchChunk
	ok, err := getChunk(ctx, s, id, KindResearch, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}

// GetTopicExtraction returns the cached topic extraction, or nil when absent.
func GetTopicExtraction(ctx context.Context, s Store, id string) (*TopicExtractionChunk, error) {
	var chunk TopicExtractionChunk
	ok, err := getChunk(ctx, s, id, KindTopicExtraction, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}

// GetAnalysis returns the analysis chunk, or nil when absent.
func GetAnalysis(ctx context.Context, s Store, id string) (*AnalysisChunk, error) {
	var chunk AnalysisChunk
	ok, err := getChunk(ctx, s, id, KindAnalysis, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}

// GetDraft returns the draft chunk, or nil when absent.
func GetDraft(ctx context.Context, s Store, id string) (*DraftChunk, error) {
	var chunk DraftChunk
	ok, err := getChunk(ctx, s, id, KindDraft, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}

// GetPostprocess returns the postprocess chunk, or nil when absent.
func GetPostprocess(ctx context.Context, s Store, id string) (*PostprocessChunk, error) {
	var chunk PostprocessChunk
	ok, err := getChunk(ctx, s, id, KindPostprocess, &chunk)
	if err != nil || !ok {
		return nil, err
	}
	return &chunk, nil
}
