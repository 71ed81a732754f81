package pipeline

import "github.com/kolavi/blog-pipeline/internal/jobs"

// Next step names returned by job status projection.
const (
	StepBrief     = "brief"
	StepDraft     = "draft"
	StepValidate  = "validate"
	StepCompleted = "completed"
)

// stageChain is the ordered chunk dependency chain. research_serp and
// topic_extraction sit outside the chain: the first is a review
// checkpoint, the second a cache.
var stageChain = []jobs.ChunkKind{
	jobs.KindResearch,
	jobs.KindAnalysis,
	jobs.KindDraft,
	jobs.KindPostprocess,
}

// stepForMissing names the step that produces each chain chunk.
var stepForMissing = map[jobs.ChunkKind]string{
	jobs.KindAnalysis:    StepBrief,
	jobs.KindDraft:       StepDraft,
	jobs.KindPostprocess: StepValidate,
}

// NextStep derives the next pipeline step from the set of completed
// chunk kinds. An empty string means research has not produced
// competitors yet, so there is nothing actionable downstream.
func NextStep(completed []jobs.ChunkKind) string {
	has := make(map[jobs.ChunkKind]bool, len(completed))
	for _, k := range completed {
		has[k] = true
	}

	if !has[jobs.KindResearch] {
		return ""
	}
	for _, kind := range stageChain[1:] {
		if !has[kind] {
			return stepForMissing[kind]
		}
	}
	return StepCompleted
}
