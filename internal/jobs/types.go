// Package jobs defines the job and chunk domain model for the blog
// generation pipeline, plus the store contract used to persist them.
package jobs

import (
	"time"
)

// Phase represents the lifecycle phase of a job.
type Phase string

// Job lifecycle phases. Progression is monotonic forward except Failed,
// which is reachable from any active phase.
const (
	PhaseCreated          Phase = "created"
	PhaseWaitingForReview Phase = "waiting_for_review"
	PhaseResearching      Phase = "researching"
	PhaseDrafting         Phase = "drafting"
	PhaseValidating       Phase = "validating"
	PhaseCompleted        Phase = "completed"
	PhaseFailed           Phase = "failed"
)

// ChunkKind identifies the persisted output of one pipeline stage.
type ChunkKind string

// Chunk kinds. TopicExtraction is a cache chunk and is not part of the
// stage dependency chain.
const (
	KindResearchSerp    ChunkKind = "research_serp"
	KindResearch        ChunkKind = "research"
	KindTopicExtraction ChunkKind = "topic_extraction"
	KindAnalysis        ChunkKind = "analysis"
	KindDraft           ChunkKind = "draft"
	KindPostprocess     ChunkKind = "postprocess"
)

// ValidKinds lists every chunk kind the store accepts.
var ValidKinds = []ChunkKind{
	KindResearchSerp,
	KindResearch,
	KindTopicExtraction,
	KindAnalysis,
	KindDraft,
	KindPostprocess,
}

// SearchIntent classifies the search intent behind the target keyword.
type SearchIntent string

// Supported search intents.
const (
	IntentInformational SearchIntent = "informational"
	IntentNavigational  SearchIntent = "navigational"
	IntentCommercial    SearchIntent = "commercial"
	IntentTransactional SearchIntent = "transactional"
)

// ValidIntent reports whether s is one of the supported search intents.
func ValidIntent(s SearchIntent) bool {
	switch s {
	case IntentInformational, IntentNavigational, IntentCommercial, IntentTransactional:
		return true
	}
	return false
}

// PipelineInput is the frozen input of a job, captured at creation time.
type PipelineInput struct {
	PrimaryKeyword      string         `json:"primaryKeyword"`
	SecondaryKeywords   []string       `json:"secondaryKeywords,omitempty"`
	PeopleAlsoSearchFor []string       `json:"peopleAlsoSearchFor,omitempty"`
	Intents             []SearchIntent `json:"intents,omitempty"`
	// WordCountTarget is the resolved word target (0 means derive from
	// competitor averages).
	WordCountTarget int `json:"wordCountTarget,omitempty"`
}

// CompletedChunk records one successfully completed stage.
type CompletedChunk struct {
	Kind        ChunkKind `json:"kind"`
	CompletedAt time.Time `json:"completedAt"`
}

// Job represents one end-to-end article generation run.
type Job struct {
	ID              string           `json:"jobId"`
	Input           PipelineInput    `json:"input"`
	Phase           Phase            `json:"phase"`
	CompletedChunks []CompletedChunk `json:"completedChunks"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// HasChunk reports whether the job has a completion record for kind.
func (j *Job) HasChunk(kind ChunkKind) bool {
	for _, c := range j.CompletedChunks {
		if c.Kind == kind {
			return true
		}
	}
	return false
}

// CompletedKinds returns the kinds of all completed chunks in order.
func (j *Job) CompletedKinds() []ChunkKind {
	kinds := make([]ChunkKind, 0, len(j.CompletedChunks))
	for _, c := range j.CompletedChunks {
		kinds = append(kinds, c.Kind)
	}
	return kinds
}

// SerpResult is one search result for the target keyword.
type SerpResult struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Position  int    `json:"position"`
	Snippet   string `json:"snippet,omitempty"`
	IsArticle bool   `json:"isArticle"`
}

// CompetitorArticle is the fetched full text of one selected SERP result.
type CompetitorArticle struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	WordCount    int    `json:"wordCount"`
	FetchSuccess bool   `json:"fetchSuccess"`
}

// CurrentDataFact is a single recent fact with its source attribution.
type CurrentDataFact struct {
	Fact   string `json:"fact"`
	Source string `json:"source"`
	Date   string `json:"date,omitempty"`
}

// CurrentData holds recent factual context gathered during research.
type CurrentData struct {
	Facts              []CurrentDataFact `json:"facts"`
	RecentDevelopments []string          `json:"recentDevelopments,omitempty"`
	LastUpdated        string            `json:"lastUpdated,omitempty"`
}

// SerpChunk is the payload of the research_serp chunk.
type SerpChunk struct {
	Results []SerpResult `json:"results"`
}

// ResearchChunk is the payload of the research chunk. Competitors holds
// only successfully fetched articles; downstream stages treat research as
// complete when it is non-empty.
type ResearchChunk struct {
	Competitors []CompetitorArticle `json:"competitors"`
	CurrentData *CurrentData        `json:"currentData,omitempty"`
	FetchedAt   time.Time           `json:"fetchedAt"`
}

// Complete reports whether research produced at least one competitor.
func (r *ResearchChunk) Complete() bool {
	return r != nil && len(r.Competitors) > 0
}

// Topic is one content topic extracted from the competitor corpus.
type Topic struct {
	Name       string   `json:"name"`
	Importance string   `json:"importance"` // essential | recommended | differentiator
	KeyTerms   []string `json:"keyTerms,omitempty"`
	Depth      string   `json:"depth,omitempty"`
}

// CompetitorHeadings records the heading structure of one competitor page.
type CompetitorHeadings struct {
	URL string   `json:"url"`
	H2s []string `json:"h2s"`
	H3s []string `json:"h3s,omitempty"`
}

// TopicExtractionChunk caches the competitor topic analysis so that brief
// revisions do not repeat the extraction call.
type TopicExtractionChunk struct {
	Topics             []Topic              `json:"topics"`
	CompetitorHeadings []CompetitorHeadings `json:"competitorHeadings,omitempty"`
	CompetitorAvgWords int                  `json:"competitorAvgWords,omitempty"`
	RecommendedWords   int                  `json:"recommendedWords,omitempty"`
}

// OutlineSection is one planned section of the article outline.
type OutlineSection struct {
	Heading     string   `json:"heading"`
	Level       string   `json:"level"` // h2 | h3
	Topics      []string `json:"topics,omitempty"`
	TargetWords int      `json:"targetWords"`
}

// TitleMetaVariant is one title and meta description pairing, tagged with
// the angle it takes (how-to, listicle, comparison).
type TitleMetaVariant struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	Approach        string `json:"approach"`
}

// Brief holds the synthesized content brief.
type Brief struct {
	TitleCandidates []string `json:"titleCandidates"`
	MetaDescription string   `json:"metaDescription"`
	Slug            string   `json:"slug"`
	TargetWordCount int      `json:"targetWordCount"`
	Entities        []string `json:"entities,omitempty"`
	Topics          []string `json:"topics,omitempty"`
	// TitleMetaVariants are 2-4 alternative title/meta pairings for the
	// editor to choose between.
	TitleMetaVariants []TitleMetaVariant `json:"titleMetaVariants,omitempty"`
}

// AnalysisChunk is the payload of the analysis chunk produced by the
// brief stage.
type AnalysisChunk struct {
	Brief   Brief            `json:"brief"`
	Outline []OutlineSection `json:"outline"`
	Revised bool             `json:"revised,omitempty"`
}

// DraftChunk is the payload of the draft chunk.
type DraftChunk struct {
	Content   string `json:"content"`
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	WordCount int    `json:"wordCount"`
}
