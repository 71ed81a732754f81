package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolavi/blog-pipeline/internal/config"
	"github.com/kolavi/blog-pipeline/internal/jobs"
	"github.com/kolavi/blog-pipeline/internal/pipeline"
	"github.com/kolavi/blog-pipeline/internal/seo"
)

func sampleResult() *pipeline.OneShotResult {
	return &pipeline.OneShotResult{
		JobID: "job-cli-1",
		Article: pipeline.OneShotArticle{
			Title:     "Project Management Software: The Complete Guide",
			Slug:      "project-management-software-guide",
			WordCount: 2100,
		},
		Postprocess: &jobs.PostprocessChunk{
			FinalContent: "<h2>Intro</h2><p>Body.</p>",
			AuditResult:  seo.AuditResult{Score: 88, Publishable: true},
			FactCheck:    seo.FactCheckResult{Verified: true},
		},
	}
}

func TestWriteResult_Stdout(t *testing.T) {
	var stdout, status bytes.Buffer

	err := writeResult(sampleResult(), "", &stdout, &status)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "<h2>Intro</h2>")
	assert.Contains(t, status.String(), "job-cli-1")
	assert.Contains(t, status.String(), "Audit score: 88 (publishable: true)")
	assert.NotContains(t, status.String(), "Outline drift")
}

func TestWriteResult_File(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "article.html")
	var stdout, status bytes.Buffer

	result := sampleResult()
	result.OutlineDrift = []string{"Integrations That Matter"}

	err := writeResult(result, outPath, &stdout, &status)
	require.NoError(t, err)

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, result.Postprocess.FinalContent, string(written))
	assert.Empty(t, stdout.String())
	assert.Contains(t, status.String(), "Outline drift: Integrations That Matter")
}

func TestPipelineConfigFrom(t *testing.T) {
	t.Run("zero config keeps defaults", func(t *testing.T) {
		pc := pipelineConfigFrom(config.Config{})
		defaults := pipeline.DefaultPipelineConfig()
		assert.Equal(t, defaults.PublishScoreCutoff, pc.PublishScoreCutoff)
		assert.Equal(t, defaults.FAQAnswerMaxChars, pc.FAQAnswerMaxChars)
		assert.Equal(t, defaults.MaxHallucinations, pc.MaxHallucinations)
	})

	t.Run("explicit thresholds win", func(t *testing.T) {
		pc := pipelineConfigFrom(config.Config{
			SiteURL:            "https://blog.example.com",
			PublishScoreCutoff: 80,
			FAQAnswerMaxChars:  250,
			MaxHallucinations:  3,
		})
		assert.Equal(t, "https://blog.example.com", pc.SiteURL)
		assert.Equal(t, 80, pc.PublishScoreCutoff)
		assert.Equal(t, 250, pc.FAQAnswerMaxChars)
		assert.Equal(t, 3, pc.MaxHallucinations)
	})
}
