package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChunk_ValidDraft(t *testing.T) {
	payload := []byte(`{"content":"<p>hello</p>","title":"Hello","slug":"hello","wordCount":1}`)
	err := ValidateChunk("draft", payload)
	assert.NoError(t, err)
}

func TestValidateChunk_MissingRequiredField(t *testing.T) {
	payload := []byte(`{"title":"Hello","slug":"hello","wordCount":1}`)
	err := ValidateChunk("draft", payload)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Errors)
}

func TestValidateChunk_EmptyContentRejected(t *testing.T) {
	payload := []byte(`{"content":"","title":"Hello","slug":"hello","wordCount":0}`)
	err := ValidateChunk("draft", payload)
	assert.Error(t, err)
}

func TestValidateChunk_UnknownKind(t *testing.T) {
	err := ValidateChunk("nonexistent", []byte(`{}`))
	require.Error(t, err)

	var lerr *SchemaLoadError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, "nonexistent", lerr.Kind)
}

func TestValidateChunk_AllKindsHaveSchemas(t *testing.T) {
	kinds := []string{"research_serp", "research", "topic_extraction", "analysis", "draft", "postprocess"}
	schemaSet, err := compile()
	require.NoError(t, err)
	for _, kind := range kinds {
		assert.Contains(t, schemaSet, kind, "missing schema for %s", kind)
	}
}

func TestValidateChunk_SerpResults(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{
			name:    "valid results",
			payload: `{"results":[{"url":"https://a.com","title":"A","position":1,"isArticle":true}]}`,
			wantErr: false,
		},
		{
			name:    "empty results list allowed",
			payload: `{"results":[]}`,
			wantErr: false,
		},
		{
			name:    "result without url rejected",
			payload: `{"results":[{"title":"A","position":1}]}`,
			wantErr: true,
		},
		{
			name:    "missing results rejected",
			payload: `{}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk("research_serp", []byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
