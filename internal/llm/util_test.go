package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare json untouched",
			input: `{"title": "Example"}`,
			want:  `{"title": "Example"}`,
		},
		{
			name:  "json fence",
			input: "```json\n{\"title\": \"Example\"}\n```",
			want:  `{"title": "Example"}`,
		},
		{
			name:  "generic fence",
			input: "```\n{\"title\": \"Example\"}\n```",
			want:  `{"title": "Example"}`,
		},
		{
			name:  "fence with language identifier",
			input: "```javascript\n{\"title\": \"Example\"}\n```",
			want:  `{"title": "Example"}`,
		},
		{
			name:  "surrounding whitespace",
			input: "  \n```json\n{\"a\": 1}\n```\n  ",
			want:  `{"a": 1}`,
		},
		{
			name:  "inner backticks survive",
			input: "```json\n{\"code\": \"see `Run` below\"}\n```",
			want:  "{\"code\": \"see `Run` below\"}",
		},
		{
			name:  "array payload",
			input: "```json\n[1, 2, 3]\n```",
			want:  `[1, 2, 3]`,
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}
