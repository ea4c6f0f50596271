package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forumbase/postsearch/internal/indexer/tokenizer"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "splits on whitespace only",
			input: "aligning reads to hg38, bwa-mem fails",
			want:  []string{"aligning", "reads", "hg38,", "bwa-mem", "fails"},
		},
		{
			name:  "lowercases terms",
			input: "RNA-Seq Differential Expression",
			want:  []string{"rna-seq", "differential", "expression"},
		},
		{
			name:  "removes baseline stop words",
			input: "the results of a test",
			want:  []string{"results", "test"},
		},
		{
			name:  "removes forum stop word additions",
			input: "there where who goes",
			want:  []string{"goes"},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
		{
			name:  "whitespace only input",
			input: "  \t\n  ",
			want:  []string{},
		},
		{
			name:  "stop words only",
			input: "the who where",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenizer.Tokenize(tt.input))
		})
	}
}

func TestStopWords(t *testing.T) {
	words := tokenizer.StopWords()
	require.NotEmpty(t, words)

	assert.IsNonDecreasing(t, words)
	for _, extra := range []string{"there", "where", "who"} {
		assert.Contains(t, words, extra)
	}
	assert.Contains(t, words, "the")
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, tokenizer.IsStopWord("the"))
	assert.True(t, tokenizer.IsStopWord("The"))
	assert.True(t, tokenizer.IsStopWord("where"))
	assert.False(t, tokenizer.IsStopWord("genome"))
}
