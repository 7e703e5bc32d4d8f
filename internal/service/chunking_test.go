package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/preplab/catprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunkWords_EmptyInput(t *testing.T) {
	_, err := ChunkWords("   \n\t ", DefaultChunkConfig())
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestChunkWords_InvalidSpec(t *testing.T) {
	tests := []struct {
		name string
		cfg  ChunkConfig
	}{
		{"zero max", ChunkConfig{MaxWords: 0, OverlapWords: 0}},
		{"negative overlap", ChunkConfig{MaxWords: 10, OverlapWords: -1}},
		{"overlap equals max", ChunkConfig{MaxWords: 10, OverlapWords: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChunkWords("some text here", tt.cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidChunkSpec)
		})
	}
}

func TestChunkWords_ShortTextSingleChunk(t *testing.T) {
	chunks, err := ChunkWords("just a few words", ChunkConfig{MaxWords: 200, OverlapWords: 20})
	require.NoError(t, err)
	assert.Equal(t, []string{"just a few words"}, chunks)
}

func TestChunkWords_BoundsAndOverlap(t *testing.T) {
	cfg := ChunkConfig{MaxWords: 50, OverlapWords: 10}
	chunks, err := ChunkWords(wordsText(200), cfg)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		words := strings.Fields(chunk)
		assert.NotEmpty(t, words, "chunk %d empty", i)
		assert.LessOrEqual(t, len(words), cfg.MaxWords, "chunk %d too long", i)
	}

	// consecutive chunks share exactly OverlapWords words
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		tail := prev[len(prev)-cfg.OverlapWords:]
		head := cur[:cfg.OverlapWords]
		assert.Equal(t, tail, head, "chunks %d/%d overlap mismatch", i-1, i)
	}
}

func TestChunkWords_Deterministic(t *testing.T) {
	text := wordsText(537)
	cfg := ChunkConfig{MaxWords: 80, OverlapWords: 15}

	first, err := ChunkWords(text, cfg)
	require.NoError(t, err)
	second, err := ChunkWords(text, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkWords_CoversAllWords(t *testing.T) {
	cfg := ChunkConfig{MaxWords: 60, OverlapWords: 12}
	total := 333
	chunks, err := ChunkWords(wordsText(total), cfg)
	require.NoError(t, err)

	last := strings.Fields(chunks[len(chunks)-1])
	assert.Equal(t, fmt.Sprintf("w%d", total-1), last[len(last)-1])
}

func TestChunkWords_TwelveChunksOfTwoHundred(t *testing.T) {
	// 200-word chunks with 20-word overlap advance 180 words per chunk;
	// 11*180+200 words fill exactly twelve chunks.
	cfg := ChunkConfig{MaxWords: 200, OverlapWords: 20}
	chunks, err := ChunkWords(wordsText(11*180+200), cfg)
	require.NoError(t, err)
	assert.Len(t, chunks, 12)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(strings.Fields(c)), 200)
	}
}
