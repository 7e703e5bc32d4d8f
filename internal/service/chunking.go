package service

import (
	"strings"

	"github.com/preplab/catprep/internal/domain"
)

// ChunkConfig controls how document text is split for embedding.
// Token counts are approximated by whitespace-delimited word counts.
type ChunkConfig struct {
	MaxWords     int
	OverlapWords int
}

// DefaultChunkConfig provides sane defaults for retrieval chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxWords:     200,
		OverlapWords: 20,
	}
}

// ChunkWords splits text into ordered spans of at most cfg.MaxWords words,
// with consecutive spans sharing exactly cfg.OverlapWords words. The split is
// deterministic: identical input and parameters yield identical boundaries,
// which keeps re-ingestion idempotent.
func ChunkWords(text string, cfg ChunkConfig) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyInput
	}
	if cfg.MaxWords <= 0 || cfg.OverlapWords < 0 || cfg.OverlapWords >= cfg.MaxWords {
		return nil, domain.ErrInvalidChunkSpec
	}

	words := strings.Fields(text)
	if len(words) <= cfg.MaxWords {
		return []string{strings.Join(words, " ")}, nil
	}

	step := cfg.MaxWords - cfg.OverlapWords
	chunks := make([]string, 0, (len(words)+step-1)/step)

	for start := 0; start < len(words); start += step {
		end := start + cfg.MaxWords
		if end > len(words) {
			end = len(words)
		}

		// A trailing span no longer than the overlap is already fully
		// contained in the previous chunk.
		if len(chunks) > 0 && end-start <= cfg.OverlapWords {
			break
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))

		if end == len(words) {
			break
		}
	}

	return chunks, nil
}

// wordCount counts whitespace-delimited words.
func wordCount(text string) int {
	return len(strings.Fields(text))
}
