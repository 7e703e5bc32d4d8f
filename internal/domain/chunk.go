package domain

import "time"

// Chunk is a bounded text span of a document, the unit of embedding and
// retrieval. The embedding vector is owned by the vector index once upserted;
// the chunk references it by its own ID.
type Chunk struct {
	ID         string
	DocumentID string
	Seq        int
	Content    string
	WordCount  int
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}
