package domain

// Citation points at a context chunk that supports part of an answer.
type Citation struct {
	ChunkID    string
	DocumentID string
	Seq        int
}

// Answer is a grounded response to a learner's question. Citations reference
// only chunks that were actually supplied as context. A refusal carries the
// model's refusal text verbatim and no citations.
type Answer struct {
	Text      string
	Citations []Citation
	Refusal   bool
}
