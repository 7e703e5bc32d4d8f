package service

import (
	"math"
	"strings"

	"github.com/preplab/catprep/internal/domain"
)

// DifficultyWeights tune the scorer's weighted sum. The exact numbers are
// policy, not contract; defaults come from config.
type DifficultyWeights struct {
	Length float64
	Option float64
	Topic  float64
	Signal float64
}

// DefaultDifficultyWeights mirror the config defaults.
func DefaultDifficultyWeights() DifficultyWeights {
	return DifficultyWeights{
		Length: 0.25,
		Option: 0.15,
		Topic:  0.25,
		Signal: 0.35,
	}
}

// longQuestionChars is the text length treated as maximally hard.
const longQuestionChars = 500

// topicComplexity is a static per-topic hardness weight in [0,1].
// Unknown topics fall back to a neutral 0.5.
var topicComplexity = map[string]float64{
	"arithmetic":            0.2,
	"percentages":           0.3,
	"simple interest":       0.3,
	"compound interest":     0.45,
	"number systems":        0.5,
	"algebra":               0.6,
	"vocabulary":            0.35,
	"reading comprehension": 0.5,
	"para jumbles":          0.55,
	"logical reasoning":     0.65,
	"data interpretation":   0.7,
	"combinatorics":         0.8,
	"probability":           0.8,
	"geometry":              0.9,
	"general":               0.5,
}

// DifficultyScorer normalizes a question's raw signals into a 1-5 score.
// It is pure: no state, no randomness, same question always scores the same.
type DifficultyScorer struct {
	weights DifficultyWeights
}

func NewDifficultyScorer(weights DifficultyWeights) *DifficultyScorer {
	total := weights.Length + weights.Option + weights.Topic + weights.Signal
	if total <= 0 {
		weights = DefaultDifficultyWeights()
	}
	return &DifficultyScorer{weights: weights}
}

// Score computes the normalized difficulty in [1,5]. Component signals are
// each mapped to [0,1], combined by weighted mean, then bucketed into
// quintiles with ties broken toward the lower (easier) bucket.
func (s *DifficultyScorer) Score(q *domain.Question) int {
	if q == nil {
		return domain.MinDifficulty
	}

	lengthScore := math.Min(float64(len(q.Text))/longQuestionChars, 1)

	optionSpan := float64(domain.MaxOptions - domain.MinOptions)
	optionScore := (float64(len(q.Options)) - domain.MinOptions) / optionSpan
	optionScore = clamp01(optionScore)

	topicScore := 0.5
	if w, ok := topicComplexity[strings.ToLower(strings.TrimSpace(q.Topic))]; ok {
		topicScore = w
	}

	signalScore := clamp01((q.RawSignal - domain.MinDifficulty) / (domain.MaxDifficulty - domain.MinDifficulty))

	w := s.weights
	totalWeight := w.Length + w.Option + w.Topic + w.Signal
	composite := (w.Length*lengthScore + w.Option*optionScore + w.Topic*topicScore + w.Signal*signalScore) / totalWeight

	// Quintile bucketing: a composite landing exactly on a boundary takes
	// the lower bucket.
	bucket := int(math.Ceil(composite * domain.MaxDifficulty))
	if bucket < domain.MinDifficulty {
		bucket = domain.MinDifficulty
	}
	if bucket > domain.MaxDifficulty {
		bucket = domain.MaxDifficulty
	}
	return bucket
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
