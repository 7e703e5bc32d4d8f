package service

import (
	"math"
	"math/rand"
	"time"

	"github.com/preplab/catprep/internal/domain"
)

// Session tracks one practice session's served questions. The set is cleared
// simply by starting a new session; a question id is never served twice
// within the same session.
type Session struct {
	ID        string
	StartedAt time.Time
	served    map[string]struct{}
}

func NewSession(id string, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		StartedAt: startedAt,
		served:    make(map[string]struct{}),
	}
}

// Served reports whether the question was already served this session.
func (s *Session) Served(questionID string) bool {
	_, ok := s.served[questionID]
	return ok
}

func (s *Session) markServed(questionID string) {
	s.served[questionID] = struct{}{}
}

// ServedCount returns how many questions have been served this session.
func (s *Session) ServedCount() int {
	return len(s.served)
}

// SelectorConfig tunes adaptive question selection.
type SelectorConfig struct {
	// PolicyWeight is the probability of restricting selection to weak-topic
	// candidates when any exist.
	PolicyWeight float64
	// WeakTopicCount is how many weakest topics the bias targets.
	WeakTopicCount int
}

// DefaultSelectorConfig mirrors the config defaults.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		PolicyWeight:   0.6,
		WeakTopicCount: 3,
	}
}

// AdaptiveSelector picks the next practice question, balancing difficulty
// match against weak-topic reinforcement. Pure difficulty convergence would
// stagnate and pure weak-topic drilling would ignore the learner's level;
// the policy weight trades between the two.
type AdaptiveSelector struct {
	cfg SelectorConfig
	rng *rand.Rand
}

// NewAdaptiveSelector creates a selector. A nil rng gets a time-seeded one;
// tests inject a fixed seed for reproducibility.
func NewAdaptiveSelector(cfg SelectorConfig, rng *rand.Rand) *AdaptiveSelector {
	if cfg.WeakTopicCount <= 0 {
		cfg.WeakTopicCount = DefaultSelectorConfig().WeakTopicCount
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &AdaptiveSelector{cfg: cfg, rng: rng}
}

// TargetDifficulty maps the overall skill estimate onto the 1-5 scale.
func TargetDifficulty(state domain.SkillState) int {
	target := int(math.Round(state.Overall * domain.MaxDifficulty))
	if target < domain.MinDifficulty {
		target = domain.MinDifficulty
	}
	if target > domain.MaxDifficulty {
		target = domain.MaxDifficulty
	}
	return target
}

// SelectNext picks the next question from the pool and marks it served.
// Questions already served this session are excluded; when nothing remains,
// the session is exhausted and ErrNoCandidateAvailable is returned.
func (s *AdaptiveSelector) SelectNext(state domain.SkillState, session *Session, pool []*domain.Question) (*domain.Question, error) {
	remaining := make([]*domain.Question, 0, len(pool))
	for _, q := range pool {
		if q == nil || session.Served(q.ID) {
			continue
		}
		remaining = append(remaining, q)
	}
	if len(remaining) == 0 {
		return nil, domain.ErrNoCandidateAvailable
	}

	candidates := remaining
	if weak := weakTopicSet(state, s.cfg.WeakTopicCount); len(weak) > 0 {
		biased := make([]*domain.Question, 0, len(remaining))
		for _, q := range remaining {
			if _, ok := weak[q.Topic]; ok {
				biased = append(biased, q)
			}
		}
		if len(biased) > 0 && s.rng.Float64() < s.cfg.PolicyWeight {
			candidates = biased
		}
	}

	target := TargetDifficulty(state)

	// Prefer an exact difficulty match, then widen the window one step at a
	// time until the whole scale is covered.
	for window := 0; window < domain.MaxDifficulty; window++ {
		matches := make([]*domain.Question, 0, len(candidates))
		for _, q := range candidates {
			if abs(q.Difficulty-target) <= window {
				matches = append(matches, q)
			}
		}
		if len(matches) > 0 {
			pick := matches[s.rng.Intn(len(matches))]
			session.markServed(pick.ID)
			return pick, nil
		}
	}

	// Candidates exist but carry difficulties outside the scale; serve the
	// closest one rather than fail.
	pick := closestDifficulty(candidates, target)
	session.markServed(pick.ID)
	return pick, nil
}

func weakTopicSet(state domain.SkillState, n int) map[string]struct{} {
	topics := WeakestTopics(state, n)
	if len(topics) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		set[t] = struct{}{}
	}
	return set
}

func closestDifficulty(candidates []*domain.Question, target int) *domain.Question {
	best := candidates[0]
	for _, q := range candidates[1:] {
		if abs(q.Difficulty-target) < abs(best.Difficulty-target) {
			best = q
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
