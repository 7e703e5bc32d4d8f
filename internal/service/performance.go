package service

import (
	"context"
	"sort"
	"sync"

	"github.com/preplab/catprep/internal/domain"
)

// AttemptRepository persists append-only attempt records.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *domain.Attempt) error
}

// SkillStateRepository persists the single learner's profile.
type SkillStateRepository interface {
	Get(ctx context.Context) (domain.SkillState, error)
	Save(ctx context.Context, state domain.SkillState) error
}

// ApplyAttempt returns the skill state after recording one attempt on the
// given topic. The input state is not mutated; historical attempts never are.
func ApplyAttempt(state domain.SkillState, topic string, correct bool) domain.SkillState {
	next := state.Clone()
	if next.Topics == nil {
		next.Topics = make(map[string]domain.TopicStats)
	}

	stats := next.Topics[topic]
	stats.Attempts++
	if correct {
		stats.Correct++
	}
	stats.Accuracy = float64(stats.Correct) / float64(stats.Attempts)
	next.Topics[topic] = stats

	// Overall estimate: attempt-count-weighted average of topic accuracies.
	var weighted float64
	var total int
	for _, s := range next.Topics {
		weighted += float64(s.Attempts) * s.Accuracy
		total += s.Attempts
	}
	if total > 0 {
		next.Overall = weighted / float64(total)
	}

	return next
}

// WeakestTopics returns up to n topic labels sorted ascending by accuracy,
// ties broken by lowest attempt count (less signal first), then by name so
// the order is stable.
func WeakestTopics(state domain.SkillState, n int) []string {
	if n <= 0 || len(state.Topics) == 0 {
		return nil
	}

	topics := make([]string, 0, len(state.Topics))
	for topic := range state.Topics {
		topics = append(topics, topic)
	}

	sort.Slice(topics, func(i, j int) bool {
		a, b := state.Topics[topics[i]], state.Topics[topics[j]]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy < b.Accuracy
		}
		if a.Attempts != b.Attempts {
			return a.Attempts < b.Attempts
		}
		return topics[i] < topics[j]
	})

	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}

// Tracker applies attempts to the learner profile. Updates are serialized
// under a single mutex so concurrent requests cannot interleave the
// read-modify-write and lose attempts.
type Tracker struct {
	attempts AttemptRepository
	skills   SkillStateRepository

	mu sync.Mutex
}

func NewTracker(attempts AttemptRepository, skills SkillStateRepository) *Tracker {
	return &Tracker{
		attempts: attempts,
		skills:   skills,
	}
}

// Record persists the attempt and atomically folds it into the skill state,
// returning the updated state.
func (t *Tracker) Record(ctx context.Context, topic string, attempt *domain.Attempt) (domain.SkillState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.attempts.Create(ctx, attempt); err != nil {
		return domain.SkillState{}, err
	}

	state, err := t.skills.Get(ctx)
	if err != nil {
		return domain.SkillState{}, err
	}

	updated := ApplyAttempt(state, topic, attempt.Correct)
	if err := t.skills.Save(ctx, updated); err != nil {
		return domain.SkillState{}, err
	}

	return updated, nil
}
