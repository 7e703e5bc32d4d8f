package service

import (
	"context"

	"github.com/preplab/catprep/internal/domain"
	"github.com/preplab/catprep/internal/telemetry"
)

// AttemptStatsRepository aggregates over the attempt log.
type AttemptStatsRepository interface {
	CountAll(ctx context.Context) (total int, correct int, err error)
}

// Stats is the learner's performance summary.
type Stats struct {
	TotalAttempts   int
	CorrectAttempts int
	Overall         float64
	Topics          map[string]domain.TopicStats
	WeakestTopics   []string
}

// StatsService assembles the performance summary from the skill state and
// the attempt log.
type StatsService struct {
	skills    SkillStateRepository
	attempts  AttemptStatsRepository
	weakCount int
}

func NewStatsService(skills SkillStateRepository, attempts AttemptStatsRepository, weakCount int) *StatsService {
	if weakCount <= 0 {
		weakCount = 3
	}
	return &StatsService{
		skills:    skills,
		attempts:  attempts,
		weakCount: weakCount,
	}
}

// Summary returns the current performance summary. A learner with no
// attempts gets the neutral profile and no weak topics.
func (s *StatsService) Summary(ctx context.Context) (*Stats, error) {
	ctx, span := telemetry.StartSpan(ctx, "StatsService.Summary", telemetry.SpanAttributes{Operation: "stats_summary"})
	defer span.End()

	state, err := s.skills.Get(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	total, correct, err := s.attempts.CountAll(ctx)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &Stats{
		TotalAttempts:   total,
		CorrectAttempts: correct,
		Overall:         state.Overall,
		Topics:          state.Topics,
		WeakestTopics:   WeakestTopics(state, s.weakCount),
	}, nil
}
