package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/domain"
)

// SkillStateRepository persists the learner profile as one row per topic.
// Accuracy and the overall estimate are derived columns of the domain, so
// only the raw counters are stored.
type SkillStateRepository struct {
	db dbtx
}

func NewSkillStateRepository(pool *pgxpool.Pool) *SkillStateRepository {
	return &SkillStateRepository{db: pool}
}

func NewSkillStateRepositoryWithTx(tx pgx.Tx) *SkillStateRepository {
	return &SkillStateRepository{db: tx}
}

// Get loads the profile. An empty table yields a fresh neutral state.
func (r *SkillStateRepository) Get(ctx context.Context) (domain.SkillState, error) {
	rows, err := r.db.Query(ctx,
		`SELECT topic, attempts, correct FROM skill_state ORDER BY topic ASC`,
	)
	if err != nil {
		return domain.SkillState{}, err
	}
	defer rows.Close()

	state := domain.NewSkillState()
	var weighted float64
	var total int
	for rows.Next() {
		var topic string
		var stats domain.TopicStats
		if err := rows.Scan(&topic, &stats.Attempts, &stats.Correct); err != nil {
			return domain.SkillState{}, err
		}
		if stats.Attempts > 0 {
			stats.Accuracy = float64(stats.Correct) / float64(stats.Attempts)
		}
		state.Topics[topic] = stats

		weighted += float64(stats.Attempts) * stats.Accuracy
		total += stats.Attempts
	}
	if err := rows.Err(); err != nil {
		return domain.SkillState{}, err
	}

	if total > 0 {
		state.Overall = weighted / float64(total)
	}
	return state, nil
}

// Save upserts every topic's counters.
func (r *SkillStateRepository) Save(ctx context.Context, state domain.SkillState) error {
	for topic, stats := range state.Topics {
		_, err := r.db.Exec(ctx,
			`INSERT INTO skill_state (topic, attempts, correct)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (topic) DO UPDATE SET attempts = EXCLUDED.attempts, correct = EXCLUDED.correct`,
			topic, stats.Attempts, stats.Correct,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
