package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/domain"
)

// AttemptRepository handles persistence of answer attempts.
type AttemptRepository struct {
	db dbtx
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: pool}
}

func NewAttemptRepositoryWithTx(tx pgx.Tx) *AttemptRepository {
	return &AttemptRepository{db: tx}
}

func (r *AttemptRepository) Create(ctx context.Context, a *domain.Attempt) error {
	var testID *string
	if a.TestID != "" {
		testID = &a.TestID
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO attempts (id, question_id, test_id, answer_index, correct, seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.QuestionID, testID, a.AnswerIndex, a.Correct, a.Seconds, a.CreatedAt,
	)
	return err
}

func (r *AttemptRepository) ListByQuestion(ctx context.Context, questionID string) ([]*domain.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_id, test_id, answer_index, correct, seconds, created_at
		 FROM attempts WHERE question_id = $1 ORDER BY created_at ASC`,
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func (r *AttemptRepository) ListAll(ctx context.Context) ([]*domain.Attempt, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_id, test_id, answer_index, correct, seconds, created_at
		 FROM attempts ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// CountAll returns total and correct attempt counts.
func (r *AttemptRepository) CountAll(ctx context.Context) (total int, correct int, err error) {
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE correct) FROM attempts`,
	).Scan(&total, &correct)
	return total, correct, err
}

func scanAttempts(rows pgx.Rows) ([]*domain.Attempt, error) {
	var attempts []*domain.Attempt
	for rows.Next() {
		var a domain.Attempt
		var testID pgtype.Text
		if err := rows.Scan(&a.ID, &a.QuestionID, &testID, &a.AnswerIndex, &a.Correct, &a.Seconds, &a.CreatedAt); err != nil {
			return nil, err
		}
		if testID.Valid {
			a.TestID = testID.String
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
