package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/domain"
)

// MockTestRepository handles persistence of mock tests. The answer map and
// the score report are stored as JSONB; their shape belongs to the domain.
type MockTestRepository struct {
	db dbtx
}

func NewMockTestRepository(pool *pgxpool.Pool) *MockTestRepository {
	return &MockTestRepository{db: pool}
}

func NewMockTestRepositoryWithTx(tx pgx.Tx) *MockTestRepository {
	return &MockTestRepository{db: tx}
}

func (r *MockTestRepository) Create(ctx context.Context, t *domain.MockTest) error {
	answers, err := json.Marshal(t.Answers)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO mock_tests (id, question_ids, answers, started_at, submitted_at, report)
		 VALUES ($1, $2, $3, $4, $5, NULL)`,
		t.ID, t.QuestionIDs, answers, t.StartedAt, t.SubmittedAt,
	)
	return err
}

func (r *MockTestRepository) GetByID(ctx context.Context, id string) (*domain.MockTest, error) {
	var t domain.MockTest
	var answers []byte
	var report []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, question_ids, answers, started_at, submitted_at, report
		 FROM mock_tests WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.QuestionIDs, &answers, &t.StartedAt, &t.SubmittedAt, &report)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTestNotFound
		}
		return nil, err
	}

	t.Answers = make(map[string]int)
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &t.Answers); err != nil {
			return nil, err
		}
	}
	if len(report) > 0 {
		t.Report = &domain.ScoreReport{}
		if err := json.Unmarshal(report, t.Report); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *MockTestRepository) Update(ctx context.Context, t *domain.MockTest) error {
	answers, err := json.Marshal(t.Answers)
	if err != nil {
		return err
	}

	var report []byte
	if t.Report != nil {
		report, err = json.Marshal(t.Report)
		if err != nil {
			return err
		}
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE mock_tests SET answers = $1, submitted_at = $2, report = $3 WHERE id = $4`,
		answers, t.SubmittedAt, report, t.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}
	return nil
}

func (r *MockTestRepository) List(ctx context.Context) ([]*domain.MockTest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question_ids, answers, started_at, submitted_at, report
		 FROM mock_tests ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*domain.MockTest
	for rows.Next() {
		var t domain.MockTest
		var answers, report []byte
		if err := rows.Scan(&t.ID, &t.QuestionIDs, &answers, &t.StartedAt, &t.SubmittedAt, &report); err != nil {
			return nil, err
		}
		t.Answers = make(map[string]int)
		if len(answers) > 0 {
			if err := json.Unmarshal(answers, &t.Answers); err != nil {
				return nil, err
			}
		}
		if len(report) > 0 {
			t.Report = &domain.ScoreReport{}
			if err := json.Unmarshal(report, t.Report); err != nil {
				return nil, err
			}
		}
		tests = append(tests, &t)
	}
	return tests, rows.Err()
}
