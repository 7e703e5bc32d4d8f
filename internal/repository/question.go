package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/domain"
)

// QuestionRepository handles persistence of extracted practice questions.
type QuestionRepository struct {
	db dbtx
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: pool}
}

func NewQuestionRepositoryWithTx(tx pgx.Tx) *QuestionRepository {
	return &QuestionRepository{db: tx}
}

func (r *QuestionRepository) Create(ctx context.Context, q *domain.Question) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO questions (id, document_id, topic, text, options, correct_index, explanation, raw_signal, difficulty, estimated_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		q.ID, q.DocumentID, q.Topic, q.Text, q.Options, q.CorrectIndex, q.Explanation,
		q.RawSignal, q.Difficulty, q.EstimatedSeconds, q.CreatedAt,
	)
	return err
}

func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []*domain.Question) error {
	for _, q := range questions {
		if err := r.Create(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	q, err := r.scanOne(r.db.QueryRow(ctx, questionSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Question, error) {
	if len(ids) == 0 {
		return []*domain.Question{}, nil
	}

	rows, err := r.db.Query(ctx, questionSelect+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *QuestionRepository) ListAll(ctx context.Context) ([]*domain.Question, error) {
	rows, err := r.db.Query(ctx, questionSelect+` ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

func (r *QuestionRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Question, error) {
	rows, err := r.db.Query(ctx, questionSelect+` WHERE document_id = $1 ORDER BY created_at ASC, id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRows(rows)
}

const questionSelect = `SELECT id, document_id, topic, text, options, correct_index, explanation, raw_signal, difficulty, estimated_seconds, created_at
	 FROM questions`

func (r *QuestionRepository) scanOne(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	var explanation pgtype.Text
	err := row.Scan(&q.ID, &q.DocumentID, &q.Topic, &q.Text, &q.Options, &q.CorrectIndex,
		&explanation, &q.RawSignal, &q.Difficulty, &q.EstimatedSeconds, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	if explanation.Valid {
		q.Explanation = explanation.String
	}
	return &q, nil
}

func (r *QuestionRepository) scanRows(rows pgx.Rows) ([]*domain.Question, error) {
	var questions []*domain.Question
	for rows.Next() {
		q, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
