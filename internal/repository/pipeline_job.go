package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/preplab/catprep/internal/domain"
)

var ErrPipelineJobNotFound = errors.New("pipeline job not found")

type PipelineJobRepository struct {
	db dbtx
}

func NewPipelineJobRepository(pool *pgxpool.Pool) *PipelineJobRepository {
	return &PipelineJobRepository{db: pool}
}

func NewPipelineJobRepositoryWithTx(tx pgx.Tx) *PipelineJobRepository {
	return &PipelineJobRepository{db: tx}
}

func (r *PipelineJobRepository) Create(ctx context.Context, job *domain.PipelineJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO pipeline_jobs (id, document_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.DocumentID, job.Status, job.Retries, job.Error, job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *PipelineJobRepository) GetByID(ctx context.Context, id string) (*domain.PipelineJob, error) {
	var job domain.PipelineJob
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, document_id, status, retries, error, created_at, processed_at
		 FROM pipeline_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.DocumentID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPipelineJobNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}

// ClaimPending atomically claims pending jobs so concurrent workers never
// process the same document twice.
func (r *PipelineJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.PipelineJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM pipeline_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE pipeline_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE pipeline_jobs.id = cte.id
		 RETURNING pipeline_jobs.id, pipeline_jobs.document_id, pipeline_jobs.status,
		           pipeline_jobs.retries, pipeline_jobs.error, pipeline_jobs.created_at, pipeline_jobs.processed_at`,
		domain.PipelineJobStatusPending, limit, domain.PipelineJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.PipelineJob
	for rows.Next() {
		var job domain.PipelineJob
		var errMsg pgtype.Text
		if err := rows.Scan(&job.ID, &job.DocumentID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}

	return jobs, rows.Err()
}

func (r *PipelineJobRepository) UpdateStatus(ctx context.Context, id string, status domain.PipelineJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.PipelineJobStatusCompleted || status == domain.PipelineJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	var errPtr *string
	if errMsg != "" {
		errPtr = &errMsg
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pipeline_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, errPtr, processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPipelineJobNotFound
	}
	return nil
}

func (r *PipelineJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE pipeline_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPipelineJobNotFound
	}
	return nil
}

func (r *PipelineJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.PipelineJob, error) {
	return r.ClaimPending(ctx, 100)
}

func (r *PipelineJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.PipelineJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}
