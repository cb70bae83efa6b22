package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fluidasr/internal/models"
)

// JobRepository is the data-access layer for ProcessingJob.
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job, assigning an id and defaults if unset.
func (r *JobRepository) Create(ctx context.Context, job *models.ProcessingJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now()
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO processing_jobs (id, source_id, type, status, priority, progress, retry_count, error, audio_path, result_text, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.SourceID, job.Type, job.Status, job.Priority, job.Progress, job.RetryCount, job.Error,
		job.AudioPath, job.ResultText, job.CreatedAt, job.StartedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetByID fetches a job by id, returning (nil, nil) if not found.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, jobSelectColumns+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

// GetNextQueued returns the highest-priority queued job, oldest first.
func (r *JobRepository) GetNextQueued(ctx context.Context) (*models.ProcessingJob, error) {
	row := r.db.QueryRowContext(ctx, jobSelectColumns+`
		WHERE status = ? ORDER BY priority ASC, created_at ASC LIMIT 1`, models.JobStatusQueued)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get next queued job: %w", err)
	}
	return job, nil
}

// Start marks a job running.
func (r *JobRepository) Start(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, started_at = ? WHERE id = ?`,
		models.JobStatusRunning, now, id)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	return nil
}

// UpdateProgress updates a job's progress percentage.
func (r *JobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE processing_jobs SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}
	return nil
}

// Complete marks a job completed and records its result text.
func (r *JobRepository) Complete(ctx context.Context, id string, resultText string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, progress = 100, result_text = ?, completed_at = ? WHERE id = ?`,
		models.JobStatusCompleted, resultText, now, id)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail marks a job failed, recording errMsg.
func (r *JobRepository) Fail(ctx context.Context, id string, errMsg string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		models.JobStatusFailed, errMsg, now, id)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// Retry requeues a job and bumps its retry count.
func (r *JobRepository) Retry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, retry_count = retry_count + 1, started_at = NULL WHERE id = ?`,
		models.JobStatusQueued, id)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	return nil
}

// ListBySourceID lists jobs for a given source.
func (r *JobRepository) ListBySourceID(ctx context.Context, sourceID string) ([]models.ProcessingJob, error) {
	rows, err := r.db.QueryContext(ctx, jobSelectColumns+` WHERE source_id = ? ORDER BY created_at DESC`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list jobs by source: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListByStatus lists up to limit jobs in a given status.
func (r *JobRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.ProcessingJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, jobSelectColumns+` WHERE status = ? ORDER BY created_at DESC LIMIT ?`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListRecent lists up to limit jobs, newest first.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]models.ProcessingJob, error) {
	if limit == 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, jobSelectColumns+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// Delete removes a job.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM processing_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

// CleanupCompleted deletes completed jobs older than olderThanDays,
// returning the number removed.
func (r *JobRepository) CleanupCompleted(ctx context.Context, olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM processing_jobs WHERE status = ? AND completed_at < ?`,
		models.JobStatusCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup completed jobs: %w", err)
	}
	return res.RowsAffected()
}

// CountByStatus returns a count of jobs per status.
func (r *JobRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM processing_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

const jobSelectColumns = `SELECT id, source_id, type, status, priority, progress, retry_count, error, audio_path, result_text, created_at, started_at, completed_at FROM processing_jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.ProcessingJob, error) {
	var job models.ProcessingJob
	var errMsg, resultText sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&job.ID, &job.SourceID, &job.Type, &job.Status, &job.Priority, &job.Progress,
		&job.RetryCount, &errMsg, &job.AudioPath, &resultText, &job.CreatedAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	job.ResultText = resultText.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]models.ProcessingJob, error) {
	var jobs []models.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
