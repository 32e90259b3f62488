package trainer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/sitechat/internal/db"
)

// JobStatus is the lifecycle state of a training job. Completed and
// failed are terminal; a job never leaves a terminal state.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is a persisted record of one training run.
type Job struct {
	ID                  string     `json:"id"`
	Namespace           string     `json:"namespace"`
	Status              JobStatus  `json:"status"`
	URLs                []string   `json:"urls"`
	Error               string     `json:"error,omitempty"`
	DocumentsProcessed  int        `json:"documents_processed"`
	ChunksCreated       int        `json:"chunks_created"`
	EmbeddingsGenerated int        `json:"embeddings_generated"`
	ErrorCount          int        `json:"error_count"`
	CreatedAt           time.Time  `json:"created_at"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

func (j *Job) id() string {
	if j == nil {
		return ""
	}
	return j.ID
}

// JobStore persists training jobs in SQLite.
type JobStore struct {
	db *db.DB
}

// NewJobStore creates a JobStore backed by the given database.
func NewJobStore(database *db.DB) *JobStore {
	return &JobStore{db: database}
}

// Create inserts a new pending job.
func (s *JobStore) Create(ctx context.Context, namespace string, urls []string) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Namespace: namespace,
		Status:    JobPending,
		URLs:      urls,
		CreatedAt: time.Now().UTC(),
	}

	urlsJSON, err := json.Marshal(job.URLs)
	if err != nil {
		return nil, fmt.Errorf("encoding urls: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO training_jobs (id, namespace, status, urls, created_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID, job.Namespace, job.Status, string(urlsJSON), job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting job: %w", err)
	}
	return job, nil
}

// MarkProcessing moves a pending job to processing.
func (s *JobStore) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE training_jobs SET status = ? WHERE id = ? AND status = ?`,
		JobProcessing, id, JobPending)
	if err != nil {
		return fmt.Errorf("updating job %s: %w", id, err)
	}
	return requireUpdated(res, id)
}

// Complete records the result of a finished job. Terminal jobs are
// never reopened.
func (s *JobStore) Complete(ctx context.Context, id string, result *Result) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE training_jobs
		 SET status = ?, documents_processed = ?, chunks_created = ?,
		     embeddings_generated = ?, error_count = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		JobCompleted, result.DocumentsProcessed, result.ChunksCreated,
		result.EmbeddingsGenerated, len(result.Errors), now,
		id, JobPending, JobProcessing)
	if err != nil {
		return fmt.Errorf("completing job %s: %w", id, err)
	}
	return requireUpdated(res, id)
}

// Fail marks a job as failed with the fatal error that stopped it.
func (s *JobStore) Fail(ctx context.Context, id string, cause error) error {
	now := time.Now().UTC()
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE training_jobs SET status = ?, error = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		JobFailed, msg, now, id, JobPending, JobProcessing)
	if err != nil {
		return fmt.Errorf("failing job %s: %w", id, err)
	}
	return requireUpdated(res, id)
}

// Get returns a job by ID, or nil if no such job exists.
func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, namespace, status, urls, error, documents_processed,
		        chunks_created, embeddings_generated, error_count, created_at, completed_at
		 FROM training_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// List returns jobs for a namespace, newest first. A namespace of ""
// lists jobs across all namespaces.
func (s *JobStore) List(ctx context.Context, namespace string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, namespace, status, urls, error, documents_processed,
	                 chunks_created, embeddings_generated, error_count, created_at, completed_at
	          FROM training_jobs`
	args := []any{}
	if namespace != "" {
		query += ` WHERE namespace = ?`
		args = append(args, namespace)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job         Job
		urlsJSON    string
		completedAt sql.NullTime
	)
	err := row.Scan(&job.ID, &job.Namespace, &job.Status, &urlsJSON, &job.Error,
		&job.DocumentsProcessed, &job.ChunksCreated, &job.EmbeddingsGenerated,
		&job.ErrorCount, &job.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(urlsJSON), &job.URLs); err != nil {
		return nil, fmt.Errorf("decoding urls for job %s: %w", job.ID, err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func requireUpdated(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s not found or already finished", id)
	}
	return nil
}

// startJob creates and starts a job when job tracking is enabled.
func (p *Pipeline) startJob(ctx context.Context, namespace string, urls []string) (*Job, error) {
	if p.jobs == nil {
		return nil, nil
	}
	job, err := p.jobs.Create(ctx, namespace, urls)
	if err != nil {
		return nil, fmt.Errorf("creating training job: %w", err)
	}
	if err := p.jobs.MarkProcessing(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("starting training job: %w", err)
	}
	job.Status = JobProcessing
	return job, nil
}

func (p *Pipeline) finishJob(ctx context.Context, job *Job, result *Result) {
	if p.jobs == nil || job == nil {
		return
	}
	_ = p.jobs.Complete(ctx, job.ID, result)
}

func (p *Pipeline) failJob(ctx context.Context, job *Job, cause error) {
	if p.jobs == nil || job == nil {
		return
	}
	_ = p.jobs.Fail(ctx, job.ID, cause)
}
