package postgres

import (
	"context"
	"fmt"
	"time"

	"wallet-pos-bridge/internal/core/domain"

	"github.com/google/uuid"
)

// SyncJobRepo implements ports.SyncJobRepository.
type SyncJobRepo struct {
	pool Pool
}

// NewSyncJobRepo creates a new SyncJobRepo.
func NewSyncJobRepo(pool Pool) *SyncJobRepo {
	return &SyncJobRepo{pool: pool}
}

// Enqueue adds a job; a second job for the same transaction is ignored.
func (r *SyncJobRepo) Enqueue(ctx context.Context, job *domain.SyncJob) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO sync_jobs (id, transaction_id, status, attempt, next_run_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction_id) DO NOTHING`,
		job.ID, job.TransactionID, string(job.Status), job.Attempt,
		job.NextRunAt, job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue sync job: %w", err)
	}
	return nil
}

// ClaimDue leases due pending jobs. Rows locked by another worker are skipped,
// and a leased job becomes claimable again once the lease runs out.
func (r *SyncJobRepo) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.SyncJob, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE sync_jobs SET locked_until = NOW() + make_interval(secs => $2), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM sync_jobs
			WHERE status = 'PENDING' AND next_run_at <= NOW()
				AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY next_run_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, transaction_id, status, attempt, next_run_at, last_error, created_at, updated_at`,
		limit, lease.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("claim sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.SyncJob
	for rows.Next() {
		var j domain.SyncJob
		var status string
		if err := rows.Scan(
			&j.ID, &j.TransactionID, &status, &j.Attempt,
			&j.NextRunAt, &j.LastError, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sync job: %w", err)
		}
		j.Status = domain.SyncJobStatus(status)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SyncJobRepo) MarkDone(ctx context.Context, id uuid.UUID, attempt int) error {
	return r.finish(ctx, id, domain.SyncJobDone, attempt, nil)
}

func (r *SyncJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempt int, lastErr string) error {
	return r.finish(ctx, id, domain.SyncJobFailed, attempt, &lastErr)
}

// Reschedule releases the lease and pushes the job to nextRunAt.
func (r *SyncJobRepo) Reschedule(ctx context.Context, id uuid.UUID, attempt int, nextRunAt time.Time, lastErr string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sync_jobs SET attempt = $1, next_run_at = $2, last_error = $3, locked_until = NULL, updated_at = NOW()
		WHERE id = $4`,
		attempt, nextRunAt, lastErr, id,
	)
	if err != nil {
		return fmt.Errorf("reschedule sync job: %w", err)
	}
	return nil
}

func (r *SyncJobRepo) finish(ctx context.Context, id uuid.UUID, status domain.SyncJobStatus, attempt int, lastErr *string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sync_jobs SET status = $1, attempt = $2, last_error = $3, locked_until = NULL, updated_at = NOW()
		WHERE id = $4`,
		string(status), attempt, lastErr, id,
	)
	if err != nil {
		return fmt.Errorf("mark sync job %s: %w", status, err)
	}
	return nil
}
