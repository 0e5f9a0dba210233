package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncJobStatus is the delivery state of an outbound sync job.
type SyncJobStatus string

const (
	SyncJobPending SyncJobStatus = "PENDING"
	SyncJobDone    SyncJobStatus = "DONE"
	SyncJobFailed  SyncJobStatus = "FAILED"
)

// SyncJob queues one local transaction for pushing to the POS.
type SyncJob struct {
	ID            uuid.UUID     `json:"id"`
	TransactionID int64         `json:"transaction_id"`
	Status        SyncJobStatus `json:"status"`
	Attempt       int           `json:"attempt"`
	NextRunAt     time.Time     `json:"next_run_at"`
	LastError     *string       `json:"last_error"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
