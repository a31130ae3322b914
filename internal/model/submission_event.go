package model

import "time"

const (
	SubmissionCreated = "created"
	SubmissionDeleted = "deleted"
)

// SubmissionEvent is the audit trail entry written by the event worker.
type SubmissionEvent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Action       string    `gorm:"size:16;not null" json:"action"`
	Image        *string   `gorm:"size:512" json:"image,omitempty"`
	OccurredAt   time.Time `gorm:"not null" json:"occurred_at"`
	CreatedAt    time.Time `json:"created_at"`
}
