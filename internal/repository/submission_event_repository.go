package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"gopherform/internal/model"
)

type SubmissionEventRepository struct {
	db *gorm.DB
}

func NewSubmissionEventRepository(db *gorm.DB) *SubmissionEventRepository {
	return &SubmissionEventRepository{db: db}
}

func (r *SubmissionEventRepository) Create(ctx context.Context, event *model.SubmissionEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("create submission event failed: %w", err)
	}
	return nil
}

func (r *SubmissionEventRepository) ListBySubmissionID(ctx context.Context, submissionID uint) ([]model.SubmissionEvent, error) {
	var events []model.SubmissionEvent
	if err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list submission events failed: %w", err)
	}
	return events, nil
}
