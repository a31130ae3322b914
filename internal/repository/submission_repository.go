package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"gopherform/internal/model"
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Initialize creates or updates the submissions and submission_events tables.
// Safe to call on every start.
func (r *SubmissionRepository) Initialize(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&model.Submission{}, &model.SubmissionEvent{}); err != nil {
		return fmt.Errorf("auto migrate submissions failed: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) Create(ctx context.Context, submission *model.Submission) error {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return fmt.Errorf("create submission failed: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) ListAll(ctx context.Context) ([]model.Submission, error) {
	var list []model.Submission
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list submissions failed: %w", err)
	}
	return list, nil
}

// FindImageByID returns the stored image reference of a submission and
// whether the submission exists at all.
func (r *SubmissionRepository) FindImageByID(ctx context.Context, id uint) (*string, bool, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).Select("id", "image").First(&submission, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query submission image failed: %w", err)
	}
	return submission.Image, true, nil
}

func (r *SubmissionRepository) DeleteByID(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&model.Submission{}, id)
	if result.Error != nil {
		return false, fmt.Errorf("delete submission failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Ping checks the underlying connection pool.
func (r *SubmissionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db failed: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
