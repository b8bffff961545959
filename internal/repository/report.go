package repository

import (
	"context"

	"voicenet/internal/models"

	"gorm.io/gorm"
)

// ReportRepository stores abuse reports filed against posts.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	ListByPost(ctx context.Context, postID string) ([]models.Report, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *reportRepository) ListByPost(ctx context.Context, postID string) ([]models.Report, error) {
	var reports []models.Report
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&reports).Error
	return reports, err
}
