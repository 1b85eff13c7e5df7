package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/observability"
)

// CaptureStats aggregates a user's ledger for the dashboard counters.
type CaptureStats struct {
	Blocks         int64      `json:"blocks"`
	TotalAmount    float64    `json:"total_amount"`
	LastCapturedAt *time.Time `json:"last_captured_at,omitempty"`
}

type CaptureRepository interface {
	// InsertBatch appends the rows atomically: either all rows land or
	// none do. An empty batch is a no-op.
	InsertBatch(blocks []domain.CapturedBlock) error
	ListByUser(userID string, page PageRequest) (PageResult[domain.CapturedBlock], error)
	StatsByUser(userID string) (*CaptureStats, error)
}

type GormCaptureRepository struct{ db *gorm.DB }

func NewCaptureRepository(db *gorm.DB) CaptureRepository {
	return &GormCaptureRepository{db: db}
}

func (r *GormCaptureRepository) InsertBatch(blocks []domain.CapturedBlock) error {
	if len(blocks) == 0 {
		return nil
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&blocks).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "captured_block", "insert_batch", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "captured_block", "insert_batch", "success")
	return nil
}

func (r *GormCaptureRepository) ListByUser(userID string, page PageRequest) (PageResult[domain.CapturedBlock], error) {
	page = normalizePageRequest(page)
	result := PageResult[domain.CapturedBlock]{Page: page.Page, PageSize: page.PageSize}

	base := r.db.Model(&domain.CapturedBlock{}).Where("user_id = ?", userID)
	if err := base.Count(&result.Total).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "captured_block", "list", "error")
		return result, err
	}
	err := base.
		Order("captured_at desc").Order("id desc").
		Offset((page.Page - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&result.Items).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "captured_block", "list", "error")
		return result, err
	}
	result.TotalPages = calcTotalPages(result.Total, page.PageSize)
	observability.RecordRepositoryOperation(context.Background(), "captured_block", "list", "success")
	return result, nil
}

func (r *GormCaptureRepository) StatsByUser(userID string) (*CaptureStats, error) {
	var row struct {
		Blocks         int64
		TotalAmount    float64
		LastCapturedAt *time.Time
	}
	err := r.db.Model(&domain.CapturedBlock{}).
		Select("COUNT(*) AS blocks, COALESCE(SUM(amount), 0) AS total_amount, MAX(captured_at) AS last_captured_at").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "captured_block", "stats", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "captured_block", "stats", "success")
	return &CaptureStats{Blocks: row.Blocks, TotalAmount: row.TotalAmount, LastCapturedAt: row.LastCapturedAt}, nil
}
