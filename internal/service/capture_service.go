package service

import (
	"context"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/repository"
)

// CaptureService serves the dashboard's read side of the ledger.
type CaptureService interface {
	List(ctx context.Context, userID string, page repository.PageRequest) (repository.PageResult[domain.CapturedBlock], error)
	Stats(ctx context.Context, userID string) (*repository.CaptureStats, error)
}

type captureService struct {
	captures repository.CaptureRepository
}

func NewCaptureService(captures repository.CaptureRepository) CaptureService {
	return &captureService{captures: captures}
}

func (s *captureService) List(ctx context.Context, userID string, page repository.PageRequest) (repository.PageResult[domain.CapturedBlock], error) {
	return s.captures.ListByUser(userID, page)
}

func (s *captureService) Stats(ctx context.Context, userID string) (*repository.CaptureStats, error) {
	return s.captures.StatsByUser(userID)
}
