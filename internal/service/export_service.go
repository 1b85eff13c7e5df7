package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/repository"
)

const exportPathPrefix = "exports"

var (
	ErrExportDisabled = errors.New("ledger export is not configured")
	ErrExportFailed   = errors.New("failed to export capture ledger")
)

type exportDocument struct {
	UserID      string                 `json:"user_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Blocks      int64                  `json:"blocks"`
	Items       []domain.CapturedBlock `json:"items"`
}

// ExportService archives a user's capture ledger as a JSON object in
// S3-compatible storage and hands back a presigned download URL.
type ExportService interface {
	Export(ctx context.Context, userID string) (string, error)
}

type MinIOExportService struct {
	client   *minio.Client
	captures repository.CaptureRepository
	bucket   string
	urlTTL   time.Duration
}

func NewMinIOExportService(endpoint, accessKey, secretKey, bucket string, useSSL bool, urlTTL time.Duration, captures repository.CaptureRepository) (*MinIOExportService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	svc := &MinIOExportService{client: client, captures: captures, bucket: bucket, urlTTL: urlTTL}
	if err := svc.ensureBucketExists(context.Background()); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *MinIOExportService) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrExportFailed, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrExportFailed, err)
		}
	}
	return nil
}

func (s *MinIOExportService) Export(ctx context.Context, userID string) (string, error) {
	items, err := s.collectLedger(userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	payload, err := json.Marshal(buildExportDocument(userID, items, time.Now().UTC()))
	if err != nil {
		return "", fmt.Errorf("%w: encode document: %v", ErrExportFailed, err)
	}

	objectKey := exportObjectKey(userID)
	_, err = s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload: %v", ErrExportFailed, err)
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.urlTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: presign: %v", ErrExportFailed, err)
	}
	return presigned.String(), nil
}

func (s *MinIOExportService) collectLedger(userID string) ([]domain.CapturedBlock, error) {
	var items []domain.CapturedBlock
	page := repository.PageRequest{Page: 1, PageSize: repository.MaxPageSize}
	for {
		result, err := s.captures.ListByUser(userID, page)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if page.Page >= result.TotalPages {
			return items, nil
		}
		page.Page++
	}
}

func buildExportDocument(userID string, items []domain.CapturedBlock, generatedAt time.Time) exportDocument {
	if items == nil {
		items = []domain.CapturedBlock{}
	}
	return exportDocument{
		UserID:      userID,
		GeneratedAt: generatedAt,
		Blocks:      int64(len(items)),
		Items:       items,
	}
}

func exportObjectKey(userID string) string {
	return fmt.Sprintf("%s/user-%s/%s.json", exportPathPrefix, userID, uuid.New().String())
}

// disabledExportService stands in when no object store is configured.
type disabledExportService struct{}

func NewDisabledExportService() ExportService { return disabledExportService{} }

func (disabledExportService) Export(context.Context, string) (string, error) {
	return "", ErrExportDisabled
}
