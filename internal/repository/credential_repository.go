package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/observability"
)

var ErrCredentialNotFound = errors.New("linked credential not found")

type CredentialRepository interface {
	Upsert(cred *domain.LinkedCredential) error
	FindByUserID(userID string) (*domain.LinkedCredential, error)
	DeleteByUserID(userID string) error
}

type GormCredentialRepository struct{ db *gorm.DB }

func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &GormCredentialRepository{db: db}
}

func (r *GormCredentialRepository) Upsert(cred *domain.LinkedCredential) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"provider":   cred.Provider,
			"ciphertext": cred.Ciphertext,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(cred).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "linked_credential", "upsert", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "linked_credential", "upsert", "success")
	return nil
}

func (r *GormCredentialRepository) FindByUserID(userID string) (*domain.LinkedCredential, error) {
	var cred domain.LinkedCredential
	err := r.db.Where("user_id = ?", userID).First(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "linked_credential", "find_by_user", "not_found")
			return nil, ErrCredentialNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "linked_credential", "find_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "linked_credential", "find_by_user", "success")
	return &cred, nil
}

func (r *GormCredentialRepository) DeleteByUserID(userID string) error {
	res := r.db.Where("user_id = ?", userID).Delete(&domain.LinkedCredential{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "linked_credential", "delete", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "linked_credential", "delete", "not_found")
		return ErrCredentialNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "linked_credential", "delete", "success")
	return nil
}
