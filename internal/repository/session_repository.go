package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/observability"
)

var ErrSessionNotFound = errors.New("robot session not found")

// emptyCommandSlot is the slot document written on registration, matching
// the shape the worker and dashboard poll for.
var emptyCommandSlot = datatypes.JSON(`{"commands":[]}`)

type SessionRepository interface {
	// Upsert registers a worker: creates the session row or resets an
	// existing one to online with a fresh ping and an empty command slot.
	// Reported metrics from a previous run are preserved.
	Upsert(userID string) (*domain.RobotSession, error)
	FindByUserID(userID string) (*domain.RobotSession, error)
	// UpdateStatus overwrites status, metrics and last_ping. Returns
	// ErrSessionNotFound without writing when the session is absent.
	UpdateStatus(userID, status string, metrics datatypes.JSON, pingAt time.Time) error
	// SetCommandSlot replaces the pending-command document wholesale.
	SetCommandSlot(userID string, slot domain.CommandSlot) error
	// MarkStale flips sessions to offline when last_ping is older than
	// cutoff, skipping userIDs in keep. Returns the number of rows changed.
	MarkStale(cutoff time.Time, keep []string) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Upsert(userID string) (*domain.RobotSession, error) {
	now := time.Now().UTC()
	session := domain.RobotSession{
		UserID:   userID,
		Status:   domain.SessionStatusOnline,
		LastPing: now,
		Commands: emptyCommandSlot,
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":     domain.SessionStatusOnline,
			"last_ping":  now,
			"commands":   emptyCommandSlot,
			"updated_at": now,
		}),
	}).Create(&session).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "upsert", "error")
		return nil, err
	}

	var current domain.RobotSession
	if err := r.db.Where("user_id = ?", userID).First(&current).Error; err != nil {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "upsert", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "robot_session", "upsert", "success")
	return &current, nil
}

func (r *GormSessionRepository) FindByUserID(userID string) (*domain.RobotSession, error) {
	var session domain.RobotSession
	err := r.db.Where("user_id = ?", userID).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "robot_session", "find_by_user", "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "find_by_user", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "robot_session", "find_by_user", "success")
	return &session, nil
}

func (r *GormSessionRepository) UpdateStatus(userID, status string, metrics datatypes.JSON, pingAt time.Time) error {
	updates := map[string]any{
		"status":     status,
		"last_ping":  pingAt,
		"updated_at": time.Now().UTC(),
	}
	if metrics != nil {
		updates["metrics"] = metrics
	}
	res := r.db.Model(&domain.RobotSession{}).Where("user_id = ?", userID).Updates(updates)
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "update_status", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "update_status", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "robot_session", "update_status", "success")
	return nil
}

func (r *GormSessionRepository) SetCommandSlot(userID string, slot domain.CommandSlot) error {
	raw, err := json.Marshal(slot)
	if err != nil {
		return err
	}
	res := r.db.Model(&domain.RobotSession{}).Where("user_id = ?", userID).Updates(map[string]any{
		"commands":   datatypes.JSON(raw),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "set_command_slot", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "set_command_slot", "not_found")
		return ErrSessionNotFound
	}
	observability.RecordRepositoryOperation(context.Background(), "robot_session", "set_command_slot", "success")
	return nil
}

func (r *GormSessionRepository) MarkStale(cutoff time.Time, keep []string) (int64, error) {
	q := r.db.Model(&domain.RobotSession{}).
		Where("last_ping < ?", cutoff).
		Where("status <> ?", domain.SessionStatusOffline)
	if len(keep) > 0 {
		q = q.Where("user_id NOT IN ?", keep)
	}
	res := q.Updates(map[string]any{
		"status":     domain.SessionStatusOffline,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "robot_session", "mark_stale", "error")
		return 0, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "robot_session", "mark_stale", "success")
	return res.RowsAffected, nil
}
