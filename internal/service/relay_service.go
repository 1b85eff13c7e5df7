package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/observability"
	"github.com/DavidFlautero/felxeasy/internal/repository"
)

var ErrInvalidStatus = errors.New("invalid session status")

// BlockReport is one captured work unit as reported by a worker.
// CapturedAt is epoch seconds (workers send fractional seconds).
type BlockReport struct {
	BlockID    string          `json:"block_id"`
	Amount     float64         `json:"amount"`
	Location   json.RawMessage `json:"location,omitempty"`
	Schedule   json.RawMessage `json:"schedule,omitempty"`
	CapturedAt float64         `json:"captured_at"`
}

// RelayService is the device session and command relay: session registry,
// single-slot command queue and capture ledger.
type RelayService interface {
	// Register upserts the worker's session: status online, fresh ping,
	// command slot cleared. Idempotent.
	Register(ctx context.Context, userID string) (*domain.RobotSession, error)
	// ReportStatus overwrites the session's status, metrics and ping, then
	// appends any attached blocks to the ledger. The two writes are
	// independent: a ledger failure is logged and does not fail the call.
	ReportStatus(ctx context.Context, userID, status string, metrics json.RawMessage, blocks []BlockReport) error
	// Enqueue replaces the pending command slot, last write wins.
	Enqueue(ctx context.Context, userID, command string, parameters json.RawMessage) error
	// Drain returns the pending command (zero or one element). Absence of
	// session, slot or store is degraded to an empty result: polling
	// never hard-fails.
	Drain(ctx context.Context, userID string) ([]domain.QueuedCommand, error)
	// RecordBlocks appends the reports to the ledger, atomic per call.
	RecordBlocks(ctx context.Context, userID string, reports []BlockReport) error
	Session(ctx context.Context, userID string) (*domain.RobotSession, error)
}

type relayService struct {
	sessions repository.SessionRepository
	captures repository.CaptureRepository
	presence PresenceTracker
	logger   *slog.Logger
}

func NewRelayService(
	sessions repository.SessionRepository,
	captures repository.CaptureRepository,
	presence PresenceTracker,
	logger *slog.Logger,
) RelayService {
	return &relayService{sessions: sessions, captures: captures, presence: presence, logger: logger}
}

func (s *relayService) Register(ctx context.Context, userID string) (*domain.RobotSession, error) {
	session, err := s.sessions.Upsert(userID)
	if err != nil {
		observability.RecordRelayOperation(ctx, "register", "error")
		return nil, fmt.Errorf("register session: %w", err)
	}
	s.touchPresence(ctx, userID)
	observability.RecordRelayOperation(ctx, "register", "success")
	s.logger.Info("worker registered", "user_id", userID)
	return session, nil
}

func (s *relayService) ReportStatus(ctx context.Context, userID, status string, metrics json.RawMessage, blocks []BlockReport) error {
	if !domain.IsValidSessionStatus(status) {
		observability.RecordRelayOperation(ctx, "report_status", "invalid")
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	err := s.sessions.UpdateStatus(userID, status, datatypes.JSON(metrics), time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordRelayOperation(ctx, "report_status", "not_found")
			return err
		}
		observability.RecordRelayOperation(ctx, "report_status", "error")
		return fmt.Errorf("update session status: %w", err)
	}
	s.touchPresence(ctx, userID)

	// Ledger write is independent of the status write. A failed batch is
	// logged, not surfaced: the status portion already succeeded.
	if len(blocks) > 0 {
		if err := s.RecordBlocks(ctx, userID, blocks); err != nil {
			s.logger.Error("recording captured blocks failed", "user_id", userID, "blocks", len(blocks), "error", err)
		}
	}
	observability.RecordRelayOperation(ctx, "report_status", "success")
	return nil
}

func (s *relayService) Enqueue(ctx context.Context, userID, command string, parameters json.RawMessage) error {
	slot := domain.CommandSlot{Commands: []domain.QueuedCommand{{
		Command:    command,
		Parameters: parameters,
		Timestamp:  time.Now().UTC(),
	}}}
	if err := s.sessions.SetCommandSlot(userID, slot); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordRelayOperation(ctx, "enqueue", "not_found")
			return err
		}
		observability.RecordRelayOperation(ctx, "enqueue", "error")
		return fmt.Errorf("set command slot: %w", err)
	}
	observability.RecordRelayOperation(ctx, "enqueue", "success")
	s.logger.Info("command enqueued", "user_id", userID, "command", command)
	return nil
}

func (s *relayService) Drain(ctx context.Context, userID string) ([]domain.QueuedCommand, error) {
	session, err := s.sessions.FindByUserID(userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Warn("drain degraded to empty", "user_id", userID, "error", err)
		}
		observability.RecordRelayOperation(ctx, "drain", "empty")
		return []domain.QueuedCommand{}, nil
	}
	slot, err := session.CommandSlot()
	if err != nil {
		s.logger.Warn("command slot unreadable, draining empty", "user_id", userID, "error", err)
		observability.RecordRelayOperation(ctx, "drain", "empty")
		return []domain.QueuedCommand{}, nil
	}
	observability.RecordRelayOperation(ctx, "drain", "success")
	return slot.Commands, nil
}

func (s *relayService) RecordBlocks(ctx context.Context, userID string, reports []BlockReport) error {
	if len(reports) == 0 {
		observability.RecordRelayOperation(ctx, "record_blocks", "empty")
		return nil
	}
	rows := make([]domain.CapturedBlock, 0, len(reports))
	for _, report := range reports {
		rows = append(rows, domain.CapturedBlock{
			UserID:     userID,
			BlockID:    report.BlockID,
			Amount:     report.Amount,
			Location:   datatypes.JSON(report.Location),
			Schedule:   datatypes.JSON(report.Schedule),
			CapturedAt: epochSecondsToTime(report.CapturedAt),
		})
	}
	if err := s.captures.InsertBatch(rows); err != nil {
		observability.RecordRelayOperation(ctx, "record_blocks", "error")
		return fmt.Errorf("append capture ledger: %w", err)
	}
	observability.RecordRelayOperation(ctx, "record_blocks", "success")
	return nil
}

func (s *relayService) Session(ctx context.Context, userID string) (*domain.RobotSession, error) {
	return s.sessions.FindByUserID(userID)
}

func (s *relayService) touchPresence(ctx context.Context, userID string) {
	if s.presence == nil {
		return
	}
	if err := s.presence.Touch(ctx, userID); err != nil {
		s.logger.Warn("presence touch failed", "user_id", userID, "error", err)
	}
}

// epochSecondsToTime converts a worker-supplied epoch-seconds value to a
// UTC timestamp, keeping millisecond precision (seconds * 1000).
func epochSecondsToTime(seconds float64) time.Time {
	return time.UnixMilli(int64(seconds * 1000)).UTC()
}
