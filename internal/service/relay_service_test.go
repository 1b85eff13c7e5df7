package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/repository"
)

type stubSessionRepository struct {
	upsertFn         func(userID string) (*domain.RobotSession, error)
	findByUserIDFn   func(userID string) (*domain.RobotSession, error)
	updateStatusFn   func(userID, status string, metrics datatypes.JSON, pingAt time.Time) error
	setCommandSlotFn func(userID string, slot domain.CommandSlot) error
	markStaleFn      func(cutoff time.Time, keep []string) (int64, error)
}

func (s *stubSessionRepository) Upsert(userID string) (*domain.RobotSession, error) {
	if s.upsertFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.upsertFn(userID)
}

func (s *stubSessionRepository) FindByUserID(userID string) (*domain.RobotSession, error) {
	if s.findByUserIDFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.findByUserIDFn(userID)
}

func (s *stubSessionRepository) UpdateStatus(userID, status string, metrics datatypes.JSON, pingAt time.Time) error {
	if s.updateStatusFn == nil {
		return errors.New("not implemented")
	}
	return s.updateStatusFn(userID, status, metrics, pingAt)
}

func (s *stubSessionRepository) SetCommandSlot(userID string, slot domain.CommandSlot) error {
	if s.setCommandSlotFn == nil {
		return errors.New("not implemented")
	}
	return s.setCommandSlotFn(userID, slot)
}

func (s *stubSessionRepository) MarkStale(cutoff time.Time, keep []string) (int64, error) {
	if s.markStaleFn == nil {
		return 0, errors.New("not implemented")
	}
	return s.markStaleFn(cutoff, keep)
}

type stubCaptureRepository struct {
	insertBatchFn func(blocks []domain.CapturedBlock) error
	listByUserFn  func(userID string, page repository.PageRequest) (repository.PageResult[domain.CapturedBlock], error)
	statsByUserFn func(userID string) (*repository.CaptureStats, error)
}

func (s *stubCaptureRepository) InsertBatch(blocks []domain.CapturedBlock) error {
	if s.insertBatchFn == nil {
		return errors.New("not implemented")
	}
	return s.insertBatchFn(blocks)
}

func (s *stubCaptureRepository) ListByUser(userID string, page repository.PageRequest) (repository.PageResult[domain.CapturedBlock], error) {
	if s.listByUserFn == nil {
		return repository.PageResult[domain.CapturedBlock]{}, errors.New("not implemented")
	}
	return s.listByUserFn(userID, page)
}

func (s *stubCaptureRepository) StatsByUser(userID string) (*repository.CaptureStats, error) {
	if s.statsByUserFn == nil {
		return nil, errors.New("not implemented")
	}
	return s.statsByUserFn(userID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegisterReturnsSession(t *testing.T) {
	sessions := &stubSessionRepository{
		upsertFn: func(userID string) (*domain.RobotSession, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return &domain.RobotSession{UserID: "u1", Status: domain.SessionStatusOnline}, nil
		},
	}
	svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())

	session, err := svc.Register(context.Background(), "u1")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.Status != domain.SessionStatusOnline {
		t.Fatalf("expected online, got %q", session.Status)
	}
}

func TestReportStatusInvalidStatus(t *testing.T) {
	svc := NewRelayService(&stubSessionRepository{}, &stubCaptureRepository{}, nil, testLogger())

	err := svc.ReportStatus(context.Background(), "u1", "sleeping", nil, nil)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestReportStatusMissingSessionNoLedgerWrite(t *testing.T) {
	inserted := false
	sessions := &stubSessionRepository{
		updateStatusFn: func(string, string, datatypes.JSON, time.Time) error {
			return repository.ErrSessionNotFound
		},
	}
	captures := &stubCaptureRepository{
		insertBatchFn: func([]domain.CapturedBlock) error {
			inserted = true
			return nil
		},
	}
	svc := NewRelayService(sessions, captures, nil, testLogger())

	err := svc.ReportStatus(context.Background(), "ghost", domain.SessionStatusActive, nil, []BlockReport{{BlockID: "b1"}})
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if inserted {
		t.Fatal("expected no ledger write for a missing session")
	}
}

func TestReportStatusLedgerFailureIsNonFatal(t *testing.T) {
	sessions := &stubSessionRepository{
		updateStatusFn: func(userID, status string, metrics datatypes.JSON, _ time.Time) error {
			if status != domain.SessionStatusActive {
				t.Fatalf("unexpected status %q", status)
			}
			if string(metrics) != `{"battery":75}` {
				t.Fatalf("unexpected metrics %s", metrics)
			}
			return nil
		},
	}
	captures := &stubCaptureRepository{
		insertBatchFn: func([]domain.CapturedBlock) error {
			return errors.New("store unavailable")
		},
	}
	svc := NewRelayService(sessions, captures, nil, testLogger())

	err := svc.ReportStatus(context.Background(), "u1", domain.SessionStatusActive,
		json.RawMessage(`{"battery":75}`), []BlockReport{{BlockID: "b1", Amount: 5, CapturedAt: 1700000000}})
	if err != nil {
		t.Fatalf("status update should survive a ledger failure, got %v", err)
	}
}

func TestRecordBlocksConvertsEpochSeconds(t *testing.T) {
	var got []domain.CapturedBlock
	captures := &stubCaptureRepository{
		insertBatchFn: func(blocks []domain.CapturedBlock) error {
			got = blocks
			return nil
		},
	}
	svc := NewRelayService(&stubSessionRepository{}, captures, nil, testLogger())

	err := svc.RecordBlocks(context.Background(), "u1", []BlockReport{{
		BlockID:    "b1",
		Amount:     12.5,
		Location:   json.RawMessage(`"loc1"`),
		Schedule:   json.RawMessage(`"sched1"`),
		CapturedAt: 1700000000,
	}})
	if err != nil {
		t.Fatalf("record blocks: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	if !got[0].CapturedAt.Equal(want) {
		t.Fatalf("expected captured_at %v, got %v", want, got[0].CapturedAt)
	}
	if got[0].UserID != "u1" || got[0].Amount != 12.5 {
		t.Fatalf("unexpected row %+v", got[0])
	}
}

func TestRecordBlocksFractionalSeconds(t *testing.T) {
	var got []domain.CapturedBlock
	captures := &stubCaptureRepository{
		insertBatchFn: func(blocks []domain.CapturedBlock) error {
			got = blocks
			return nil
		},
	}
	svc := NewRelayService(&stubSessionRepository{}, captures, nil, testLogger())

	if err := svc.RecordBlocks(context.Background(), "u1", []BlockReport{{BlockID: "b1", CapturedAt: 1700000000.25}}); err != nil {
		t.Fatalf("record blocks: %v", err)
	}
	want := time.Date(2023, 11, 14, 22, 13, 20, 250_000_000, time.UTC)
	if !got[0].CapturedAt.Equal(want) {
		t.Fatalf("expected captured_at %v, got %v", want, got[0].CapturedAt)
	}
}

func TestRecordBlocksEmptyIsNoop(t *testing.T) {
	captures := &stubCaptureRepository{
		insertBatchFn: func([]domain.CapturedBlock) error {
			t.Fatal("insert should not be called for an empty batch")
			return nil
		},
	}
	svc := NewRelayService(&stubSessionRepository{}, captures, nil, testLogger())

	if err := svc.RecordBlocks(context.Background(), "u1", nil); err != nil {
		t.Fatalf("empty batch should succeed: %v", err)
	}
}

func TestEnqueueWritesSingleSlot(t *testing.T) {
	var got domain.CommandSlot
	sessions := &stubSessionRepository{
		setCommandSlotFn: func(userID string, slot domain.CommandSlot) error {
			got = slot
			return nil
		},
	}
	svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())

	if err := svc.Enqueue(context.Background(), "u1", "start", json.RawMessage(`{"stations":["station1"]}`)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(got.Commands) != 1 {
		t.Fatalf("expected single-command slot, got %d", len(got.Commands))
	}
	if got.Commands[0].Command != "start" {
		t.Fatalf("unexpected command %q", got.Commands[0].Command)
	}
	if got.Commands[0].Timestamp.IsZero() {
		t.Fatal("expected enqueue timestamp to be set")
	}
}

func TestEnqueueMissingSession(t *testing.T) {
	sessions := &stubSessionRepository{
		setCommandSlotFn: func(string, domain.CommandSlot) error {
			return repository.ErrSessionNotFound
		},
	}
	svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())

	if err := svc.Enqueue(context.Background(), "ghost", "start", nil); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestDrainReturnsPendingCommand(t *testing.T) {
	raw, _ := json.Marshal(domain.CommandSlot{Commands: []domain.QueuedCommand{{Command: "pause", Timestamp: time.Now().UTC()}}})
	sessions := &stubSessionRepository{
		findByUserIDFn: func(string) (*domain.RobotSession, error) {
			return &domain.RobotSession{UserID: "u1", Commands: raw}, nil
		},
	}
	svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())

	commands, err := svc.Drain(context.Background(), "u1")
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(commands) != 1 || commands[0].Command != "pause" {
		t.Fatalf("expected single pause command, got %#v", commands)
	}
}

func TestDrainDegradesToEmpty(t *testing.T) {
	cases := map[string]*stubSessionRepository{
		"missing session": {
			findByUserIDFn: func(string) (*domain.RobotSession, error) {
				return nil, repository.ErrSessionNotFound
			},
		},
		"store failure": {
			findByUserIDFn: func(string) (*domain.RobotSession, error) {
				return nil, errors.New("store unavailable")
			},
		},
		"malformed slot": {
			findByUserIDFn: func(string) (*domain.RobotSession, error) {
				return &domain.RobotSession{UserID: "u1", Commands: []byte(`{"commands":`)}, nil
			},
		},
	}
	for name, sessions := range cases {
		svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())
		commands, err := svc.Drain(context.Background(), "u1")
		if err != nil {
			t.Fatalf("%s: drain should never error, got %v", name, err)
		}
		if commands == nil || len(commands) != 0 {
			t.Fatalf("%s: expected empty non-nil commands, got %#v", name, commands)
		}
	}
}

func TestDrainIsReadOnly(t *testing.T) {
	raw, _ := json.Marshal(domain.CommandSlot{Commands: []domain.QueuedCommand{{Command: "stop"}}})
	calls := 0
	sessions := &stubSessionRepository{
		findByUserIDFn: func(string) (*domain.RobotSession, error) {
			calls++
			return &domain.RobotSession{UserID: "u1", Commands: raw}, nil
		},
	}
	svc := NewRelayService(sessions, &stubCaptureRepository{}, nil, testLogger())

	for i := 0; i < 2; i++ {
		commands, err := svc.Drain(context.Background(), "u1")
		if err != nil {
			t.Fatalf("drain %d: %v", i, err)
		}
		if len(commands) != 1 {
			t.Fatalf("drain %d: command should remain until overwritten, got %#v", i, commands)
		}
	}
	if calls != 2 {
		t.Fatalf("expected 2 reads, got %d", calls)
	}
}
