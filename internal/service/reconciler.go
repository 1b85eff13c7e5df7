package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DavidFlautero/felxeasy/internal/repository"
)

// StaleSessionReconciler is the periodic pass that marks sessions offline
// once last_ping falls behind the threshold. The core stores last_ping
// and never reads it; liveness policy lives entirely here.
type StaleSessionReconciler struct {
	sessions     repository.SessionRepository
	presence     PresenceTracker
	offlineAfter time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

func NewStaleSessionReconciler(
	sessions repository.SessionRepository,
	presence PresenceTracker,
	offlineAfter, interval time.Duration,
	logger *slog.Logger,
) *StaleSessionReconciler {
	return &StaleSessionReconciler{
		sessions:     sessions,
		presence:     presence,
		offlineAfter: offlineAfter,
		interval:     interval,
		logger:       logger,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *StaleSessionReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("stale session sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one reconciliation pass and returns how many sessions
// were flipped to offline.
func (r *StaleSessionReconciler) Sweep(ctx context.Context) (int64, error) {
	var keep []string
	if r.presence != nil {
		active, err := r.presence.ActiveUsers(ctx)
		if err != nil {
			// Presence is an optimization; sweep from the database alone.
			r.logger.Warn("presence lookup failed, sweeping without it", "error", err)
		} else {
			keep = active
		}
	}
	cutoff := time.Now().UTC().Add(-r.offlineAfter)
	changed, err := r.sessions.MarkStale(cutoff, keep)
	if err != nil {
		return 0, err
	}
	if changed > 0 {
		r.logger.Info("marked stale sessions offline", "count", changed, "cutoff", cutoff)
	}
	return changed, nil
}
