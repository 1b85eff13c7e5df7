package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CapturedBlock is one completed work unit reported by a worker.
// Rows are append-only: created via status reports, never updated.
// BlockID is worker-assigned and not deduplicated.
type CapturedBlock struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     string         `gorm:"size:64;not null;index:idx_captures_user_captured_at,priority:1" json:"user_id"`
	BlockID    string         `gorm:"size:128;not null;index" json:"block_id"`
	Amount     float64        `gorm:"not null" json:"amount"`
	Location   datatypes.JSON `json:"location,omitempty"`
	Schedule   datatypes.JSON `json:"schedule,omitempty"`
	CapturedAt time.Time      `gorm:"not null;index:idx_captures_user_captured_at,priority:2" json:"captured_at"`
	CreatedAt  time.Time      `json:"created_at"`
}
