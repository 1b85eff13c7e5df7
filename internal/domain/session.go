package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	SessionStatusOnline  = "online"
	SessionStatusOffline = "offline"
	SessionStatusActive  = "active"
	SessionStatusPaused  = "paused"
)

func IsValidSessionStatus(status string) bool {
	switch status {
	case SessionStatusOnline, SessionStatusOffline, SessionStatusActive, SessionStatusPaused:
		return true
	}
	return false
}

// RobotSession is the live record of one worker: liveness, last reported
// metrics, and the single pending-command slot. Exactly one row per user.
type RobotSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    string         `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	Status    string         `gorm:"size:16;not null;default:offline;index" json:"status"`
	LastPing  time.Time      `gorm:"index" json:"last_ping"`
	Metrics   datatypes.JSON `json:"metrics,omitempty"`
	Commands  datatypes.JSON `json:"commands,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CommandSlot is the JSON document stored in RobotSession.Commands.
// It holds at most one live command; enqueueing replaces the whole slot.
type CommandSlot struct {
	Commands []QueuedCommand `json:"commands"`
}

type QueuedCommand struct {
	Command    string          `json:"command"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func (s *RobotSession) CommandSlot() (CommandSlot, error) {
	slot := CommandSlot{Commands: []QueuedCommand{}}
	if len(s.Commands) == 0 {
		return slot, nil
	}
	if err := json.Unmarshal(s.Commands, &slot); err != nil {
		return CommandSlot{Commands: []QueuedCommand{}}, err
	}
	if slot.Commands == nil {
		slot.Commands = []QueuedCommand{}
	}
	return slot, nil
}
