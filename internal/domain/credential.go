package domain

import "time"

// LinkedCredential stores a user's linked external-account login sealed
// with AES-GCM. Plaintext is never persisted and never leaves the vault
// service except to the worker delivery path.
type LinkedCredential struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"size:64;uniqueIndex;not null" json:"user_id"`
	Provider   string    `gorm:"size:32;not null" json:"provider"`
	Ciphertext []byte    `gorm:"not null" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
