package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DavidFlautero/felxeasy/internal/domain"
	"github.com/DavidFlautero/felxeasy/internal/repository"
	"github.com/DavidFlautero/felxeasy/internal/security"
)

const DefaultCredentialProvider = "amazon_flex"

var (
	ErrCredentialIncomplete = errors.New("credential email and password are required")
	ErrVaultDisabled        = errors.New("credential vault is not configured")
)

// CredentialStatus is what the dashboard sees: whether credentials are on
// file, never the credentials themselves.
type CredentialStatus struct {
	Configured bool      `json:"configured"`
	Provider   string    `json:"provider,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

type linkedAccountSecret struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CredentialVault stores linked external-account logins sealed at rest.
// It replaces the browser-local storage the dashboard used to rely on.
type CredentialVault interface {
	Store(ctx context.Context, userID, provider, email, password string) error
	Status(ctx context.Context, userID string) (*CredentialStatus, error)
	Clear(ctx context.Context, userID string) error
}

type credentialVault struct {
	creds  repository.CredentialRepository
	sealer *security.CredentialSealer
	logger *slog.Logger
}

func NewCredentialVault(creds repository.CredentialRepository, sealer *security.CredentialSealer, logger *slog.Logger) CredentialVault {
	return &credentialVault{creds: creds, sealer: sealer, logger: logger}
}

func (v *credentialVault) Store(ctx context.Context, userID, provider, email, password string) error {
	if v.sealer == nil {
		return ErrVaultDisabled
	}
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return ErrCredentialIncomplete
	}
	if provider = strings.TrimSpace(provider); provider == "" {
		provider = DefaultCredentialProvider
	}

	plaintext, err := json.Marshal(linkedAccountSecret{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	sealed, err := v.sealer.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential: %w", err)
	}
	if err := v.creds.Upsert(&domain.LinkedCredential{
		UserID:     userID,
		Provider:   provider,
		Ciphertext: sealed,
	}); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	v.logger.Info("linked credential stored", "user_id", userID, "provider", provider)
	return nil
}

func (v *credentialVault) Status(ctx context.Context, userID string) (*CredentialStatus, error) {
	if v.sealer == nil {
		return nil, ErrVaultDisabled
	}
	cred, err := v.creds.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrCredentialNotFound) {
			return &CredentialStatus{Configured: false}, nil
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	// A record that no longer opens (rotated key, corruption) counts as
	// not configured so the dashboard prompts for re-entry.
	if _, err := v.sealer.Open(cred.Ciphertext); err != nil {
		v.logger.Warn("stored credential failed integrity check", "user_id", userID, "error", err)
		return &CredentialStatus{Configured: false}, nil
	}
	return &CredentialStatus{Configured: true, Provider: cred.Provider, UpdatedAt: cred.UpdatedAt}, nil
}

func (v *credentialVault) Clear(ctx context.Context, userID string) error {
	err := v.creds.DeleteByUserID(userID)
	if err != nil && !errors.Is(err, repository.ErrCredentialNotFound) {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
