package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"stock-lot-tracker/internal/apperrors"
)

// AccessTokenName is the single credential slot the broker session uses.
const AccessTokenName = "kite_access_token"

// CredentialRepository stores broker credentials encrypted at rest with a
// fernet key. The access token is a single slot, overwritten on each login
// and read once at process start to restore the broker session.
type CredentialRepository struct {
	db  *sql.DB
	key *fernet.Key
}

// NewCredentialRepository creates a new CredentialRepository with the
// provided database connection and fernet encryption key.
func NewCredentialRepository(db *sql.DB, key *fernet.Key) *CredentialRepository {
	return &CredentialRepository{db: db, key: key}
}

// Store encrypts and upserts a credential value.
func (r *CredentialRepository) Store(ctx context.Context, name, value string) error {
	token, err := fernet.EncryptAndSign([]byte(value), r.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt credential %s: %w", name, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO broker_credential (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, string(token), time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to store credential %s: %w", name, err)
	}
	return nil
}

// Get decrypts and returns a credential value. Returns ErrTokenNotFound
// when the slot is empty or the stored value fails verification.
func (r *CredentialRepository) Get(ctx context.Context, name string) (string, error) {
	var stored string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM broker_credential WHERE name = ?`, name,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credential %s: %w", name, err)
	}

	value := fernet.VerifyAndDecrypt([]byte(stored), 0, []*fernet.Key{r.key})
	if value == nil {
		return "", apperrors.ErrTokenNotFound
	}
	return string(value), nil
}

// Delete clears a credential slot.
func (r *CredentialRepository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM broker_credential WHERE name = ?`, name,
	); err != nil {
		return fmt.Errorf("failed to delete credential %s: %w", name, err)
	}
	return nil
}
