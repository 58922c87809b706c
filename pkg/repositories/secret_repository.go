package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/crypto"
)

// SecretRepository stores datasource credentials as a single AES-256-GCM
// encrypted blob per datasource. Plaintext secrets exist only in memory.
type SecretRepository interface {
	// Get returns the decrypted secrets for a datasource. A datasource with
	// no stored secrets yields an empty map, never an error.
	Get(ctx context.Context, datasourceID uuid.UUID) (map[string]string, error)

	// Put replaces the stored secrets for a datasource.
	Put(ctx context.Context, datasourceID uuid.UUID, secrets map[string]string) error

	// Delete removes the stored secrets for a datasource. Deleting absent
	// secrets is not an error.
	Delete(ctx context.Context, datasourceID uuid.UUID) error
}

// secretRepository implements SecretRepository using PostgreSQL.
type secretRepository struct {
	pool   *pgxpool.Pool
	cipher *crypto.SecretCipher
}

// NewSecretRepository creates a new secret repository.
func NewSecretRepository(pool *pgxpool.Pool, cipher *crypto.SecretCipher) SecretRepository {
	return &secretRepository{pool: pool, cipher: cipher}
}

func (r *secretRepository) Get(ctx context.Context, datasourceID uuid.UUID) (map[string]string, error) {
	query := `SELECT encrypted_blob FROM datasource_secrets WHERE datasource_id = $1`

	var blob string
	err := r.pool.QueryRow(ctx, query, datasourceID).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to get secrets: %w", err)
	}

	secrets, err := r.cipher.DecryptMap(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets: %w", apperrors.ErrSecretsKeyMismatch)
	}
	return secrets, nil
}

func (r *secretRepository) Put(ctx context.Context, datasourceID uuid.UUID, secrets map[string]string) error {
	blob, err := r.cipher.EncryptMap(secrets)
	if err != nil {
		return fmt.Errorf("failed to encrypt secrets: %w", err)
	}

	query := `
		INSERT INTO datasource_secrets (datasource_id, encrypted_blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (datasource_id) DO UPDATE
		SET encrypted_blob = EXCLUDED.encrypted_blob,
		    updated_at = EXCLUDED.updated_at`

	if _, err := r.pool.Exec(ctx, query, datasourceID, blob); err != nil {
		return fmt.Errorf("failed to store secrets: %w", err)
	}
	return nil
}

func (r *secretRepository) Delete(ctx context.Context, datasourceID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM datasource_secrets WHERE datasource_id = $1`, datasourceID); err != nil {
		return fmt.Errorf("failed to delete secrets: %w", err)
	}
	return nil
}
