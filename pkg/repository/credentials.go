package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// CredentialRepository mutates stored password hashes
type CredentialRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *sql.DB, log *logger.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: log,
	}
}

// UpdatePasswordHash writes a pre-hashed password for the user
func (r *CredentialRepository) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE LOWER(email) = LOWER($2)`

	result, err := r.db.ExecContext(ctx, query, passwordHash, email)
	if err != nil {
		r.logger.WithError(err).Error("Failed to update password hash")
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return types.NewNotFoundError(types.ErrCodeNotFound, "user not found")
	}

	return nil
}

// CallPasswordUpdate invokes the database-side password update routine,
// which hashes and stores the password itself. Returns false when the
// routine found no matching user.
func (r *CredentialRepository) CallPasswordUpdate(ctx context.Context, email, newPassword string) (bool, error) {
	query := `SELECT update_user_password($1, $2)`

	var updated bool
	err := r.db.QueryRowContext(ctx, query, email, newPassword).Scan(&updated)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.logger.WithError(err).Error("Password update routine failed")
		return false, fmt.Errorf("password update routine failed: %w", err)
	}

	return updated, nil
}
