package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// ResetCodeRepository persists password-reset verification codes
type ResetCodeRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewResetCodeRepository creates a new reset code repository
func NewResetCodeRepository(db *sql.DB, log *logger.Logger) *ResetCodeRepository {
	return &ResetCodeRepository{
		db:     db,
		logger: log,
	}
}

// Create stores a new reset code
func (r *ResetCodeRepository) Create(ctx context.Context, code *types.ResetCode) error {
	if code.ID == "" {
		code.ID = uuid.New().String()
	}

	query := `
		INSERT INTO password_reset_codes (id, email, code, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		code.ID,
		code.Email,
		code.Code,
		code.ExpiresAt,
		code.Used,
		code.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).Error("Failed to store reset code")
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	return nil
}

// FindActive returns the unused, unexpired code for email+code
func (r *ResetCodeRepository) FindActive(ctx context.Context, email, code string, now time.Time) (*types.ResetCode, error) {
	query := `
		SELECT id, email, code, expires_at, used, created_at
		FROM password_reset_codes
		WHERE email = $1 AND code = $2 AND used = false AND expires_at > $3`

	record := &types.ResetCode{}
	err := r.db.QueryRowContext(ctx, query, email, code, now).Scan(
		&record.ID,
		&record.Email,
		&record.Code,
		&record.ExpiresAt,
		&record.Used,
		&record.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, types.NewNotFoundError(types.ErrCodeResetCodeInvalid, "reset code not found or expired")
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to look up reset code")
		return nil, fmt.Errorf("failed to look up reset code: %w", err)
	}

	return record, nil
}

// MarkUsed consumes a code
func (r *ResetCodeRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE password_reset_codes SET used = true WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.WithError(err).Error("Failed to mark reset code as used")
		return fmt.Errorf("failed to mark reset code as used: %w", err)
	}

	return nil
}

// DeleteOthers removes every code for the email except the kept one
func (r *ResetCodeRepository) DeleteOthers(ctx context.Context, email, keepID string) error {
	query := `DELETE FROM password_reset_codes WHERE email = $1 AND id <> $2`

	_, err := r.db.ExecContext(ctx, query, email, keepID)
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete old reset codes")
		return fmt.Errorf("failed to delete old reset codes: %w", err)
	}

	return nil
}

// DeleteExpired removes stale codes past their expiry
func (r *ResetCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM password_reset_codes WHERE expires_at <= $1`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete expired reset codes")
		return 0, fmt.Errorf("failed to delete expired reset codes: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return rows, nil
}
