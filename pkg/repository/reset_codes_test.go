package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

func setupResetCodeRepo(t *testing.T) (*ResetCodeRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewResetCodeRepository(db, logger.New("repository-test", "debug")), mock
}

func TestResetCodeRepository_Create_AssignsID(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	code := &types.ResetCode{
		Email:     "user@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(15 * time.Minute),
		CreatedAt: time.Now(),
	}

	mock.ExpectExec("INSERT INTO password_reset_codes").
		WithArgs(sqlmock.AnyArg(), code.Email, code.Code, code.ExpiresAt, false, code.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), code)

	require.NoError(t, err)
	assert.NotEmpty(t, code.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetCodeRepository_FindActive(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "code", "expires_at", "used", "created_at"}).
		AddRow("code-1", "user@example.com", "123456", now.Add(10*time.Minute), false, now.Add(-5*time.Minute))

	mock.ExpectQuery("SELECT (.+) FROM password_reset_codes").
		WithArgs("user@example.com", "123456", now).
		WillReturnRows(rows)

	record, err := repo.FindActive(context.Background(), "user@example.com", "123456", now)

	require.NoError(t, err)
	assert.Equal(t, "code-1", record.ID)
	assert.False(t, record.Used)
}

func TestResetCodeRepository_FindActive_NotFound(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM password_reset_codes").
		WithArgs("user@example.com", "000000", now).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "code", "expires_at", "used", "created_at"}))

	_, err := repo.FindActive(context.Background(), "user@example.com", "000000", now)

	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeResetCodeInvalid, appErr.Code)
}

func TestResetCodeRepository_MarkUsed(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	mock.ExpectExec("UPDATE password_reset_codes SET used = true").
		WithArgs("code-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkUsed(context.Background(), "code-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetCodeRepository_DeleteOthers(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	mock.ExpectExec("DELETE FROM password_reset_codes").
		WithArgs("user@example.com", "code-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.DeleteOthers(context.Background(), "user@example.com", "code-1")

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetCodeRepository_DeleteExpired(t *testing.T) {
	repo, mock := setupResetCodeRepo(t)

	now := time.Now()
	mock.ExpectExec("DELETE FROM password_reset_codes").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteExpired(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(4), deleted)
}
