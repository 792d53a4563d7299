package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// MockCredentialStore is a mock implementation of CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	args := m.Called(ctx, email, passwordHash)
	return args.Error(0)
}

func (m *MockCredentialStore) CallPasswordUpdate(ctx context.Context, email, newPassword string) (bool, error) {
	args := m.Called(ctx, email, newPassword)
	return args.Bool(0), args.Error(1)
}

func TestUpdate_FirstStrategyWins(t *testing.T) {
	first := &stubStrategy{name: "admin_api", applied: true}
	second := &stubStrategy{name: "direct_update", applied: true}
	updater := newPasswordUpdaterWithStrategies(logger.New("auth-test", "debug"), first, second)

	method, err := updater.Update(context.Background(), "user@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "admin_api", method)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestUpdate_FallsThroughOnFailure(t *testing.T) {
	first := &stubStrategy{name: "admin_api", err: errors.New("unreachable")}
	second := &stubStrategy{name: "direct_update", applied: true}
	updater := newPasswordUpdaterWithStrategies(logger.New("auth-test", "debug"), first, second)

	method, err := updater.Update(context.Background(), "user@example.com", "secret")

	require.NoError(t, err)
	assert.Equal(t, "direct_update", method)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestUpdate_EmailLinkIsNotApplied(t *testing.T) {
	// The email-link fallback succeeds at sending but never counts as
	// an applied password change.
	mockMail := &MockMailSender{}
	mockMail.On("SendResetLink", mock.Anything, "user@example.com").Return(nil)

	link := &emailLinkStrategy{mail: mockMail}
	updater := newPasswordUpdaterWithStrategies(logger.New("auth-test", "debug"), link)

	_, err := updater.Update(context.Background(), "user@example.com", "secret")

	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodePasswordUpdate, appErr.Code)
	mockMail.AssertExpectations(t)
}

func TestUpdate_AllStrategiesFail(t *testing.T) {
	first := &stubStrategy{name: "admin_api", err: errors.New("unreachable")}
	second := &stubStrategy{name: "direct_update", err: errors.New("db down")}
	updater := newPasswordUpdaterWithStrategies(logger.New("auth-test", "debug"), first, second)

	_, err := updater.Update(context.Background(), "user@example.com", "secret")

	require.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestDirectUpdateStrategy_HashesBeforeStoring(t *testing.T) {
	mockStore := &MockCredentialStore{}
	var storedHash string
	mockStore.On("UpdatePasswordHash", mock.Anything, "user@example.com", mock.Anything).
		Run(func(args mock.Arguments) { storedHash = args.String(2) }).
		Return(nil)

	strategy := &directUpdateStrategy{store: mockStore, passwords: NewPasswordManager()}
	applied, err := strategy.Update(context.Background(), "user@example.com", "secret-password")

	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotEqual(t, "secret-password", storedHash)

	ok, err := NewPasswordManager().VerifyPassword(storedHash, "secret-password")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLRoutineStrategy_NoUserIsFailure(t *testing.T) {
	mockStore := &MockCredentialStore{}
	mockStore.On("CallPasswordUpdate", mock.Anything, "ghost@example.com", "secret").Return(false, nil)

	strategy := &sqlRoutineStrategy{store: mockStore}
	applied, err := strategy.Update(context.Background(), "ghost@example.com", "secret")

	assert.False(t, applied)
	assert.Error(t, err)
}

func TestNewPasswordUpdater_ChainOrder(t *testing.T) {
	cfgWithAdmin := configWithAdmin("https://auth.internal/admin/users/password")
	updater := NewPasswordUpdater(cfgWithAdmin, &MockCredentialStore{}, NewPasswordManager(), &MockMailSender{}, logger.New("auth-test", "debug"))

	names := strategyNames(updater)
	assert.Equal(t, []string{"admin_api", "direct_update", "sql_function", "email_link"}, names)

	// Without an admin endpoint the chain skips the admin strategy.
	updater = NewPasswordUpdater(configWithAdmin(""), &MockCredentialStore{}, NewPasswordManager(), &MockMailSender{}, logger.New("auth-test", "debug"))
	assert.Equal(t, []string{"direct_update", "sql_function", "email_link"}, strategyNames(updater))
}

func configWithAdmin(endpoint string) config.AuthConfig {
	return config.AuthConfig{
		AdminEndpoint:  endpoint,
		AdminKey:       "service-key",
		ResetRateLimit: 5,
	}
}

func strategyNames(u *PasswordUpdater) []string {
	names := make([]string, 0, len(u.strategies))
	for _, s := range u.strategies {
		names = append(names, s.Name())
	}
	return names
}
