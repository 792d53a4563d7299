package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// MockCodeStore is a mock implementation of CodeStore
type MockCodeStore struct {
	mock.Mock
}

func (m *MockCodeStore) Create(ctx context.Context, code *types.ResetCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockCodeStore) FindActive(ctx context.Context, email, code string, now time.Time) (*types.ResetCode, error) {
	args := m.Called(ctx, email, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ResetCode), args.Error(1)
}

func (m *MockCodeStore) MarkUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCodeStore) DeleteOthers(ctx context.Context, email, keepID string) error {
	args := m.Called(ctx, email, keepID)
	return args.Error(0)
}

// MockProfileFinder is a mock implementation of ProfileFinder
type MockProfileFinder struct {
	mock.Mock
}

func (m *MockProfileFinder) GetByEmail(ctx context.Context, email string) (*types.PatientProfile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PatientProfile), args.Error(1)
}

// MockMailSender is a mock implementation of MailSender
type MockMailSender struct {
	mock.Mock
}

func (m *MockMailSender) SendResetCode(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *MockMailSender) SendResetLink(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockRateLimiter is a mock implementation of RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// MockResetRecorder is a mock implementation of ResetRecorder
type MockResetRecorder struct {
	mock.Mock
}

func (m *MockResetRecorder) RecordResetRequest(status string) {
	m.Called(status)
}

// stubStrategy applies or fails on demand
type stubStrategy struct {
	name    string
	applied bool
	err     error
	calls   int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Update(ctx context.Context, email, newPassword string) (bool, error) {
	s.calls++
	return s.applied, s.err
}

type resetMocks struct {
	codes    *MockCodeStore
	profiles *MockProfileFinder
	mail     *MockMailSender
	limiter  *MockRateLimiter
	recorder *MockResetRecorder
}

func setupResetService(strategies ...UpdateStrategy) (*ResetService, *resetMocks) {
	mocks := &resetMocks{
		codes:    &MockCodeStore{},
		profiles: &MockProfileFinder{},
		mail:     &MockMailSender{},
		limiter:  &MockRateLimiter{},
		recorder: &MockResetRecorder{},
	}
	mocks.recorder.On("RecordResetRequest", mock.Anything).Return().Maybe()
	log := logger.New("auth-test", "debug")

	updater := newPasswordUpdaterWithStrategies(log, strategies...)
	tokens := NewTokenValidator(testJWTConfig())
	service := NewResetService(mocks.codes, mocks.profiles, mocks.mail, mocks.limiter, updater, tokens, mocks.recorder, log)
	return service, mocks
}

func registeredProfile() *types.PatientProfile {
	return &types.PatientProfile{ID: "user-1", Email: "user@example.com"}
}

func TestGenerateResetCode_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 50; i++ {
		code, err := GenerateResetCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
	}
}

func TestRequestReset_IssuesAndMailsCode(t *testing.T) {
	service, mocks := setupResetService()

	var stored *types.ResetCode
	mocks.limiter.On("Allow", mock.Anything, "user@example.com").Return(true, nil)
	mocks.limiter.On("Remaining", mock.Anything, "user@example.com").Return(4, nil)
	mocks.profiles.On("GetByEmail", mock.Anything, "user@example.com").Return(registeredProfile(), nil)
	mocks.codes.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).(*types.ResetCode)
	}).Return(nil)
	mocks.mail.On("SendResetCode", mock.Anything, "user@example.com", mock.Anything).Return(nil)

	err := service.RequestReset(context.Background(), "  User@Example.COM ")

	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "user@example.com", stored.Email)
	assert.Regexp(t, `^\d{6}$`, stored.Code)
	assert.False(t, stored.Used)

	// Expiry is 15 minutes out.
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), stored.ExpiresAt, 5*time.Second)

	mocks.mail.AssertCalled(t, "SendResetCode", mock.Anything, "user@example.com", stored.Code)
}

func TestRequestReset_UnknownEmailSendsNothing(t *testing.T) {
	service, mocks := setupResetService()

	mocks.limiter.On("Allow", mock.Anything, "ghost@example.com").Return(true, nil)
	mocks.profiles.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, types.NewNotFoundError(types.ErrCodeNotFound, "not registered"))

	// Unknown addresses get the same nil result as registered ones.
	err := service.RequestReset(context.Background(), "ghost@example.com")

	require.NoError(t, err)
	mocks.codes.AssertNotCalled(t, "Create")
	mocks.mail.AssertNotCalled(t, "SendResetCode")
}

func TestRequestReset_RateLimited(t *testing.T) {
	service, mocks := setupResetService()

	mocks.limiter.On("Allow", mock.Anything, "user@example.com").Return(false, nil)

	err := service.RequestReset(context.Background(), "user@example.com")

	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrorTypeRateLimit, appErr.Type)

	mocks.profiles.AssertNotCalled(t, "GetByEmail")
	mocks.codes.AssertNotCalled(t, "Create")
}

func TestRequestReset_RecordsOutcomes(t *testing.T) {
	service, mocks := setupResetService()

	mocks.limiter.On("Allow", mock.Anything, "user@example.com").Return(true, nil)
	mocks.limiter.On("Allow", mock.Anything, "blocked@example.com").Return(false, nil)
	mocks.limiter.On("Remaining", mock.Anything, mock.Anything).Return(3, nil)
	mocks.profiles.On("GetByEmail", mock.Anything, "user@example.com").Return(registeredProfile(), nil)
	mocks.codes.On("Create", mock.Anything, mock.Anything).Return(nil)
	mocks.mail.On("SendResetCode", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, service.RequestReset(context.Background(), "user@example.com"))
	require.Error(t, service.RequestReset(context.Background(), "blocked@example.com"))

	mocks.recorder.AssertCalled(t, "RecordResetRequest", "success")
	mocks.recorder.AssertCalled(t, "RecordResetRequest", "rate_limited")
}

func TestCheckCode_DoesNotConsume(t *testing.T) {
	service, mocks := setupResetService()

	record := &types.ResetCode{ID: "code-1", Email: "user@example.com", Code: "123456"}
	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "123456", mock.Anything).Return(record, nil)

	assert.True(t, service.CheckCode(context.Background(), "user@example.com", "123456"))

	mocks.codes.AssertNotCalled(t, "MarkUsed")
}

func TestCheckCode_InvalidCode(t *testing.T) {
	service, mocks := setupResetService()

	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "000000", mock.Anything).
		Return(nil, errors.New("not found"))

	assert.False(t, service.CheckCode(context.Background(), "user@example.com", "000000"))
}

func TestConfirmReset_ConsumesCodeAndIssuesToken(t *testing.T) {
	applied := &stubStrategy{name: "direct_update", applied: true}
	service, mocks := setupResetService(applied)

	record := &types.ResetCode{ID: "code-1", Email: "user@example.com", Code: "123456"}
	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "123456", mock.Anything).Return(record, nil)
	mocks.codes.On("MarkUsed", mock.Anything, "code-1").Return(nil)
	mocks.codes.On("DeleteOthers", mock.Anything, "user@example.com", "code-1").Return(nil)
	mocks.profiles.On("GetByEmail", mock.Anything, "user@example.com").Return(registeredProfile(), nil)

	token, err := service.ConfirmReset(context.Background(), "user@example.com", "123456", "new-password")

	require.NoError(t, err)
	assert.Equal(t, 1, applied.calls)
	mocks.codes.AssertExpectations(t)

	// The returned token signs the client in as the account owner.
	require.NotEmpty(t, token)
	claims, err := NewTokenValidator(testJWTConfig()).ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestConfirmReset_TokenFailureStillSucceeds(t *testing.T) {
	applied := &stubStrategy{name: "direct_update", applied: true}
	service, mocks := setupResetService(applied)

	record := &types.ResetCode{ID: "code-1", Email: "user@example.com", Code: "123456"}
	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "123456", mock.Anything).Return(record, nil)
	mocks.codes.On("MarkUsed", mock.Anything, "code-1").Return(nil)
	mocks.codes.On("DeleteOthers", mock.Anything, "user@example.com", "code-1").Return(nil)
	mocks.profiles.On("GetByEmail", mock.Anything, "user@example.com").
		Return(nil, errors.New("db down"))

	token, err := service.ConfirmReset(context.Background(), "user@example.com", "123456", "new-password")

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestConfirmReset_InvalidCodeRejected(t *testing.T) {
	applied := &stubStrategy{name: "direct_update", applied: true}
	service, mocks := setupResetService(applied)

	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "999999", mock.Anything).
		Return(nil, errors.New("not found"))

	_, err := service.ConfirmReset(context.Background(), "user@example.com", "999999", "new-password")

	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeResetCodeInvalid, appErr.Code)
	assert.Equal(t, 0, applied.calls)
}

func TestConfirmReset_FailedUpdateLeavesCodeUsable(t *testing.T) {
	failing := &stubStrategy{name: "direct_update", err: errors.New("db down")}
	service, mocks := setupResetService(failing)

	record := &types.ResetCode{ID: "code-1", Email: "user@example.com", Code: "123456"}
	mocks.codes.On("FindActive", mock.Anything, "user@example.com", "123456", mock.Anything).Return(record, nil)

	_, err := service.ConfirmReset(context.Background(), "user@example.com", "123456", "new-password")

	require.Error(t, err)
	mocks.codes.AssertNotCalled(t, "MarkUsed")
	mocks.codes.AssertNotCalled(t, "DeleteOthers")
}
