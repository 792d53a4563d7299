package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// resetCodeTTL is how long a verification code stays valid.
const resetCodeTTL = 15 * time.Minute

// CodeStore persists password-reset codes.
type CodeStore interface {
	Create(ctx context.Context, code *types.ResetCode) error
	// FindActive returns the unused, unexpired code matching email+code,
	// or a not-found error.
	FindActive(ctx context.Context, email, code string, now time.Time) (*types.ResetCode, error)
	MarkUsed(ctx context.Context, id string) error
	// DeleteOthers removes every code for the email except the kept one.
	DeleteOthers(ctx context.Context, email, keepID string) error
}

// ProfileFinder resolves an email to a registered account.
type ProfileFinder interface {
	GetByEmail(ctx context.Context, email string) (*types.PatientProfile, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(userID, email string) (string, error)
}

// RateLimiter bounds reset requests per address.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int, error)
}

// ResetRecorder counts reset requests by outcome.
type ResetRecorder interface {
	RecordResetRequest(status string)
}

// ResetService issues and verifies password-reset codes. Verification
// comes in two strengths: Check leaves the code reusable for the final
// confirmation step, Confirm consumes it.
type ResetService struct {
	codes    CodeStore
	profiles ProfileFinder
	mail     MailSender
	limiter  RateLimiter
	updater  *PasswordUpdater
	tokens   TokenIssuer
	metrics  ResetRecorder
	logger   *logger.Logger
}

// NewResetService creates a new password reset service
func NewResetService(codes CodeStore, profiles ProfileFinder, mail MailSender, limiter RateLimiter, updater *PasswordUpdater, tokens TokenIssuer, metrics ResetRecorder, log *logger.Logger) *ResetService {
	return &ResetService{
		codes:    codes,
		profiles: profiles,
		mail:     mail,
		limiter:  limiter,
		updater:  updater,
		tokens:   tokens,
		metrics:  metrics,
		logger:   log,
	}
}

func (s *ResetService) recordRequest(status string) {
	if s.metrics != nil {
		s.metrics.RecordResetRequest(status)
	}
}

// GenerateResetCode returns a random 6-digit code.
func GenerateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// RequestReset issues a fresh code and mails it. The response to the
// caller is identical whether or not the address exists; enumeration is
// prevented at this layer. Unknown addresses still consume a rate-limit
// slot so guessing stays bounded.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	allowed, err := s.limiter.Allow(ctx, email)
	if err != nil {
		s.recordRequest("error")
		s.logger.WithError(err).Error("Rate limit check failed")
		return fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		s.recordRequest("rate_limited")
		return types.NewRateLimitError(types.ErrCodeRateLimitExceeded, "تم تجاوز الحد الأقصى للطلبات. يرجى المحاولة لاحقاً.")
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err != nil {
		s.recordRequest("unknown_email")
		s.logger.WithField("email", email).Info("Reset requested for unregistered address")
		return nil
	}

	code, err := GenerateResetCode()
	if err != nil {
		s.recordRequest("error")
		return err
	}

	record := &types.ResetCode{
		Email:     email,
		Code:      code,
		ExpiresAt: time.Now().Add(resetCodeTTL),
		Used:      false,
		CreatedAt: time.Now(),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		s.recordRequest("error")
		s.logger.WithError(err).Error("Failed to store reset code")
		return fmt.Errorf("فشل في حفظ كود إعادة التعيين: %w", err)
	}

	if err := s.mail.SendResetCode(ctx, email, code); err != nil {
		s.recordRequest("error")
		s.logger.WithError(err).Error("Failed to send reset code mail")
		return fmt.Errorf("failed to send reset code: %w", err)
	}

	remaining, err := s.limiter.Remaining(ctx, email)
	if err != nil {
		s.logger.WithError(err).Debug("Rate limit read failed")
	}

	s.recordRequest("success")
	s.logger.WithFields(map[string]interface{}{
		"email":              email,
		"remaining_requests": remaining,
	}).Info("Password reset code issued")
	return nil
}

// CheckCode reports whether the code is valid without consuming it. The
// UI calls this between the code-entry and new-password steps.
func (s *ResetService) CheckCode(ctx context.Context, email, code string) bool {
	_, err := s.codes.FindActive(ctx, normalizeEmail(email), code, time.Now())
	return err == nil
}

// ConfirmReset verifies the code, updates the password and only then
// consumes the code. A failed update leaves the code usable for a retry.
// On success a fresh access token is returned so the client can sign in
// without a second round trip.
func (s *ResetService) ConfirmReset(ctx context.Context, email, code, newPassword string) (string, error) {
	email = normalizeEmail(email)

	record, err := s.codes.FindActive(ctx, email, code, time.Now())
	if err != nil {
		return "", types.NewValidationError(types.ErrCodeResetCodeInvalid, "رمز التحقق غير صحيح أو منتهي الصلاحية", nil)
	}

	method, err := s.updater.Update(ctx, email, newPassword)
	if err != nil {
		return "", err
	}

	if err := s.codes.MarkUsed(ctx, record.ID); err != nil {
		s.logger.WithError(err).Error("Failed to mark reset code as used")
	}
	if err := s.codes.DeleteOthers(ctx, email, record.ID); err != nil {
		s.logger.WithError(err).Error("Failed to clean up old reset codes")
	}

	s.logger.Audit(email, "password_reset", "credentials", true, map[string]interface{}{
		"method": method,
	})

	return s.issueToken(ctx, email), nil
}

// issueToken signs an access token for the account. Failures degrade to
// an empty token; the password is already updated at this point.
func (s *ResetService) issueToken(ctx context.Context, email string) string {
	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to resolve account for post-reset token")
		return ""
	}

	token, err := s.tokens.GenerateToken(profile.ID, profile.Email)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to issue post-reset token")
		return ""
	}
	return token
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
