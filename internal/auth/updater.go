package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
	"github.com/sahti/patient-portal/pkg/types"
)

// UpdateStrategy is one way of setting a user's password. Strategies
// run in a fixed order and the first success wins. A strategy that
// cannot actually change the password (the email-link fallback) reports
// applied=false even when its own action succeeded.
type UpdateStrategy interface {
	Name() string
	Update(ctx context.Context, email, newPassword string) (applied bool, err error)
}

// CredentialStore mutates stored password hashes.
type CredentialStore interface {
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	// CallPasswordUpdate invokes the database-side update routine.
	CallPasswordUpdate(ctx context.Context, email, newPassword string) (bool, error)
}

// PasswordUpdater walks the strategy chain until one applies.
type PasswordUpdater struct {
	strategies []UpdateStrategy
	logger     *logger.Logger
}

// NewPasswordUpdater builds the default chain: admin API when
// configured, then direct hash update, then the database routine, and
// last the email-link fallback.
func NewPasswordUpdater(cfg config.AuthConfig, store CredentialStore, passwords *PasswordManager, mail MailSender, log *logger.Logger) *PasswordUpdater {
	var strategies []UpdateStrategy

	if cfg.AdminEndpoint != "" {
		strategies = append(strategies, newAdminAPIStrategy(cfg))
	}
	strategies = append(strategies,
		&directUpdateStrategy{store: store, passwords: passwords},
		&sqlRoutineStrategy{store: store},
		&emailLinkStrategy{mail: mail},
	)

	return &PasswordUpdater{
		strategies: strategies,
		logger:     log,
	}
}

// newPasswordUpdaterWithStrategies is used by tests to control the chain.
func newPasswordUpdaterWithStrategies(log *logger.Logger, strategies ...UpdateStrategy) *PasswordUpdater {
	return &PasswordUpdater{strategies: strategies, logger: log}
}

// Update tries each strategy in order and returns the name of the one
// that applied the change.
func (u *PasswordUpdater) Update(ctx context.Context, email, newPassword string) (string, error) {
	for _, strategy := range u.strategies {
		applied, err := strategy.Update(ctx, email, newPassword)
		if err != nil {
			u.logger.WithError(err).WithField("strategy", strategy.Name()).Warn("Password update strategy failed")
			continue
		}
		if applied {
			u.logger.WithField("strategy", strategy.Name()).Info("Password updated")
			return strategy.Name(), nil
		}
	}

	return "", types.NewInternalError(types.ErrCodePasswordUpdate,
		"فشل في تحديث كلمة المرور. يرجى استخدام خيار \"نسيت كلمة المرور\" من صفحة تسجيل الدخول العادية، أو الاتصال بالدعم الفني.", nil)
}

// adminAPIStrategy updates the password through the privileged auth
// admin endpoint.
type adminAPIStrategy struct {
	client   *resty.Client
	endpoint string
}

func newAdminAPIStrategy(cfg config.AuthConfig) *adminAPIStrategy {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.AdminKey)

	return &adminAPIStrategy{
		client:   client,
		endpoint: cfg.AdminEndpoint,
	}
}

func (s *adminAPIStrategy) Name() string { return "admin_api" }

func (s *adminAPIStrategy) Update(ctx context.Context, email, newPassword string) (bool, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"email":    email,
			"password": newPassword,
		}).
		Put(s.endpoint)
	if err != nil {
		return false, fmt.Errorf("admin API request failed: %w", err)
	}

	if resp.IsError() {
		return false, fmt.Errorf("admin API request failed: status %d", resp.StatusCode())
	}

	return true, nil
}

// directUpdateStrategy hashes the password and writes it to the user
// record.
type directUpdateStrategy struct {
	store     CredentialStore
	passwords *PasswordManager
}

func (s *directUpdateStrategy) Name() string { return "direct_update" }

func (s *directUpdateStrategy) Update(ctx context.Context, email, newPassword string) (bool, error) {
	hash, err := s.passwords.HashPassword(newPassword)
	if err != nil {
		return false, err
	}

	if err := s.store.UpdatePasswordHash(ctx, email, hash); err != nil {
		return false, err
	}
	return true, nil
}

// sqlRoutineStrategy delegates hashing and update to the database
// routine.
type sqlRoutineStrategy struct {
	store CredentialStore
}

func (s *sqlRoutineStrategy) Name() string { return "sql_function" }

func (s *sqlRoutineStrategy) Update(ctx context.Context, email, newPassword string) (bool, error) {
	updated, err := s.store.CallPasswordUpdate(ctx, email, newPassword)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, fmt.Errorf("password update routine found no user")
	}
	return true, nil
}

// emailLinkStrategy mails a reset link. It never counts as an applied
// update since the user still has to finish the flow themselves.
type emailLinkStrategy struct {
	mail MailSender
}

func (s *emailLinkStrategy) Name() string { return "email_link" }

func (s *emailLinkStrategy) Update(ctx context.Context, email, _ string) (bool, error) {
	if err := s.mail.SendResetLink(ctx, email); err != nil {
		return false, err
	}
	return false, nil
}
