package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
)

// MailSender delivers password-reset mail.
type MailSender interface {
	SendResetCode(ctx context.Context, email, code string) error
	SendResetLink(ctx context.Context, email string) error
}

// MailClient sends mail through the configured mail API.
type MailClient struct {
	client *resty.Client
	config config.MailConfig
	logger *logger.Logger
}

// NewMailClient creates a new mail API client
func NewMailClient(cfg config.MailConfig, log *logger.Logger) *MailClient {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.APIKey)

	return &MailClient{
		client: client,
		config: cfg,
		logger: log,
	}
}

type mailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendResetCode mails the 6-digit verification code.
func (c *MailClient) SendResetCode(ctx context.Context, email, code string) error {
	subject := "رمز إعادة تعيين كلمة المرور - المختبر الرقمي"
	html := fmt.Sprintf(`<!DOCTYPE html>
<html dir="rtl" lang="ar">
<body>
  <h1>إعادة تعيين كلمة المرور</h1>
  <p>استخدم الرمز التالي لإعادة تعيين كلمة المرور الخاصة بك:</p>
  <p style="font-size:36px;letter-spacing:8px;font-weight:bold">%s</p>
  <p>الرمز صالح لمدة 15 دقيقة فقط. إذا لم تطلب إعادة التعيين فتجاهل هذه الرسالة.</p>
</body>
</html>`, code)

	return c.send(ctx, email, subject, html)
}

// SendResetLink mails a reset link pointing back at the site.
func (c *MailClient) SendResetLink(ctx context.Context, email string) error {
	subject := "رابط إعادة تعيين كلمة المرور - المختبر الرقمي"
	html := fmt.Sprintf(`<!DOCTYPE html>
<html dir="rtl" lang="ar">
<body>
  <h1>إعادة تعيين كلمة المرور</h1>
  <p>اضغط على الرابط التالي لإعادة تعيين كلمة المرور:</p>
  <p><a href="%s/reset-password">إعادة تعيين كلمة المرور</a></p>
</body>
</html>`, c.config.SiteURL)

	return c.send(ctx, email, subject, html)
}

func (c *MailClient) send(ctx context.Context, to, subject, html string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(mailPayload{
			From:    c.config.From,
			To:      to,
			Subject: subject,
			HTML:    html,
		}).
		Post(c.config.Endpoint)
	if err != nil {
		return fmt.Errorf("mail request failed: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("mail request failed: status %d", resp.StatusCode())
	}

	c.logger.WithField("to", to).Info("Mail sent")
	return nil
}
