package local

import (
	"context"

	chat "github.com/hallwaychat/go-chat"
)

// Mailer delivers verification and password-reset tokens. The default
// implementation logs them, which is enough for development; tests usually
// capture them instead.
type Mailer interface {
	SendVerification(ctx context.Context, email, token, continueURL string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

type logMailer struct {
	logger chat.Logger
}

// NewLogMailer returns a Mailer that writes each message to the logger.
func NewLogMailer(logger chat.Logger) Mailer {
	if logger == nil {
		logger = chat.DefaultLogger()
	}
	return logMailer{logger: logger}
}

func (m logMailer) SendVerification(ctx context.Context, email, token, continueURL string) error {
	m.logger.Info("verification mail to=%s continue=%s token=%s", email, continueURL, token)
	return nil
}

func (m logMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info("password reset mail to=%s token=%s", email, token)
	return nil
}
