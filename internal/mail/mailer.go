package mail

import (
	"context"

	"github.com/chronoplan-io/chronoplan/internal/config"
	log "github.com/sirupsen/logrus"
)

// Mailer delivers a message to a recipient. Message bodies may contain raw
// credentials; implementations hand them to the transport and nothing else.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer is the development fallback. It records that a delivery happened
// but never the body, which may carry a credential.
type LogMailer struct{}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("Mail delivery (log mode): to=%s subject=%q body_bytes=%d", to, subject, len(body))
	return nil
}

// NewMailer selects the mailer implementation from config.
func NewMailer(cfg *config.Config) Mailer {
	switch cfg.Mail.Mode {
	case "ses":
		mailer, err := NewSESMailer(cfg)
		if err != nil {
			log.Printf("Warning: SES mailer unavailable (%v), falling back to log mailer", err)
			return &LogMailer{}
		}
		return mailer
	default:
		return &LogMailer{}
	}
}
