package mail

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/chronoplan-io/chronoplan/internal/config"
	log "github.com/sirupsen/logrus"
)

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	client *sesv2.Client
	from   string
}

// NewSESMailer builds an SES client. Static credentials from config take
// precedence; otherwise the SDK's default chain (IAM role, env) applies.
func NewSESMailer(cfg *config.Config) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Mail.Region),
	}
	if cfg.Mail.AccessKey != "" && cfg.Mail.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Mail.AccessKey, cfg.Mail.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	return &SESMailer{
		client: sesv2.NewFromConfig(awsCfg),
		from:   cfg.Mail.From,
	}, nil
}

// Send delivers the message via the SES SendEmail API.
func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(body),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		log.Printf("Failed to send email via SES: %v (to=%s)", err, to)
		return err
	}

	log.Printf("Email sent via SES: to=%s subject=%q", to, subject)
	return nil
}
