package mailer

import (
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// SESMailer sends email through Amazon SES.
type SESMailer struct {
	svc    *ses.SES
	sender string
}

// NewSESMailer creates an SES-backed mailer for the given region and
// verified sender address.
func NewSESMailer(region, sender string) (*SESMailer, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("create AWS session: %w", err)
	}
	return &SESMailer{svc: ses.New(sess), sender: sender}, nil
}

// Send sends one plain-text email.
func (m *SESMailer) Send(to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(subject),
			},
			Body: &ses.Body{
				Text: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(body),
				},
			},
		},
	}

	if _, err := m.svc.SendEmail(input); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}
