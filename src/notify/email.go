package notify

import (
	"context"
	"hbs/src/lib"
	"hbs/src/lib/aws"
	"hbs/src/types"
	"os"
)

// EmailSender delivers guest email over SMTP, or over SES when the
// process is configured with EMAIL_PROVIDER=ses.
type EmailSender struct {
	from     string
	fromName string
	provider string
}

func NewEmailSender() *EmailSender {
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USERNAME")
	}
	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "Reservations"
	}
	return &EmailSender{
		from:     from,
		fromName: fromName,
		provider: os.Getenv("EMAIL_PROVIDER"),
	}
}

func (s *EmailSender) Send(_ context.Context, to, subject, html string) error {
	if s.provider == "ses" {
		return aws.SESSendEmail(s.from, to, subject, html)
	}
	err := lib.SendMail(&lib.SendMailInput{
		From:     s.from,
		FromName: s.fromName,
		To:       []string{to},
		Subject:  subject,
		Body:     html,
		Html:     true,
	})
	if err != nil {
		return &types.DispatchFailure{Channel: types.CHANNEL_EMAIL, Reason: "smtp send failed", Err: err}
	}
	return nil
}
