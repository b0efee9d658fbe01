// Package mailer delivers notification emails through Amazon SES.
// The portal treats email as best-effort: a disabled or failing
// mailer never blocks the workflow that triggered it.
package mailer

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends transactional email via SES.  When no sender address
// is configured the mailer is disabled and every send is skipped with
// a log line, which keeps local development working without AWS
// credentials.
type Mailer struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

// New builds a Mailer.  An empty fromEmail yields a disabled mailer
// and no AWS configuration is loaded.
func New(ctx context.Context, region, fromEmail, fromName string) (*Mailer, error) {
	if fromEmail == "" {
		log.Println("mailer disabled: SES_FROM_EMAIL not configured")
		return &Mailer{enabled: false}, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	log.Printf("mailer enabled: from=%s region=%s", fromEmail, region)
	return &Mailer{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

// Enabled reports whether emails will actually be sent.
func (m *Mailer) Enabled() bool { return m.enabled }

// SendVerificationCode emails a ninong their 6-digit verification
// code.  The code is included only in the message body, never logged.
func (m *Mailer) SendVerificationCode(ctx context.Context, toEmail, toName, code string) error {
	subject := "Your Ninong Verification Code"
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Use the verification code below to verify your email:\n\n"+
			"Code: %s\n\n"+
			"This code will expire in 10 minutes.\n"+
			"If you did not create a Ninong account, no further action is required.\n",
		toName, code)
	return m.send(ctx, toEmail, subject, body)
}

// SendRegistrationSubmitted confirms to a guardian that their
// submission was received.
func (m *Mailer) SendRegistrationSubmitted(ctx context.Context, toEmail, toName, reference, inaanakName string) error {
	subject := "INAANAK Registration Submitted - " + reference
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"We received your registration for %s.\n"+
			"Your reference number is %s. Keep it safe: you can check the\n"+
			"status of your registration any time with this number and your email.\n\n"+
			"Thank you for using our registration portal.\n",
		toName, inaanakName, reference)
	return m.send(ctx, toEmail, subject, body)
}

// SendStatusUpdated tells a guardian about a status change, with the
// rejection reason when one was recorded.
func (m *Mailer) SendStatusUpdated(ctx context.Context, toEmail, toName, reference, status, rejectionReason string) error {
	subject := fmt.Sprintf("Your registration status: %s", status)
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your registration (Ref: %s) status is now %s.\n",
		toName, reference, status)
	if rejectionReason != "" {
		body += "\nRejection reason:\n" + rejectionReason + "\n"
	}
	body += "\nThank you for using our registration portal.\n"
	return m.send(ctx, toEmail, subject, body)
}

func (m *Mailer) send(ctx context.Context, toEmail, subject, body string) error {
	if !m.enabled {
		log.Printf("mailer: skipping send (disabled): %q to %s", subject, toEmail)
		return nil
	}
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
