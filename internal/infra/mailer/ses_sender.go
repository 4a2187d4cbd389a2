// Package mailer delivers notification messages as email through Amazon SES.
package mailer

import (
	"context"
	"fmt"

	"ats_workflow/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const DefaultSubject = "ATS Notification"

// API is the subset of the SES client the sender uses.
type API interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client  API
	from    string
	subject string
}

func NewSESSender(client API, from string) *SESSender {
	return &SESSender{client: client, from: from, subject: DefaultSubject}
}

// Send emails msg as plain text to its candidate address.
func (s *SESSender) Send(ctx context.Context, msg notification.Message) error {
	if msg.CandidateEmail == "" {
		return fmt.Errorf("message has no destination address")
	}
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.CandidateEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(s.subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Text())},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending email to %s: %w", msg.CandidateEmail, err)
	}
	return nil
}
