package email

import (
	"context"
	"fmt"

	"membership_renewal_service/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the subset of the SES client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers templated email through Amazon SES.
type SESSender struct {
	client   SESAPI
	from     string
	renderer *TemplateRenderer
}

func NewSESSender(client SESAPI, from string, renderer *TemplateRenderer) *SESSender {
	return &SESSender{client: client, from: from, renderer: renderer}
}

// NewSESSenderFromRegion loads the default AWS credential chain for region.
func NewSESSenderFromRegion(ctx context.Context, region, from string, renderer *TemplateRenderer) (*SESSender, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESSender(ses.NewFromConfig(cfg), from, renderer), nil
}

func (s *SESSender) Send(ctx context.Context, recipient string, templateID notification.TemplateID, data any) error {
	msg, err := s.renderer.Render(templateID, data)
	if err != nil {
		return err
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &types.Destination{ToAddresses: []string{recipient}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s failed: %w", recipient, err)
	}
	return nil
}
