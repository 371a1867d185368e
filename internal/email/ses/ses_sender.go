package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"silkroute/internal/port"
)

type sesSender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	frontendURL string
}

// NewSESSender creates a new SES-backed EmailSender.
func NewSESSender(region, fromAddress, fromName, frontendURL string) (port.EmailSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		frontendURL: frontendURL,
	}, nil
}

func (s *sesSender) SendDeclarationReady(ctx context.Context, toEmail, toName string, notice port.DeclarationReadyNotice) error {
	subject := fmt.Sprintf("Declaration draft ready: %s", notice.ShipmentName)
	htmlBody := buildDeclarationReadyHTML(toName, s.frontendURL, notice)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nThe declaration draft for shipment %q is ready for review.\n\nFilled fields: %d of %d\nRequired fields filled: %d of %d\n\nReview it at %s\n\nSilkRoute Team",
		toName, notice.ShipmentName,
		notice.FilledFields, notice.TotalFields,
		notice.FilledRequired, notice.RequiredFields,
		s.frontendURL)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildDeclarationReadyHTML(name, frontendURL string, notice port.DeclarationReadyNotice) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Declaration draft ready</h2>
  <p>Hi %s,</p>
  <p>The declaration draft for shipment <strong>%s</strong> has been generated and is ready for review.</p>
  <ul>
    <li>Filled fields: %d of %d</li>
    <li>Required fields filled: %d of %d</li>
  </ul>
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Review Declaration</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">SilkRoute - Customs Declaration Helper</p>
</body>
</html>`,
		name, notice.ShipmentName,
		notice.FilledFields, notice.TotalFields,
		notice.FilledRequired, notice.RequiredFields,
		frontendURL)
}
