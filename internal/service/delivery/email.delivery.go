package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
)

// EmailSender delivers verification codes via Amazon SES.
type EmailSender struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
}

func NewEmailSender(ctx context.Context, awsRegion, fromEmail, fromName string) (*EmailSender, error) {
	if fromEmail == "" {
		log.Println("Email delivery disabled: SES_FROM_EMAIL not configured")
		return &EmailSender{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email delivery enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailSender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
	}, nil
}

func (s *EmailSender) Send(ctx context.Context, to, code, purpose string) error {
	requestID := uuid.New().String()

	if !s.enabled {
		log.Printf("Skipping email send (delivery disabled) | To=%s | RequestID=%s", to, requestID)
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	label := formatLabel(purpose)
	subject := fmt.Sprintf("Your Huddle %s Code", label)
	textBody := fmt.Sprintf("Your Huddle %s code is %s. It is valid for 5 minutes. If you did not request this code, ignore this email.", strings.ToLower(label), code)
	htmlBody := fmt.Sprintf(`<p>Your Huddle %s code is:</p><h2>%s</h2><p>It is valid for 5 minutes. If you did not request this code, ignore this email.</p>`, strings.ToLower(label), code)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
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
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("%s code emailed | To=%s | RequestID=%s", label, to, requestID)
	return nil
}
