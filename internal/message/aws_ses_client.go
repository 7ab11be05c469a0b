package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/internal/utils"
)

// awsSESAPI is the slice of the SES API the client uses.
type awsSESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type awsSESClient struct {
	emailService awsSESAPI
	senderEmail  string
}

func (c *awsSESClient) MessengerType() MessengerType {
	return MessengerTypeAWSEmail
}

func (c *awsSESClient) SendMessage(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("validating message to send an email through AWS SES: %w", err)
	}

	_, err := c.emailService.SendEmail(ctx, generateAWSEmail(message, c.senderEmail))
	if err != nil {
		return fmt.Errorf("sending AWS SES email: %w", err)
	}

	log.WithContext(ctx).Debugf("🎉 AWS SES sent an email to the receiver %q", utils.TruncateString(message.ToEmail, 3))
	return nil
}

func generateAWSEmail(message Message, sender string) *ses.SendEmailInput {
	return &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{message.ToEmail},
		},
		Message: &types.Message{
			Body: &types.Body{
				Html: &types.Content{
					Charset: aws.String("utf-8"),
					Data:    aws.String(message.Body),
				},
			},
			Subject: &types.Content{
				Charset: aws.String("utf-8"),
				Data:    aws.String(message.Title),
			},
		},
		Source: aws.String(sender),
	}
}

// NewAWSSESClient creates an SES-backed MessengerClient. When accessKeyID and secretAccessKey
// are set they are used as static credentials, otherwise the default AWS chain applies
// (environment, shared config, instance role).
func NewAWSSESClient(ctx context.Context, region, senderEmail, accessKeyID, secretAccessKey string) (MessengerClient, error) {
	region = strings.TrimSpace(region)
	if region == "" {
		return nil, fmt.Errorf("aws region is empty")
	}

	senderEmail = strings.TrimSpace(senderEmail)
	if err := utils.ValidateEmail(senderEmail); err != nil {
		return nil, fmt.Errorf("aws SES sender email is invalid: %w", err)
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &awsSESClient{
		senderEmail:  senderEmail,
		emailService: ses.NewFromConfig(awsCfg),
	}, nil
}

var _ MessengerClient = (*awsSESClient)(nil)
