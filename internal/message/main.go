package message

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

type MessengerType string

const (
	// MessengerTypeAWSEmail sends report emails through AWS SES.
	MessengerTypeAWSEmail MessengerType = "AWS_EMAIL"
	// MessengerTypeDryRun logs emails instead of sending them, for development environments.
	MessengerTypeDryRun MessengerType = "DRY_RUN"
)

func (mt MessengerType) All() []MessengerType {
	return []MessengerType{MessengerTypeAWSEmail, MessengerTypeDryRun}
}

func ParseMessengerType(messengerTypeStr string) (MessengerType, error) {
	mType := MessengerType(strings.ToUpper(messengerTypeStr))
	if slices.Contains(mType.All(), mType) {
		return mType, nil
	}
	return "", fmt.Errorf("invalid messenger type %q", messengerTypeStr)
}

type MessengerOptions struct {
	MessengerType MessengerType

	// AWS
	AWSRegion          string
	AWSSESSenderEmail  string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// GetClient builds the MessengerClient described by the options.
func GetClient(ctx context.Context, opts MessengerOptions) (MessengerClient, error) {
	switch opts.MessengerType {
	case MessengerTypeAWSEmail:
		return NewAWSSESClient(ctx, opts.AWSRegion, opts.AWSSESSenderEmail, opts.AWSAccessKeyID, opts.AWSSecretAccessKey)
	case MessengerTypeDryRun:
		return NewDryRunClient()
	default:
		return nil, fmt.Errorf("unknown messenger type %q", opts.MessengerType)
	}
}
