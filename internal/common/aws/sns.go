// internal/common/aws/sns.go
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SMS attribute keys understood by SNS direct-to-phone publishing.
const (
	AttrSenderID = "AWS.SNS.SMS.SenderID"
	AttrSMSType  = "AWS.SNS.SMS.SMSType"
)

// SNSService is the subset of the SNS API used for SMS. *sns.Client satisfies it.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client *sns.Client
}

// ErrNoCredentials means the default chain resolved no usable credentials.
var ErrNoCredentials = errors.New("no AWS credentials resolved")

func NewSNSClient(ctx context.Context, region string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSNSClientFromConfig(ctx, cfg)
}

// NewSNSClientFromConfig retrieves credentials once so a missing key fails here instead of on every publish.
func NewSNSClientFromConfig(ctx context.Context, cfg aws.Config) (*SNSClient, error) {
	if cfg.Credentials == nil {
		return nil, ErrNoCredentials
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
	}
	if !creds.HasKeys() {
		return nil, ErrNoCredentials
	}
	return &SNSClient{client: sns.NewFromConfig(cfg)}, nil
}

func (s *SNSClient) Publish(ctx context.Context, input *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return s.client.Publish(ctx, input, optFns...)
}

// SMSInput builds a direct-to-phone publish request. Empty senderID or smsType are omitted.
func SMSInput(phone, message, senderID, smsType string) *sns.PublishInput {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}

	attrs := map[string]types.MessageAttributeValue{}
	if senderID != "" {
		attrs[AttrSenderID] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(senderID),
		}
	}
	if smsType != "" {
		attrs[AttrSMSType] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(smsType),
		}
	}
	if len(attrs) > 0 {
		input.MessageAttributes = attrs
	}
	return input
}
