package mail

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

const defaultSESRegion = "us-east-1"

// SESTransport sends through the Amazon SES v2 API.
// Provider fields: User = access key id, Password = secret key, Host = region.
type SESTransport struct {
	client *sesv2.Client
}

// NewSESTransport builds an SES client with static credentials
func NewSESTransport(ctx context.Context, p *model.Provider) (*SESTransport, error) {
	if p.User == "" || p.Password == "" {
		return nil, fmt.Errorf("%w: access key and secret are required for ses", ErrMissingSetting)
	}
	region := p.Host
	if region == "" {
		region = defaultSESRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(p.User, p.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}

	return &SESTransport{client: sesv2.NewFromConfig(cfg)}, nil
}

// Name returns the transport name
func (t *SESTransport) Name() string {
	return "ses"
}

// Send sends msg as a simple SES message
func (t *SESTransport) Send(ctx context.Context, msg *Message) (*SendResult, error) {
	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	out, err := t.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ses: send: %w", err)
	}

	return &SendResult{MessageID: aws.ToString(out.MessageId)}, nil
}
