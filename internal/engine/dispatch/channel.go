// internal/engine/dispatch/channel.go
package dispatch

import (
	"context"
	"errors"

	awsclient "blood-alert-workers/internal/common/aws"
)

// ErrChannelNotConfigured is returned by Send on a channel without credentials.
var ErrChannelNotConfigured = errors.New("notification channel not configured")

// Channel delivers one message to one contact. Configured reports whether real sends happen;
// the dispatcher never calls Send on an unconfigured channel.
type Channel interface {
	Send(ctx context.Context, contact, body string) error
	Configured() bool
}

// SNSChannel sends SMS alerts through AWS SNS.
type SNSChannel struct {
	client   awsclient.SNSService
	senderID string
	smsType  string
}

func NewSNSChannel(client awsclient.SNSService, senderID, smsType string) *SNSChannel {
	return &SNSChannel{client: client, senderID: senderID, smsType: smsType}
}

func (c *SNSChannel) Send(ctx context.Context, contact, body string) error {
	if c.client == nil {
		return ErrChannelNotConfigured
	}
	_, err := c.client.Publish(ctx, awsclient.SMSInput(contact, body, c.senderID, c.smsType))
	return err
}

func (c *SNSChannel) Configured() bool {
	return c.client != nil
}

type unconfiguredChannel struct{}

// NewUnconfiguredChannel returns the simulation-mode channel.
func NewUnconfiguredChannel() Channel {
	return unconfiguredChannel{}
}

func (unconfiguredChannel) Send(context.Context, string, string) error {
	return ErrChannelNotConfigured
}

func (unconfiguredChannel) Configured() bool { return false }
