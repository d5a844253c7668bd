// Package messaging wraps the Twilio API for SMS delivery.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Service sends one SMS to one recipient.
type Service interface {
	Send(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio SMS client.
type Opts struct {
	AccountSID          string
	AuthToken           string
	FromNumber          string
	MessagingServiceSID string
}

// Option defines a configuration option for the Twilio SMS client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sender number in E.164 format.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// WithMessagingServiceSID routes sends through a Twilio messaging service
// instead of a single from number.
func WithMessagingServiceSID(sid string) Option {
	return func(o *Opts) { o.MessagingServiceSID = sid }
}

// TwilioClient implements Service against the Twilio REST API.
type TwilioClient struct {
	client              *twilio.RestClient
	fromNumber          string
	messagingServiceSID string
}

// NewTwilioClient builds an SMS client. Options fall back to the
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER and
// TWILIO_MESSAGING_SERVICE_SID environment variables.
func NewTwilioClient(opts ...Option) (*TwilioClient, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.MessagingServiceSID == "" {
		cfg.MessagingServiceSID = os.Getenv("TWILIO_MESSAGING_SERVICE_SID")
	}

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" && cfg.MessagingServiceSID == "" {
		return nil, fmt.Errorf("a from number or messaging service SID must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioClient{
		client:              client,
		fromNumber:          cfg.FromNumber,
		messagingServiceSID: cfg.MessagingServiceSID,
	}, nil
}

// Send delivers an SMS to a recipient in E.164 format.
func (c *TwilioClient) Send(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(body)
	if c.messagingServiceSID != "" {
		params.SetMessagingServiceSid(c.messagingServiceSID)
	} else {
		params.SetFrom(c.fromNumber)
	}

	_, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Twilio SMS send failed", "to", to, "error", err)
		return fmt.Errorf("failed to send SMS to %s: %w", to, err)
	}

	slog.Debug("Twilio SMS sent", "to", to)
	return nil
}

// MockService records sent messages for tests.
type MockService struct {
	Sent []SentMessage
	Err  error
}

// SentMessage is one recorded send.
type SentMessage struct {
	To   string
	Body string
}

func (m *MockService) Send(ctx context.Context, to string, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}
