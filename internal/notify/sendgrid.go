// Package notify delivers submission emails through the SendGrid v3 API.
package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Defaults applied by NewSendGrid for empty options.
const (
	DefaultBaseURL = "https://api.sendgrid.com"
	DefaultFrom    = "no-reply@fineplay.kr"
	DefaultTimeout = 20 * time.Second

	sendEndpoint = "/v3/mail/send"
)

// ErrMissingAPIKey is returned before any network call when no SendGrid API
// key is configured.
var ErrMissingAPIKey = errors.New("SENDGRID_API_KEY is not set")

// DeliveryError is returned when SendGrid answers with a status other than
// 200 or 202. Body is the raw provider response, kept for logs only.
type DeliveryError struct {
	StatusCode int
	Body       string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("sendgrid error: %d %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Attachment is one file on the outgoing email.
type Attachment struct {
	Filename string
	Content  []byte
	MIMEType string
}

// Message is a plain-text email with attachments.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Options configures a SendGrid sender.
type Options struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// SendGrid sends mail with one POST to /v3/mail/send. It never retries.
type SendGrid struct {
	apiKey  string
	from    string
	baseURL string
	client  *rest.Client
}

// NewSendGrid returns a sender. An empty APIKey is accepted here and
// reported by Send.
func NewSendGrid(opts Options) *SendGrid {
	if opts.From == "" {
		opts.From = DefaultFrom
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &SendGrid{
		apiKey:  opts.APIKey,
		from:    opts.From,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &rest.Client{HTTPClient: &http.Client{Timeout: opts.Timeout}},
	}
}

// From returns the sender address.
func (s *SendGrid) From() string { return s.from }

// Send implements Sender.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if s.apiKey == "" {
		return ErrMissingAPIKey
	}

	request := sendgrid.GetRequest(s.apiKey, sendEndpoint, s.baseURL)
	request.Method = rest.Post
	request.Body = mail.GetRequestBody(s.build(msg))

	resp, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &DeliveryError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return nil
}

// build converts msg into a v3 mail body with base64 attachments.
func (s *SendGrid) build(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail("", s.from))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	m.AddPersonalizations(p)

	m.AddContent(mail.NewContent("text/plain", msg.Body))

	for _, a := range msg.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		att.SetType(a.MIMEType)
		att.SetFilename(a.Filename)
		att.SetDisposition("attachment")
		m.AddAttachment(att)
	}

	return m
}
