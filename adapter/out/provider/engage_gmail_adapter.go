// Package provider implements mailbox provider adapters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"engage_server/core/port/out"
	"engage_server/pkg/logger"
)

// metadataHeaders is the only header set the analysis pipeline consumes.
var metadataHeaders = []string{"From", "Subject", "Date"}

// GmailAdapter implements out.MailboxProvider against the Gmail API. All
// calls run behind a circuit breaker so a flapping upstream fails fast
// instead of stacking timeouts.
type GmailAdapter struct {
	cb *gobreaker.CircuitBreaker
}

func NewGmailAdapter() *GmailAdapter {
	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &GmailAdapter{
		cb: gobreaker.NewCircuitBreaker(settings),
	}
}

func (a *GmailAdapter) getService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return gmail.NewService(ctx, option.WithTokenSource(
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
	))
}

// ListRecentMessages returns up to max inbox message IDs, most recent first.
func (a *GmailAdapter) ListRecentMessages(ctx context.Context, accessToken string, max int) ([]string, error) {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	if max <= 0 {
		max = 50
	}

	var resp *gmail.ListMessagesResponse
	cbErr := a.execute(func() error {
		var apiErr error
		resp, apiErr = svc.Users.Messages.List("me").
			LabelIds("INBOX").
			MaxResults(int64(max)).
			Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, wrapError(cbErr, "list messages")
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage fetches one message's metadata headers and snippet. The metadata
// format skips the body entirely.
func (a *GmailAdapter) GetMessage(ctx context.Context, accessToken, messageID string) (*out.RawMessage, error) {
	svc, err := a.getService(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	var msg *gmail.Message
	cbErr := a.execute(func() error {
		var apiErr error
		msg, apiErr = svc.Users.Messages.Get("me", messageID).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).Do()
		return apiErr
	})
	if cbErr != nil {
		return nil, wrapError(cbErr, "get message "+messageID)
	}

	raw := &out.RawMessage{
		ID:      msg.Id,
		Snippet: msg.Snippet,
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			raw.Headers = append(raw.Headers, out.RawHeader{Name: h.Name, Value: h.Value})
		}
	}
	return raw, nil
}

// nonCircuitError shields client-side errors from tripping the breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }
func (e *nonCircuitError) Unwrap() error { return e.err }

func (a *GmailAdapter) execute(fn func() error) error {
	_, err := a.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch apiErr.Code {
				case 400, 401, 403, 404:
					// Client errors must not open the circuit.
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})
	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	return err
}

func wrapError(err error, op string) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return fmt.Errorf("gmail %s: http %d: %w", op, apiErr.Code, err)
	}
	return fmt.Errorf("gmail %s: %w", op, err)
}

var _ out.MailboxProvider = (*GmailAdapter)(nil)
