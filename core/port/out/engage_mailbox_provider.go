// Package out defines outbound ports implemented by adapters.
package out

import (
	"context"
	"strings"
)

// RawHeader is a single message header as the provider returns it.
type RawHeader struct {
	Name  string
	Value string
}

// RawMessage is a provider message before normalization.
type RawMessage struct {
	ID      string
	Snippet string
	Headers []RawHeader
}

// Header returns the first header value matching name, case-insensitively.
func (m *RawMessage) Header(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// MailboxProvider reads recent messages from a user's delegated mailbox.
type MailboxProvider interface {
	// ListRecentMessages returns up to max message IDs, most recent first.
	ListRecentMessages(ctx context.Context, accessToken string, max int) ([]string, error)

	// GetMessage fetches one message's metadata headers and snippet.
	GetMessage(ctx context.Context, accessToken, messageID string) (*RawMessage, error)
}
