// Package profile turns raw mailbox messages into per-sender engagement
// profiles.
package profile

import (
	"strings"

	"engage_server/core/domain"
	"engage_server/core/port/out"
)

// ParseFrom splits an RFC 5322 From header into address and display name.
// "Ada Lovelace <ada@example.com>" yields ("ada@example.com", "Ada Lovelace").
// Without angle brackets the first whitespace-delimited token is the address
// and the whole header the display name. An empty header yields the unknown
// sender.
func ParseFrom(from string) (sender, name string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return domain.UnknownSender, domain.UnknownSender
	}

	if open := strings.Index(from, "<"); open >= 0 {
		name = strings.TrimSpace(from[:open])
		rest := from[open+1:]
		if end := strings.Index(rest, ">"); end >= 0 {
			sender = strings.TrimSpace(rest[:end])
		} else {
			sender = strings.TrimSpace(rest)
		}
		name = strings.Trim(name, `"`)
		if sender == "" {
			sender = domain.UnknownSender
		}
		if name == "" {
			name = sender
		}
		return sender, name
	}

	return strings.Fields(from)[0], from
}

// Normalize maps a raw message to the canonical shape, applying header
// defaults.
func Normalize(raw *out.RawMessage) domain.NormalizedMessage {
	sender, name := ParseFrom(raw.Header("From"))

	subject := strings.TrimSpace(raw.Header("Subject"))
	if subject == "" {
		subject = domain.NoSubjectPlaceholder
	}

	return domain.NormalizedMessage{
		ID:         raw.ID,
		Sender:     sender,
		SenderName: name,
		Subject:    subject,
		Snippet:    raw.Snippet,
		Date:       raw.Header("Date"),
	}
}

// NormalizeBatch normalizes every message, preserving input order. Messages
// are never dropped here; unparsable dates are handled during profiling.
func NormalizeBatch(raws []*out.RawMessage) []domain.NormalizedMessage {
	msgs := make([]domain.NormalizedMessage, 0, len(raws))
	for _, raw := range raws {
		if raw == nil {
			continue
		}
		msgs = append(msgs, Normalize(raw))
	}
	return msgs
}
