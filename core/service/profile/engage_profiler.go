package profile

import (
	"net/mail"
	"time"

	"engage_server/core/domain"
	"engage_server/pkg/logger"
)

// BuildProfiles aggregates messages into per-sender profiles. Every sender in
// the batch gets a profile entry; a message whose date cannot be parsed
// contributes to neither sequence, not even its subject, since partial events
// would skew the send-time signal.
func BuildProfiles(msgs []domain.NormalizedMessage) domain.ProfileSet {
	profiles := make(domain.ProfileSet)

	for _, msg := range msgs {
		p, ok := profiles[msg.Sender]
		if !ok {
			p = &domain.EngagementProfile{Sender: msg.Sender}
			profiles[msg.Sender] = p
		}

		ts, err := mail.ParseDate(msg.Date)
		if err != nil {
			logger.WithField("email_id", msg.ID).Debug("dropping message with unparsable date %q", msg.Date)
			continue
		}

		p.SentTimes = append(p.SentTimes, domain.SendEvent{
			Hour:      ts.Hour(),
			Day:       ts.Weekday().String(),
			Timestamp: ts.Format(time.RFC3339),
		})
		p.Topics = append(p.Topics, msg.Subject)
	}

	return profiles
}
