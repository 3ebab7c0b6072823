// Package recommend produces model-backed send-time and personalization
// advice. Every call degrades to a fixed default; the pipeline never fails
// because the model did.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"engage_server/core/domain"
	"engage_server/core/port/out"
	"engage_server/pkg/logger"
)

const sendTimeSystemPrompt = `You are an email engagement analyst. ` +
	`Given a sender's historical send times, recommend the best hour and weekday ` +
	`to email them back. Respond with a JSON object containing exactly these keys: ` +
	`"recommended_hour" (integer 0-23), "recommended_day" (weekday name), ` +
	`"confidence" ("low", "medium" or "high"), "reasoning" (one sentence).`

type SendTimePredictor struct {
	client out.CompletionClient
}

func NewSendTimePredictor(client out.CompletionClient) *SendTimePredictor {
	return &SendTimePredictor{client: client}
}

// Predict recommends a send time for the sender. A nil or empty profile skips
// the model entirely; any model failure or contract violation falls back to
// the default recommendation, with reasoning that tells the two cases apart.
func (p *SendTimePredictor) Predict(ctx context.Context, profile *domain.EngagementProfile) domain.SendTimeRecommendation {
	if profile == nil || len(profile.SentTimes) == 0 {
		return domain.DefaultSendTime()
	}

	raw, err := p.client.CompleteJSON(ctx, sendTimeSystemPrompt, sendTimeUserPrompt(profile))
	if err != nil {
		logger.WithError(err).Warn("send-time model call failed for %s", profile.Sender)
		return inferenceFailureSendTime()
	}

	var rec domain.SendTimeRecommendation
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.WithError(err).Warn("send-time model returned invalid JSON for %s", profile.Sender)
		return inferenceFailureSendTime()
	}

	if !validSendTime(rec) {
		logger.Warn("send-time model violated contract for %s: %+v", profile.Sender, rec)
		return inferenceFailureSendTime()
	}

	return rec
}

// inferenceFailureSendTime is the no-data default with reasoning that marks it
// as a failed inference rather than an empty history.
func inferenceFailureSendTime() domain.SendTimeRecommendation {
	rec := domain.DefaultSendTime()
	rec.Reasoning = "Default recommendation: send-time inference unavailable"
	return rec
}

func sendTimeUserPrompt(profile *domain.EngagementProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sender: %s\n", profile.Sender)
	fmt.Fprintf(&b, "Observed sends (%d):\n", len(profile.SentTimes))
	for _, ev := range profile.SentTimes {
		fmt.Fprintf(&b, "- %s at %02d:00\n", ev.Day, ev.Hour)
	}
	b.WriteString("\nRecommend when to email this sender for the best chance of engagement.")
	return b.String()
}

var weekdays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true,
	"Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
}

func validSendTime(rec domain.SendTimeRecommendation) bool {
	if rec.RecommendedHour < 0 || rec.RecommendedHour > 23 {
		return false
	}
	if !weekdays[rec.RecommendedDay] {
		return false
	}
	switch rec.Confidence {
	case domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh:
		return true
	}
	return false
}
