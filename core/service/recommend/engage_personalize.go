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

// recentSubjectWindow limits how many subjects feed the prompt.
const recentSubjectWindow = 5

const personalizeSystemPrompt = `You are an email personalization strategist. ` +
	`Given a contact's recent email subjects, design an outreach strategy for ` +
	`replying to them. Respond with a JSON object containing exactly these keys: ` +
	`"tone" (string), "key_topics" (array of strings), "greeting_style" (string), ` +
	`"content_hooks" (array of strings), "call_to_action" (string), ` +
	`"personalization_notes" (string).`

type Personalizer struct {
	client out.CompletionClient
}

func NewPersonalizer(client out.CompletionClient) *Personalizer {
	return &Personalizer{client: client}
}

// Personalize builds an outreach strategy for the message's sender. The model
// reply is merged field by field onto the default strategy, so a partially
// valid reply still contributes what it can.
func (p *Personalizer) Personalize(ctx context.Context, profile *domain.EngagementProfile, msg domain.NormalizedMessage) domain.PersonalizationStrategy {
	strategy := domain.DefaultPersonalization()

	raw, err := p.client.CompleteJSON(ctx, personalizeSystemPrompt, personalizeUserPrompt(profile, msg))
	if err != nil {
		logger.WithError(err).Warn("personalization model call failed for %s", msg.Sender)
		return strategy
	}

	var reply struct {
		Tone                 *string  `json:"tone"`
		KeyTopics            []string `json:"key_topics"`
		GreetingStyle        *string  `json:"greeting_style"`
		ContentHooks         []string `json:"content_hooks"`
		CallToAction         *string  `json:"call_to_action"`
		PersonalizationNotes *string  `json:"personalization_notes"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		logger.WithError(err).Warn("personalization model returned invalid JSON for %s", msg.Sender)
		return strategy
	}

	if reply.Tone != nil && *reply.Tone != "" {
		strategy.Tone = *reply.Tone
	}
	if reply.KeyTopics != nil {
		strategy.KeyTopics = reply.KeyTopics
	}
	if reply.GreetingStyle != nil && *reply.GreetingStyle != "" {
		strategy.GreetingStyle = *reply.GreetingStyle
	}
	if reply.ContentHooks != nil {
		strategy.ContentHooks = reply.ContentHooks
	}
	if reply.CallToAction != nil && *reply.CallToAction != "" {
		strategy.CallToAction = *reply.CallToAction
	}
	if reply.PersonalizationNotes != nil && *reply.PersonalizationNotes != "" {
		strategy.PersonalizationNotes = *reply.PersonalizationNotes
	}

	return strategy
}

func personalizeUserPrompt(profile *domain.EngagementProfile, msg domain.NormalizedMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contact: %s <%s>\n", msg.SenderName, msg.Sender)
	fmt.Fprintf(&b, "Latest subject: %s\n", msg.Subject)
	if msg.Snippet != "" {
		fmt.Fprintf(&b, "Latest snippet: %s\n", msg.Snippet)
	}

	if profile != nil && len(profile.Topics) > 0 {
		subjects := profile.Topics
		if len(subjects) > recentSubjectWindow {
			subjects = subjects[len(subjects)-recentSubjectWindow:]
		}
		b.WriteString("Recent subjects:\n")
		for _, s := range subjects {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	b.WriteString("\nDesign a reply strategy for this contact.")
	return b.String()
}
