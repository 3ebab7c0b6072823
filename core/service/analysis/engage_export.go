package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"engage_server/core/domain"
	"engage_server/pkg/apperr"
	"engage_server/pkg/logger"
)

const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Export renders one analysis as a downloadable document and records the
// export in the usage log. Returns the body and its content type.
func (o *Orchestrator) Export(ctx context.Context, userID, id uuid.UUID, format string) (string, string, error) {
	rec, err := o.Get(ctx, userID, id)
	if err != nil {
		return "", "", err
	}

	var body, contentType string
	switch format {
	case FormatMarkdown, "":
		format = FormatMarkdown
		body, contentType = renderMarkdown(rec), "text/markdown; charset=utf-8"
	case FormatText:
		body, contentType = renderText(rec), "text/plain; charset=utf-8"
	default:
		return "", "", apperr.BadRequest(fmt.Sprintf("unsupported export format: %s", format))
	}

	// The document is already rendered; a failed log entry is not worth
	// failing the download over.
	if err := o.analyses.LogExport(ctx, userID, id, format); err != nil {
		logger.WithError(err).Warn("failed to log export of analysis %s", id)
	}

	return body, contentType, nil
}

func renderMarkdown(rec *domain.AnalysisRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Email Engagement Analysis\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "## Email\n\n")
	fmt.Fprintf(&b, "- **Message ID:** %s\n", rec.EmailID)
	fmt.Fprintf(&b, "- **From:** %s <%s>\n", rec.SenderName, rec.Sender)
	fmt.Fprintf(&b, "- **Subject:** %s\n", rec.Subject)
	if rec.Snippet != "" {
		fmt.Fprintf(&b, "- **Preview:** %s\n", rec.Snippet)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Optimal Send Time\n\n")
	fmt.Fprintf(&b, "- **When:** %s at %02d:00\n", rec.SendTime.RecommendedDay, rec.SendTime.RecommendedHour)
	fmt.Fprintf(&b, "- **Confidence:** %s\n", rec.SendTime.Confidence)
	if rec.SendTime.Reasoning != "" {
		fmt.Fprintf(&b, "- **Why:** %s\n", rec.SendTime.Reasoning)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Personalization Strategy\n\n")
	fmt.Fprintf(&b, "- **Tone:** %s\n", rec.Personalization.Tone)
	fmt.Fprintf(&b, "- **Greeting:** %s\n", rec.Personalization.GreetingStyle)
	if len(rec.Personalization.KeyTopics) > 0 {
		fmt.Fprintf(&b, "- **Key topics:** %s\n", strings.Join(rec.Personalization.KeyTopics, ", "))
	}
	if len(rec.Personalization.ContentHooks) > 0 {
		fmt.Fprintf(&b, "- **Content hooks:** %s\n", strings.Join(rec.Personalization.ContentHooks, ", "))
	}
	fmt.Fprintf(&b, "- **Call to action:** %s\n", rec.Personalization.CallToAction)
	fmt.Fprintf(&b, "- **Notes:** %s\n", rec.Personalization.PersonalizationNotes)
	b.WriteString("\n")

	fmt.Fprintf(&b, "**Analysis ID:** %s\n", rec.ID)

	return b.String()
}

func renderText(rec *domain.AnalysisRecord) string {
	var b strings.Builder

	b.WriteString("EMAIL ENGAGEMENT ANALYSIS\n")
	b.WriteString("=========================\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04 MST"))

	fmt.Fprintf(&b, "Message: %s\n", rec.EmailID)
	fmt.Fprintf(&b, "From:    %s <%s>\n", rec.SenderName, rec.Sender)
	fmt.Fprintf(&b, "Subject: %s\n", rec.Subject)
	if rec.Snippet != "" {
		fmt.Fprintf(&b, "Preview: %s\n", rec.Snippet)
	}
	b.WriteString("\n")

	b.WriteString("OPTIMAL SEND TIME\n")
	fmt.Fprintf(&b, "  When:       %s at %02d:00\n", rec.SendTime.RecommendedDay, rec.SendTime.RecommendedHour)
	fmt.Fprintf(&b, "  Confidence: %s\n", rec.SendTime.Confidence)
	if rec.SendTime.Reasoning != "" {
		fmt.Fprintf(&b, "  Why:        %s\n", rec.SendTime.Reasoning)
	}
	b.WriteString("\n")

	b.WriteString("PERSONALIZATION STRATEGY\n")
	fmt.Fprintf(&b, "  Tone:           %s\n", rec.Personalization.Tone)
	fmt.Fprintf(&b, "  Greeting:       %s\n", rec.Personalization.GreetingStyle)
	if len(rec.Personalization.KeyTopics) > 0 {
		fmt.Fprintf(&b, "  Key topics:     %s\n", strings.Join(rec.Personalization.KeyTopics, ", "))
	}
	if len(rec.Personalization.ContentHooks) > 0 {
		fmt.Fprintf(&b, "  Content hooks:  %s\n", strings.Join(rec.Personalization.ContentHooks, ", "))
	}
	fmt.Fprintf(&b, "  Call to action: %s\n", rec.Personalization.CallToAction)
	fmt.Fprintf(&b, "  Notes:          %s\n", rec.Personalization.PersonalizationNotes)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Analysis ID: %s\n", rec.ID)

	return b.String()
}
