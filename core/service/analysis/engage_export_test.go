package analysis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"engage_server/core/domain"
	"engage_server/pkg/apperr"
)

func exportFixture(userID uuid.UUID) domain.AnalysisRecord {
	return domain.AnalysisRecord{
		ID:         uuid.New(),
		UserID:     userID,
		EmailID:    "m1",
		Sender:     "ada@example.com",
		SenderName: "Ada Lovelace",
		Subject:    "Launch plan",
		Snippet:    "Thoughts on the launch...",
		SendTime: domain.SendTimeRecommendation{
			RecommendedHour: 9,
			RecommendedDay:  "Tuesday",
			Confidence:      domain.ConfidenceHigh,
			Reasoning:       "consistent morning sender",
		},
		Personalization: domain.PersonalizationStrategy{
			Tone:                 "friendly",
			KeyTopics:            []string{"launch", "pricing"},
			GreetingStyle:        "Hi Ada",
			ContentHooks:         []string{"recent launch"},
			CallToAction:         "Book a call",
			PersonalizationNotes: "warm contact",
		},
		OptimalTime: domain.OptimalTime{Hour: 9, Day: "Tuesday"},
		CreatedAt:   time.Date(2025, 1, 20, 14, 30, 0, 0, time.UTC),
	}
}

func TestExportMarkdown(t *testing.T) {
	userID := uuid.New()
	rec := exportFixture(userID)
	analyses := &fakeAnalysisRepo{saved: []domain.AnalysisRecord{rec}}
	o := testOrchestrator(&fakeUserRepo{}, analyses, &fakeMailbox{}, &fakeCredentials{}, &fakeModel{})

	body, contentType, err := o.Export(context.Background(), userID, rec.ID, FormatMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "text/markdown; charset=utf-8" {
		t.Errorf("content type = %q", contentType)
	}

	for _, want := range []string{
		"# Email Engagement Analysis",
		"2025-01-20 14:30 UTC",
		"**Message ID:** m1",
		"Ada Lovelace <ada@example.com>",
		"**Subject:** Launch plan",
		"Tuesday at 09:00",
		"**Confidence:** high",
		"launch, pricing",
		"Book a call",
		"**Analysis ID:** " + rec.ID.String(),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("markdown missing %q:\n%s", want, body)
		}
	}

	if len(analyses.exportLogs) != 1 {
		t.Fatalf("expected one export log entry, got %d", len(analyses.exportLogs))
	}
	if got := analyses.exportLogs[0]; got.analysisID != rec.ID || got.format != FormatMarkdown {
		t.Errorf("export log = %+v", got)
	}
}

func TestExportText(t *testing.T) {
	userID := uuid.New()
	rec := exportFixture(userID)
	analyses := &fakeAnalysisRepo{saved: []domain.AnalysisRecord{rec}}
	o := testOrchestrator(&fakeUserRepo{}, analyses, &fakeMailbox{}, &fakeCredentials{}, &fakeModel{})

	body, contentType, err := o.Export(context.Background(), userID, rec.ID, FormatText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentType != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", contentType)
	}
	if strings.Contains(body, "#") {
		t.Error("plain text export should carry no markdown")
	}
	for _, want := range []string{
		"EMAIL ENGAGEMENT ANALYSIS",
		"Message: m1",
		"Tuesday at 09:00",
		"Book a call",
		"Analysis ID: " + rec.ID.String(),
	} {
		if !strings.Contains(body, want) {
			t.Errorf("text missing %q:\n%s", want, body)
		}
	}

	if len(analyses.exportLogs) != 1 || analyses.exportLogs[0].format != FormatText {
		t.Errorf("export logs = %+v", analyses.exportLogs)
	}
}

func TestExportDefaultsToMarkdown(t *testing.T) {
	userID := uuid.New()
	rec := exportFixture(userID)
	analyses := &fakeAnalysisRepo{saved: []domain.AnalysisRecord{rec}}
	o := testOrchestrator(&fakeUserRepo{}, analyses, &fakeMailbox{}, &fakeCredentials{}, &fakeModel{})

	body, _, err := o.Export(context.Background(), userID, rec.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(body, "# Email Engagement Analysis") {
		t.Errorf("expected markdown by default:\n%s", body)
	}
	// The blank format is normalized before it reaches the usage log.
	if len(analyses.exportLogs) != 1 || analyses.exportLogs[0].format != FormatMarkdown {
		t.Errorf("export logs = %+v", analyses.exportLogs)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	userID := uuid.New()
	rec := exportFixture(userID)
	analyses := &fakeAnalysisRepo{saved: []domain.AnalysisRecord{rec}}
	o := testOrchestrator(&fakeUserRepo{}, analyses, &fakeMailbox{}, &fakeCredentials{}, &fakeModel{})

	_, _, err := o.Export(context.Background(), userID, rec.ID, "pdf")
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Fatalf("expected bad-request, got %v", err)
	}
	if len(analyses.exportLogs) != 0 {
		t.Errorf("rejected export should not be logged, got %+v", analyses.exportLogs)
	}
}

func TestExportEnforcesOwnership(t *testing.T) {
	owner := uuid.New()
	rec := exportFixture(owner)
	analyses := &fakeAnalysisRepo{saved: []domain.AnalysisRecord{rec}}
	o := testOrchestrator(&fakeUserRepo{}, analyses, &fakeMailbox{}, &fakeCredentials{}, &fakeModel{})

	_, _, err := o.Export(context.Background(), uuid.New(), rec.ID, FormatMarkdown)
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected not-found for foreign record, got %v", err)
	}
}
