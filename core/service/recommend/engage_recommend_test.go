package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"engage_server/core/domain"
)

type fakeCompletion struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (f *fakeCompletion) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.reply, f.err
}

func profileWith(events int) *domain.EngagementProfile {
	p := &domain.EngagementProfile{Sender: "ada@example.com"}
	for i := 0; i < events; i++ {
		p.SentTimes = append(p.SentTimes, domain.SendEvent{Hour: 9 + i, Day: "Tuesday"})
		p.Topics = append(p.Topics, "Subject")
	}
	return p
}

func TestPredictEmptyProfileSkipsModel(t *testing.T) {
	client := &fakeCompletion{}
	pred := NewSendTimePredictor(client)

	got := pred.Predict(context.Background(), nil)
	if got != domain.DefaultSendTime() {
		t.Errorf("expected default recommendation, got %+v", got)
	}
	got = pred.Predict(context.Background(), &domain.EngagementProfile{Sender: "x"})
	if got != domain.DefaultSendTime() {
		t.Errorf("expected default recommendation, got %+v", got)
	}
	if client.calls != 0 {
		t.Errorf("expected no model calls, got %d", client.calls)
	}
}

func TestPredictValidReply(t *testing.T) {
	client := &fakeCompletion{
		reply: `{"recommended_hour":14,"recommended_day":"Thursday","confidence":"high","reasoning":"afternoon sender"}`,
	}
	pred := NewSendTimePredictor(client)

	got := pred.Predict(context.Background(), profileWith(3))
	if got.RecommendedHour != 14 || got.RecommendedDay != "Thursday" {
		t.Errorf("got %+v", got)
	}
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %q", got.Confidence)
	}
	if client.calls != 1 {
		t.Errorf("expected one model call, got %d", client.calls)
	}
}

func TestPredictFallsBackToDefault(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "model error", err: errors.New("rate limited")},
		{name: "invalid json", reply: `not json`},
		{name: "hour out of range", reply: `{"recommended_hour":24,"recommended_day":"Monday","confidence":"high"}`},
		{name: "negative hour", reply: `{"recommended_hour":-1,"recommended_day":"Monday","confidence":"high"}`},
		{name: "bogus day", reply: `{"recommended_hour":10,"recommended_day":"Someday","confidence":"high"}`},
		{name: "bogus confidence", reply: `{"recommended_hour":10,"recommended_day":"Monday","confidence":"certain"}`},
		{name: "empty object", reply: `{}`},
	}

	want := inferenceFailureSendTime()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := NewSendTimePredictor(&fakeCompletion{reply: tt.reply, err: tt.err})
			got := pred.Predict(context.Background(), profileWith(2))
			if got != want {
				t.Errorf("expected default, got %+v", got)
			}
			if got.Reasoning == domain.DefaultSendTime().Reasoning {
				t.Error("failure fallback should not read like the no-data default")
			}
		})
	}
}

func TestPersonalizeMergesPartialReply(t *testing.T) {
	client := &fakeCompletion{
		reply: `{"tone":"casual","key_topics":["launch","pricing"]}`,
	}
	p := NewPersonalizer(client)

	msg := domain.NormalizedMessage{Sender: "ada@example.com", SenderName: "Ada", Subject: "Launch plan"}
	got := p.Personalize(context.Background(), profileWith(2), msg)

	if got.Tone != "casual" {
		t.Errorf("tone = %q", got.Tone)
	}
	if len(got.KeyTopics) != 2 {
		t.Errorf("key_topics = %v", got.KeyTopics)
	}
	// Missing fields keep their defaults.
	def := domain.DefaultPersonalization()
	if got.GreetingStyle != def.GreetingStyle {
		t.Errorf("greeting = %q, want default %q", got.GreetingStyle, def.GreetingStyle)
	}
	if got.CallToAction != def.CallToAction {
		t.Errorf("cta = %q, want default %q", got.CallToAction, def.CallToAction)
	}
	if got.PersonalizationNotes != def.PersonalizationNotes {
		t.Errorf("notes = %q, want default %q", got.PersonalizationNotes, def.PersonalizationNotes)
	}
}

func TestPersonalizeFullFallback(t *testing.T) {
	def := domain.DefaultPersonalization()

	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "model error", err: errors.New("timeout")},
		{name: "invalid json", reply: `<html>`},
		{name: "empty object", reply: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPersonalizer(&fakeCompletion{reply: tt.reply, err: tt.err})
			got := p.Personalize(context.Background(), nil, domain.NormalizedMessage{Sender: "x@example.com"})
			if got.Tone != def.Tone || got.GreetingStyle != def.GreetingStyle ||
				got.CallToAction != def.CallToAction || got.PersonalizationNotes != def.PersonalizationNotes {
				t.Errorf("expected default strategy, got %+v", got)
			}
			if got.KeyTopics == nil || got.ContentHooks == nil {
				t.Error("expected empty slices, not nil")
			}
		})
	}
}

func TestPersonalizePromptUsesRecentSubjectsOnly(t *testing.T) {
	client := &fakeCompletion{reply: `{}`}
	p := NewPersonalizer(client)

	profile := &domain.EngagementProfile{Sender: "ada@example.com"}
	for _, s := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		profile.Topics = append(profile.Topics, s)
	}

	p.Personalize(context.Background(), profile, domain.NormalizedMessage{Sender: "ada@example.com"})

	if strings.Contains(client.lastUser, "- one\n") || strings.Contains(client.lastUser, "- two\n") {
		t.Errorf("prompt should only carry the last %d subjects:\n%s", recentSubjectWindow, client.lastUser)
	}
	for _, s := range []string{"three", "four", "five", "six", "seven"} {
		if !strings.Contains(client.lastUser, "- "+s+"\n") {
			t.Errorf("prompt missing recent subject %q:\n%s", s, client.lastUser)
		}
	}
}
