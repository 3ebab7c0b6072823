package profile

import (
	"testing"

	"engage_server/core/domain"
	"engage_server/core/port/out"
)

func TestParseFrom(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		wantSender string
		wantName   string
	}{
		{
			name:       "display name with address",
			from:       "Ada Lovelace <ada@example.com>",
			wantSender: "ada@example.com",
			wantName:   "Ada Lovelace",
		},
		{
			name:       "quoted display name",
			from:       `"Lovelace, Ada" <ada@example.com>`,
			wantSender: "ada@example.com",
			wantName:   "Lovelace, Ada",
		},
		{
			name:       "bare address",
			from:       "ada@example.com",
			wantSender: "ada@example.com",
			wantName:   "ada@example.com",
		},
		{
			name:       "address with trailing text",
			from:       "john@example.com via Example Service",
			wantSender: "john@example.com",
			wantName:   "john@example.com via Example Service",
		},
		{
			name:       "angle brackets only",
			from:       "<ada@example.com>",
			wantSender: "ada@example.com",
			wantName:   "ada@example.com",
		},
		{
			name:       "missing closing bracket",
			from:       "Ada <ada@example.com",
			wantSender: "ada@example.com",
			wantName:   "Ada",
		},
		{
			name:       "empty header",
			from:       "",
			wantSender: "unknown",
			wantName:   "unknown",
		},
		{
			name:       "whitespace only",
			from:       "   ",
			wantSender: "unknown",
			wantName:   "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, name := ParseFrom(tt.from)
			if sender != tt.wantSender {
				t.Errorf("sender = %q, want %q", sender, tt.wantSender)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
		})
	}
}

func TestNormalizeDefaults(t *testing.T) {
	raw := &out.RawMessage{
		ID:      "m1",
		Snippet: "snippet text",
		Headers: []out.RawHeader{
			{Name: "date", Value: "Tue, 14 Jan 2025 09:30:00 +0000"},
		},
	}

	msg := Normalize(raw)

	if msg.Subject != domain.NoSubjectPlaceholder {
		t.Errorf("subject = %q, want %q", msg.Subject, domain.NoSubjectPlaceholder)
	}
	if msg.Sender != domain.UnknownSender {
		t.Errorf("sender = %q, want %q", msg.Sender, domain.UnknownSender)
	}
	if msg.Date != "Tue, 14 Jan 2025 09:30:00 +0000" {
		t.Errorf("date header lookup should be case-insensitive, got %q", msg.Date)
	}
	if msg.Snippet != "snippet text" {
		t.Errorf("snippet = %q", msg.Snippet)
	}
}

func TestNormalizeBatchPreservesOrder(t *testing.T) {
	raws := []*out.RawMessage{
		{ID: "a", Headers: []out.RawHeader{{Name: "From", Value: "x@example.com"}}},
		nil,
		{ID: "b", Headers: []out.RawHeader{{Name: "From", Value: "y@example.com"}}},
	}

	msgs := NormalizeBatch(raws)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].ID != "a" || msgs[1].ID != "b" {
		t.Errorf("order not preserved: %v, %v", msgs[0].ID, msgs[1].ID)
	}
}

func TestBuildProfiles(t *testing.T) {
	msgs := []domain.NormalizedMessage{
		{
			ID:      "m1",
			Sender:  "ada@example.com",
			Subject: "Weekly sync",
			Date:    "Tue, 14 Jan 2025 09:30:00 +0000",
		},
		{
			ID:      "m2",
			Sender:  "ada@example.com",
			Subject: "Launch plan",
			Date:    "Thu, 16 Jan 2025 15:05:00 +0000",
		},
		{
			ID:      "m3",
			Sender:  "bob@example.com",
			Subject: "Invoice",
			Date:    "not a date",
		},
	}

	profiles := BuildProfiles(msgs)

	ada := profiles.Get("ada@example.com")
	if ada == nil {
		t.Fatal("expected profile for ada@example.com")
	}
	if len(ada.SentTimes) != 2 || len(ada.Topics) != 2 {
		t.Fatalf("expected 2 events and 2 topics, got %d/%d", len(ada.SentTimes), len(ada.Topics))
	}
	if ada.SentTimes[0].Hour != 9 || ada.SentTimes[0].Day != "Tuesday" {
		t.Errorf("first event = %+v", ada.SentTimes[0])
	}
	if ada.SentTimes[1].Hour != 15 || ada.SentTimes[1].Day != "Thursday" {
		t.Errorf("second event = %+v", ada.SentTimes[1])
	}
	if ada.Topics[0] != "Weekly sync" || ada.Topics[1] != "Launch plan" {
		t.Errorf("topics = %v", ada.Topics)
	}

	// Every sender in the batch gets a profile key, but an unparsable date
	// drops the whole message from both sequences, including its subject.
	if len(profiles) != 2 {
		t.Fatalf("expected a profile per distinct sender, got %d", len(profiles))
	}
	bob := profiles.Get("bob@example.com")
	if bob == nil {
		t.Fatal("expected a profile entry for bob@example.com")
	}
	if len(bob.SentTimes) != 0 || len(bob.Topics) != 0 {
		t.Errorf("expected empty sequences for bob, got %d/%d", len(bob.SentTimes), len(bob.Topics))
	}
}
