package domain

// SendEvent is a single successfully parsed send time for a sender.
type SendEvent struct {
	Hour      int    `json:"hour"`      // 0..23
	Day       string `json:"day"`       // weekday name, e.g. "Tuesday"
	Timestamp string `json:"timestamp"` // RFC 3339
}

// EngagementProfile aggregates a sender's observed behavior inside the
// analysis window. Profiles are recomputed per run and never persisted.
type EngagementProfile struct {
	Sender    string      `json:"sender"`
	SentTimes []SendEvent `json:"sent_times"`
	Topics    []string    `json:"topics"` // subject lines, window order
}

// ProfileSet maps sender address to profile.
type ProfileSet map[string]*EngagementProfile

// Get returns the profile for a sender, or nil when the sender contributed no
// parsable messages.
func (s ProfileSet) Get(sender string) *EngagementProfile {
	return s[sender]
}
