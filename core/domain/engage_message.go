package domain

// Defaults applied by the normalizer when headers are absent.
const (
	NoSubjectPlaceholder = "(No Subject)"
	UnknownSender        = "unknown"
)

// NormalizedMessage is the canonical shape of a raw mailbox message. It is
// transient: built per analysis run, never persisted standalone.
type NormalizedMessage struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name"`
	Subject    string `json:"subject"`
	Snippet    string `json:"snippet"`
	Date       string `json:"date"` // raw RFC 5322 date header, may be empty
}
