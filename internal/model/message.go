// Package model defines the canonical message types shared by the
// flat-file cache, the SQLite archive, and the Gmail client.
package model

// Attachment describes a single attachment on a message. The content
// itself is not cached; AttachmentID can be used to fetch it from the
// remote service on demand.
type Attachment struct {
	Filename     string `json:"filename"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	AttachmentID string `json:"attachment_id"`
}

// MessageRecord is the canonical representation of one fetched message.
// ID is assigned by the remote service and never changes; a record may be
// re-fetched and replaced wholesale but is never partially merged.
type MessageRecord struct {
	ID           string       `json:"id"`
	ThreadID     string       `json:"thread_id"`
	From         string       `json:"from_email"`
	To           []string     `json:"to"`
	Cc           []string     `json:"cc"`
	Subject      string       `json:"subject"`
	BodyPlain    string       `json:"body"`
	BodyHTML     string       `json:"body_html"`
	Snippet      string       `json:"snippet"`
	LabelIDs     []string     `json:"label_ids"`
	Timestamp    int64        `json:"timestamp"` // milliseconds since epoch
	SizeEstimate int64        `json:"size_estimate"`
	Attachments  []Attachment `json:"attachments"`
}

// Normalize replaces nil slices with empty ones so the JSON form always
// round-trips empty lists as [] rather than null.
func (m *MessageRecord) Normalize() {
	if m.To == nil {
		m.To = []string{}
	}
	if m.Cc == nil {
		m.Cc = []string{}
	}
	if m.LabelIDs == nil {
		m.LabelIDs = []string{}
	}
	if m.Attachments == nil {
		m.Attachments = []Attachment{}
	}
}

// HasAttachments reports whether the message carries at least one attachment.
func (m *MessageRecord) HasAttachments() bool {
	return len(m.Attachments) > 0
}
