package testutil

import (
	"github.com/mailstash/mailstash/internal/model"
)

// RecordBuilder provides a fluent API for constructing MessageRecords in tests.
type RecordBuilder struct {
	r model.MessageRecord
}

// NewRecord creates a builder with sensible defaults for the given id.
func NewRecord(id string) *RecordBuilder {
	return &RecordBuilder{
		r: model.MessageRecord{
			ID:           id,
			ThreadID:     "thread-" + id,
			From:         "Sender <sender@example.com>",
			Subject:      "Test Subject " + id,
			BodyPlain:    "test body",
			Snippet:      "test body",
			Timestamp:    1700000000000,
			SizeEstimate: 1024,
		},
	}
}

func (b *RecordBuilder) WithThread(threadID string) *RecordBuilder {
	b.r.ThreadID = threadID
	return b
}

func (b *RecordBuilder) WithFrom(from string) *RecordBuilder {
	b.r.From = from
	return b
}

func (b *RecordBuilder) WithTo(to ...string) *RecordBuilder {
	b.r.To = to
	return b
}

func (b *RecordBuilder) WithCc(cc ...string) *RecordBuilder {
	b.r.Cc = cc
	return b
}

func (b *RecordBuilder) WithSubject(subject string) *RecordBuilder {
	b.r.Subject = subject
	return b
}

func (b *RecordBuilder) WithBody(body string) *RecordBuilder {
	b.r.BodyPlain = body
	return b
}

func (b *RecordBuilder) WithLabels(labels ...string) *RecordBuilder {
	b.r.LabelIDs = labels
	return b
}

func (b *RecordBuilder) WithTimestamp(ms int64) *RecordBuilder {
	b.r.Timestamp = ms
	return b
}

func (b *RecordBuilder) WithAttachment(filename, mimeType string, size int64, attachmentID string) *RecordBuilder {
	b.r.Attachments = append(b.r.Attachments, model.Attachment{
		Filename:     filename,
		MimeType:     mimeType,
		Size:         size,
		AttachmentID: attachmentID,
	})
	return b
}

// Build returns the record with empty lists normalized.
func (b *RecordBuilder) Build() *model.MessageRecord {
	rec := b.r
	rec.Normalize()
	return &rec
}
