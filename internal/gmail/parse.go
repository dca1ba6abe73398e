package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/mailstash/mailstash/internal/model"
	gmailapi "google.golang.org/api/gmail/v1"
)

// recordFromMessage maps a full-format API message onto the canonical record.
// Header names are matched case-insensitively; text/plain and text/html body
// parts are base64url-decoded; parts carrying an attachmentId become
// attachment entries.
func recordFromMessage(msg *gmailapi.Message) *model.MessageRecord {
	rec := &model.MessageRecord{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Snippet:      msg.Snippet,
		LabelIDs:     msg.LabelIds,
		Timestamp:    msg.InternalDate,
		SizeEstimate: msg.SizeEstimate,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				rec.From = h.Value
			case "to":
				rec.To = splitAddressList(h.Value)
			case "cc":
				rec.Cc = splitAddressList(h.Value)
			case "subject":
				rec.Subject = h.Value
			}
		}
		collectParts(msg.Payload, rec)
	}

	rec.Normalize()
	return rec
}

// collectParts walks the MIME part tree, accumulating body text and
// attachments. The first text/plain and text/html parts win; Gmail nests
// alternatives under multipart containers, so recursion covers both layouts.
func collectParts(part *gmailapi.MessagePart, rec *model.MessageRecord) {
	if part == nil {
		return
	}

	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
		rec.Attachments = append(rec.Attachments, model.Attachment{
			Filename:     part.Filename,
			MimeType:     part.MimeType,
			Size:         part.Body.Size,
			AttachmentID: part.Body.AttachmentId,
		})
		return
	}

	switch part.MimeType {
	case "text/plain":
		if rec.BodyPlain == "" {
			rec.BodyPlain = decodeBody(part.Body)
		}
	case "text/html":
		if rec.BodyHTML == "" {
			rec.BodyHTML = decodeBody(part.Body)
		}
	}

	for _, child := range part.Parts {
		collectParts(child, rec)
	}
}

func decodeBody(body *gmailapi.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	data, err := base64.URLEncoding.DecodeString(body.Data)
	if err != nil {
		// Some servers omit padding.
		data, err = base64.RawURLEncoding.DecodeString(body.Data)
		if err != nil {
			return ""
		}
	}
	return string(data)
}

// splitAddressList splits a comma-separated header value into trimmed
// address strings, dropping empties.
func splitAddressList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
