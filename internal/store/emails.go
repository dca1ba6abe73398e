package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mailstash/mailstash/internal/address"
	"github.com/mailstash/mailstash/internal/model"
)

// Email is one archived message row, with the sender parts denormalized at
// insert time and the list-valued columns decoded from their JSON form.
type Email struct {
	ID             string   `json:"id"`
	ThreadID       string   `json:"thread_id"`
	FromEmail      string   `json:"from_email"`
	FromName       string   `json:"from_name"`
	FromDomain     string   `json:"from_domain"`
	To             []string `json:"to"`
	Cc             []string `json:"cc"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	BodyHTML       string   `json:"body_html"`
	Snippet        string   `json:"snippet"`
	LabelIDs       []string `json:"label_ids"`
	Timestamp      int64    `json:"timestamp"`
	SizeEstimate   int64    `json:"size_estimate"`
	HasAttachments bool     `json:"has_attachments"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// dbExecer is satisfied by both *sql.DB and *sql.Tx.
type dbExecer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// UpsertEmail inserts or wholesale-replaces an email keyed on its id, along
// with its attachment rows, in one transaction. It returns whether the id
// was new. The FTS shadow table updates via trigger as a side effect of the
// row write.
func (s *Store) UpsertEmail(rec *model.MessageRecord) (bool, error) {
	var wasNew bool
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		wasNew, err = upsertEmail(tx, rec)
		return err
	})
	if err != nil {
		return false, err
	}
	return wasNew, nil
}

// UpsertEmails applies UpsertEmail to each record inside one transaction,
// committing once at the end. It returns the count of ids that were new.
// If any record fails, the whole batch rolls back.
func (s *Store) UpsertEmails(records []*model.MessageRecord) (int, error) {
	newCount := 0
	err := s.withTx(func(tx *sql.Tx) error {
		for _, rec := range records {
			wasNew, err := upsertEmail(tx, rec)
			if err != nil {
				return err
			}
			if wasNew {
				newCount++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

func upsertEmail(db dbExecer, rec *model.MessageRecord) (bool, error) {
	if rec.ID == "" {
		return false, fmt.Errorf("upsert email: empty id")
	}
	emailAddr, name, domain := address.Parse(rec.From)

	var existingID string
	err := db.QueryRow("SELECT id FROM emails WHERE id = ?", rec.ID).Scan(&existingID)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("check existing %s: %w", rec.ID, err)
	}

	toJSON, err := encodeStrings(rec.To)
	if err != nil {
		return false, fmt.Errorf("encode to: %w", err)
	}
	ccJSON, err := encodeStrings(rec.Cc)
	if err != nil {
		return false, fmt.Errorf("encode cc: %w", err)
	}
	labelsJSON, err := encodeStrings(rec.LabelIDs)
	if err != nil {
		return false, fmt.Errorf("encode labels: %w", err)
	}

	hasAttachments := 0
	if rec.HasAttachments() {
		hasAttachments = 1
	}

	_, err = db.Exec(`
		INSERT OR REPLACE INTO emails (
			id, thread_id, from_email, from_name, from_domain,
			to_emails, cc_emails, subject, body, body_html, snippet,
			label_ids, timestamp, size_estimate, has_attachments, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ThreadID, emailAddr, name, domain,
		toJSON, ccJSON, rec.Subject, rec.BodyPlain, rec.BodyHTML, rec.Snippet,
		labelsJSON, rec.Timestamp, rec.SizeEstimate, hasAttachments,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert email %s: %w", rec.ID, err)
	}

	for _, att := range rec.Attachments {
		_, err := db.Exec(`
			INSERT OR REPLACE INTO attachments (
				message_id, attachment_id, filename, mime_type, size
			) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, att.AttachmentID, att.Filename, att.MimeType, att.Size,
		)
		if err != nil {
			return false, fmt.Errorf("insert attachment %s/%s: %w", rec.ID, att.AttachmentID, err)
		}
	}

	return !exists, nil
}

// encodeStrings serializes a string list as a JSON array, with nil encoding
// as [] so column values never hold "null".
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

const emailColumns = `id, thread_id, from_email, from_name, from_domain,
	to_emails, cc_emails, subject, body, body_html, snippet,
	label_ids, timestamp, size_estimate, has_attachments, created_at, updated_at`

// Search runs a full-text query against subject, body, and sender, ranked
// best-match-first by FTS5. The query string is passed to the engine
// verbatim, so its boolean and phrase syntax apply. Returns
// ErrFTS5Unavailable when the driver was built without FTS5.
func (s *Store) Search(query string, limit int) ([]*Email, error) {
	if !s.fts5Available {
		return nil, ErrFTS5Unavailable
	}
	return s.queryEmails(fmt.Sprintf(`
		SELECT %s FROM emails e
		JOIN emails_fts fts ON e.rowid = fts.rowid
		WHERE emails_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, prefixColumns("e")), query, limit)
}

// EmailsByDomain returns emails whose sender domain matches exactly,
// newest first. A leading "@" and any upper case in domain are normalized.
func (s *Store) EmailsByDomain(domain string, limit int) ([]*Email, error) {
	domain = strings.TrimPrefix(strings.ToLower(domain), "@")
	return s.queryEmails(`
		SELECT `+emailColumns+` FROM emails
		WHERE from_domain = ?
		ORDER BY timestamp DESC
		LIMIT ?`, domain, limit)
}

// EmailsBySender returns emails from one sender address, newest first.
func (s *Store) EmailsBySender(email string, limit int) ([]*Email, error) {
	return s.queryEmails(`
		SELECT `+emailColumns+` FROM emails
		WHERE from_email = ?
		ORDER BY timestamp DESC
		LIMIT ?`, strings.ToLower(email), limit)
}

// ListEmails returns the newest emails up to limit.
func (s *Store) ListEmails(limit int) ([]*Email, error) {
	return s.queryEmails(`
		SELECT `+emailColumns+` FROM emails
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
}

// GetEmail returns the email with the given id, or nil if absent.
func (s *Store) GetEmail(id string) (*Email, error) {
	emails, err := s.queryEmails(`
		SELECT `+emailColumns+` FROM emails
		WHERE id = ?
		LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, nil
	}
	return emails[0], nil
}

// Attachments returns the attachment rows recorded for a message.
func (s *Store) Attachments(messageID string) ([]model.Attachment, error) {
	rows, err := s.db.Query(`
		SELECT filename, mime_type, size, attachment_id
		FROM attachments
		WHERE message_id = ?
		ORDER BY id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("query attachments %s: %w", messageID, err)
	}
	defer rows.Close()

	var atts []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.Filename, &a.MimeType, &a.Size, &a.AttachmentID); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

func (s *Store) queryEmails(query string, args ...interface{}) ([]*Email, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query emails: %w", err)
	}
	defer rows.Close()

	var emails []*Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

func scanEmail(rows *sql.Rows) (*Email, error) {
	var e Email
	var toJSON, ccJSON, labelsJSON sql.NullString
	var fromEmail, fromName, fromDomain, subject, body, bodyHTML, snippet sql.NullString
	var timestamp, sizeEstimate, hasAttachments sql.NullInt64
	var createdAt, updatedAt sql.NullString

	err := rows.Scan(
		&e.ID, &e.ThreadID, &fromEmail, &fromName, &fromDomain,
		&toJSON, &ccJSON, &subject, &body, &bodyHTML, &snippet,
		&labelsJSON, &timestamp, &sizeEstimate, &hasAttachments,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan email: %w", err)
	}

	e.FromEmail = fromEmail.String
	e.FromName = fromName.String
	e.FromDomain = fromDomain.String
	e.Subject = subject.String
	e.Body = body.String
	e.BodyHTML = bodyHTML.String
	e.Snippet = snippet.String
	e.Timestamp = timestamp.Int64
	e.SizeEstimate = sizeEstimate.Int64
	e.HasAttachments = hasAttachments.Int64 != 0
	e.CreatedAt = createdAt.String
	e.UpdatedAt = updatedAt.String

	if e.To, err = decodeStrings(toJSON.String); err != nil {
		return nil, fmt.Errorf("decode to for %s: %w", e.ID, err)
	}
	if e.Cc, err = decodeStrings(ccJSON.String); err != nil {
		return nil, fmt.Errorf("decode cc for %s: %w", e.ID, err)
	}
	if e.LabelIDs, err = decodeStrings(labelsJSON.String); err != nil {
		return nil, fmt.Errorf("decode labels for %s: %w", e.ID, err)
	}
	return &e, nil
}

func decodeStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// prefixColumns qualifies every email column with a table alias for joins.
func prefixColumns(alias string) string {
	cols := strings.Split(emailColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
