// Package export writes cached messages out as CSV, JSON, or JSON Lines.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mailstash/mailstash/internal/address"
	"github.com/mailstash/mailstash/internal/model"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatJSONL:
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, json, or jsonl)", name)
	}
}

// Write encodes records to w in the given format.
func Write(w io.Writer, records []*model.MessageRecord, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

var csvHeader = []string{
	"id", "thread_id", "date", "from", "to", "cc",
	"subject", "snippet", "labels", "size_estimate", "attachments",
}

func writeCSV(w io.Writer, records []*model.MessageRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		date := ""
		if rec.Timestamp > 0 {
			date = time.UnixMilli(rec.Timestamp).UTC().Format(time.RFC3339)
		}
		attachments := make([]string, 0, len(rec.Attachments))
		for _, att := range rec.Attachments {
			attachments = append(attachments, att.Filename)
		}
		row := []string{
			rec.ID,
			rec.ThreadID,
			date,
			rec.From,
			strings.Join(rec.To, "; "),
			strings.Join(rec.Cc, "; "),
			rec.Subject,
			rec.Snippet,
			strings.Join(rec.LabelIDs, "; "),
			strconv.FormatInt(rec.SizeEstimate, 10),
			strings.Join(attachments, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SenderGroup is one sender's share of an export.
type SenderGroup struct {
	Email string
	Name  string
	Count int
}

// GroupBySender tallies records per sender address, most frequent first.
// Ties break alphabetically so output is deterministic.
func GroupBySender(records []*model.MessageRecord) []SenderGroup {
	type entry struct {
		name  string
		count int
	}
	byEmail := make(map[string]*entry)
	for _, rec := range records {
		email, name, _ := address.Parse(rec.From)
		e, ok := byEmail[email]
		if !ok {
			e = &entry{}
			byEmail[email] = e
		}
		e.count++
		if e.name == "" {
			e.name = name
		}
	}

	groups := make([]SenderGroup, 0, len(byEmail))
	for email, e := range byEmail {
		groups = append(groups, SenderGroup{Email: email, Name: e.name, Count: e.count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Email < groups[j].Email
	})
	return groups
}
