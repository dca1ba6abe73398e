package flatstore_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mailstash/mailstash/internal/flatstore"
	"github.com/mailstash/mailstash/internal/model"
	"github.com/mailstash/mailstash/internal/testutil"
)

func TestRoundTrip(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	rec := testutil.NewRecord("msg-1").
		WithTo("a@example.com", "b@example.com").
		WithCc("c@example.com").
		WithLabels("INBOX", "IMPORTANT").
		WithAttachment("report.pdf", "application/pdf", 2048, "att-1").
		Build()

	testutil.MustNoErr(t, fs.Store(rec), "store")

	got, err := fs.Load("msg-1")
	testutil.MustNoErr(t, err, "load")
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmptyFields(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	rec := &model.MessageRecord{ID: "bare", ThreadID: "t1"}
	testutil.MustNoErr(t, fs.Store(rec), "store")

	got, err := fs.Load("bare")
	testutil.MustNoErr(t, err, "load")

	// Empty lists come back as empty, never nil.
	if got.To == nil || got.Cc == nil || got.LabelIDs == nil || got.Attachments == nil {
		t.Errorf("expected empty slices, got %+v", got)
	}
	if len(got.To) != 0 || got.Subject != "" || got.Timestamp != 0 {
		t.Errorf("unexpected field values: %+v", got)
	}
}

func TestNewIDsScenario(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	testutil.AssertStrings(t, fs.NewIDs([]string{"a", "b", "c"}), "a", "b", "c")

	var records []*model.MessageRecord
	for _, id := range []string{"a", "b", "c"} {
		records = append(records, testutil.NewRecord(id).Build())
	}
	added, err := fs.StoreBatch(records)
	testutil.MustNoErr(t, err, "store batch")
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}

	testutil.AssertStrings(t, fs.NewIDs([]string{"a", "b", "c", "d"}), "d")

	stats := fs.Stats()
	if stats.TotalMessages != 3 {
		t.Errorf("total messages = %d, want 3", stats.TotalMessages)
	}
	if stats.LastSync == "" {
		t.Error("last sync not set after batch")
	}
}

func TestStoreIsIdempotent(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	first := testutil.NewRecord("x").WithSubject("old").Build()
	second := testutil.NewRecord("x").WithSubject("new").Build()

	added, err := fs.StoreBatch([]*model.MessageRecord{first})
	testutil.MustNoErr(t, err, "first batch")
	if added != 1 {
		t.Errorf("first batch added = %d, want 1", added)
	}

	// Re-storing the same id replaces content but adds nothing.
	added, err = fs.StoreBatch([]*model.MessageRecord{second})
	testutil.MustNoErr(t, err, "second batch")
	if added != 0 {
		t.Errorf("second batch added = %d, want 0", added)
	}

	got, err := fs.Load("x")
	testutil.MustNoErr(t, err, "load")
	if got.Subject != "new" {
		t.Errorf("subject = %q, want replacement to win", got.Subject)
	}
	if fs.Stats().TotalMessages != 1 {
		t.Errorf("total messages = %d, want 1", fs.Stats().TotalMessages)
	}
}

func TestStoreLeavesCallerRecordUntouched(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	rec := &model.MessageRecord{ID: "x", ThreadID: "t1"}
	testutil.MustNoErr(t, fs.Store(rec), "store")

	if rec.To != nil || rec.Cc != nil || rec.LabelIDs != nil || rec.Attachments != nil {
		t.Errorf("caller record mutated by Store: %+v", rec)
	}

	// The persisted form is still normalized.
	got, err := fs.Load("x")
	testutil.MustNoErr(t, err, "load")
	if got.To == nil || got.Attachments == nil {
		t.Errorf("stored record not normalized: %+v", got)
	}
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")

	fs, err := flatstore.Open(dir)
	testutil.MustNoErr(t, err, "open")
	_, err = fs.StoreBatch([]*model.MessageRecord{
		testutil.NewRecord("m1").Build(),
		testutil.NewRecord("m2").Build(),
	})
	testutil.MustNoErr(t, err, "store batch")

	reopened, err := flatstore.Open(dir)
	testutil.MustNoErr(t, err, "reopen")
	if !reopened.Has("m1") || !reopened.Has("m2") {
		t.Error("index lost ids across reopen")
	}
	if reopened.Stats().LastSync == "" {
		t.Error("last sync lost across reopen")
	}
}

func TestLoadAbsentIsNotAnError(t *testing.T) {
	fs := testutil.NewTestFlatStore(t)

	got, err := fs.Load("nope")
	testutil.MustNoErr(t, err, "load absent")
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestLoadMissingFileDespiteIndex(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")
	fs, err := flatstore.Open(dir)
	testutil.MustNoErr(t, err, "open")

	_, err = fs.StoreBatch([]*model.MessageRecord{testutil.NewRecord("ghost").Build()})
	testutil.MustNoErr(t, err, "store")
	testutil.MustNoErr(t, os.Remove(filepath.Join(dir, "messages", "ghost.json")), "remove file")

	// Index still claims the id; load reports absent, not an error.
	if !fs.Has("ghost") {
		t.Fatal("index should still contain ghost")
	}
	got, err := fs.Load("ghost")
	testutil.MustNoErr(t, err, "load")
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestCorruptFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")
	fs, err := flatstore.Open(dir)
	testutil.MustNoErr(t, err, "open")

	_, err = fs.StoreBatch([]*model.MessageRecord{
		testutil.NewRecord("good").Build(),
		testutil.NewRecord("bad").Build(),
	})
	testutil.MustNoErr(t, err, "store batch")
	testutil.MustNoErr(t,
		os.WriteFile(filepath.Join(dir, "messages", "bad.json"), []byte("{not json"), 0644),
		"corrupt file")

	// Direct load surfaces the corruption.
	_, err = fs.Load("bad")
	if !errors.Is(err, flatstore.ErrCorrupt) {
		t.Errorf("load corrupt: err = %v, want ErrCorrupt", err)
	}

	// Bulk load reports it as skipped instead of failing.
	result, err := fs.LoadAll()
	testutil.MustNoErr(t, err, "load all")
	if len(result.Records) != 1 || result.Records[0].ID != "good" {
		t.Errorf("records = %+v, want only good", result.Records)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ID != "bad" {
		t.Fatalf("skipped = %+v, want bad", result.Skipped)
	}
	if !errors.Is(result.Skipped[0].Err, flatstore.ErrCorrupt) {
		t.Errorf("skip reason = %v, want ErrCorrupt", result.Skipped[0].Err)
	}
}

func TestIndexFileHasNoLeftoverTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")
	fs, err := flatstore.Open(dir)
	testutil.MustNoErr(t, err, "open")

	_, err = fs.StoreBatch([]*model.MessageRecord{testutil.NewRecord("a").Build()})
	testutil.MustNoErr(t, err, "store batch")

	entries, err := os.ReadDir(dir)
	testutil.MustNoErr(t, err, "read dir")
	for _, e := range entries {
		if e.Name() != "index.json" && e.Name() != "messages" {
			t.Errorf("unexpected file in store dir: %s", e.Name())
		}
	}
}
