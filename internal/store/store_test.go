package store_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mailstash/mailstash/internal/model"
	"github.com/mailstash/mailstash/internal/testutil"
)

func TestInitSchemaIsIdempotent(t *testing.T) {
	st := testutil.NewTestStore(t)

	// Applying the schema again on an initialized database is a no-op.
	testutil.MustNoErr(t, st.InitSchema(), "second InitSchema")
}

func TestUpsertIsIdempotent(t *testing.T) {
	st := testutil.NewTestStore(t)
	rec := testutil.NewRecord("m1").
		WithAttachment("a.txt", "text/plain", 10, "att-1").
		Build()

	wasNew, err := st.UpsertEmail(rec)
	testutil.MustNoErr(t, err, "first upsert")
	if !wasNew {
		t.Error("first upsert: wasNew = false, want true")
	}

	wasNew, err = st.UpsertEmail(rec)
	testutil.MustNoErr(t, err, "second upsert")
	if wasNew {
		t.Error("second upsert: wasNew = true, want false")
	}

	stats, err := st.GetStats()
	testutil.MustNoErr(t, err, "stats")
	if stats.TotalEmails != 1 {
		t.Errorf("total emails = %d, want 1", stats.TotalEmails)
	}

	var attCount int
	err = st.DB().QueryRow("SELECT COUNT(*) FROM attachments WHERE message_id = 'm1'").Scan(&attCount)
	testutil.MustNoErr(t, err, "count attachments")
	if attCount != 1 {
		t.Errorf("attachment rows = %d, want 1 after double upsert", attCount)
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	st := testutil.NewTestStore(t)
	rec := testutil.NewRecord("m1").
		WithFrom(`"Jane Roe" <Jane@Example.com>`).
		WithTo("a@x.com", "b@x.com").
		WithCc("c@x.com").
		WithLabels("INBOX").
		WithTimestamp(1700000123456).
		Build()

	_, err := st.UpsertEmail(rec)
	testutil.MustNoErr(t, err, "upsert")

	got, err := st.GetEmail("m1")
	testutil.MustNoErr(t, err, "get")
	if got == nil {
		t.Fatal("email not found")
	}

	if got.FromEmail != "jane@example.com" || got.FromName != "Jane Roe" || got.FromDomain != "example.com" {
		t.Errorf("sender parts = (%q, %q, %q)", got.FromEmail, got.FromName, got.FromDomain)
	}
	if diff := cmp.Diff(rec.To, got.To); diff != "" {
		t.Errorf("to mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(rec.Cc, got.Cc); diff != "" {
		t.Errorf("cc mismatch (-want +got):\n%s", diff)
	}
	if got.Timestamp != rec.Timestamp {
		t.Errorf("timestamp = %d, want %d", got.Timestamp, rec.Timestamp)
	}
}

func TestGetEmailAbsent(t *testing.T) {
	st := testutil.NewTestStore(t)

	got, err := st.GetEmail("nope")
	testutil.MustNoErr(t, err, "get absent")
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestUpsertBatchCountsNewOnly(t *testing.T) {
	st := testutil.NewTestStore(t)

	_, err := st.UpsertEmail(testutil.NewRecord("a").Build())
	testutil.MustNoErr(t, err, "seed")

	newCount, err := st.UpsertEmails([]*model.MessageRecord{
		testutil.NewRecord("a").Build(),
		testutil.NewRecord("b").Build(),
		testutil.NewRecord("c").Build(),
	})
	testutil.MustNoErr(t, err, "batch")
	if newCount != 2 {
		t.Errorf("newCount = %d, want 2", newCount)
	}
}

func TestUpsertEmailIsAtomic(t *testing.T) {
	st := testutil.NewTestStore(t)

	// Break the attachment insert so the email write succeeds but the
	// record as a whole fails partway through.
	_, err := st.DB().Exec("DROP TABLE attachments")
	testutil.MustNoErr(t, err, "drop attachments")

	rec := testutil.NewRecord("m1").
		WithAttachment("a.txt", "text/plain", 10, "att-1").
		Build()
	if _, err := st.UpsertEmail(rec); err == nil {
		t.Fatal("expected upsert error")
	}

	got, err := st.GetEmail("m1")
	testutil.MustNoErr(t, err, "get")
	if got != nil {
		t.Error("email row survived a failed upsert, want rollback")
	}
}

func TestUpsertBatchRollsBackTogether(t *testing.T) {
	st := testutil.NewTestStore(t)

	// The record with an empty id fails, which must roll back the whole batch.
	_, err := st.UpsertEmails([]*model.MessageRecord{
		testutil.NewRecord("ok-1").Build(),
		{ThreadID: "t"},
	})
	if err == nil {
		t.Fatal("expected batch error")
	}

	got, getErr := st.GetEmail("ok-1")
	testutil.MustNoErr(t, getErr, "get")
	if got != nil {
		t.Error("ok-1 survived a failed batch, want rollback")
	}
}

func TestSearch(t *testing.T) {
	st := testutil.NewTestStore(t)
	if !st.FTS5Available() {
		t.Skip("driver built without FTS5")
	}

	_, err := st.UpsertEmails([]*model.MessageRecord{
		testutil.NewRecord("m1").WithSubject("Quarterly budget review").WithBody("numbers inside").Build(),
		testutil.NewRecord("m2").WithSubject("Lunch plans").WithBody("pizza on friday").Build(),
		testutil.NewRecord("m3").WithSubject("Re: budget").WithBody("looks fine").Build(),
	})
	testutil.MustNoErr(t, err, "seed")

	results, err := st.Search("budget", 10)
	testutil.MustNoErr(t, err, "search")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for _, e := range results {
		if e.ID == "m2" {
			t.Error("m2 should not match budget")
		}
	}

	results, err = st.Search(`"pizza on friday"`, 10)
	testutil.MustNoErr(t, err, "phrase search")
	if len(results) != 1 || results[0].ID != "m2" {
		t.Errorf("phrase search = %+v, want only m2", results)
	}
}

func TestFTSFollowsReupsert(t *testing.T) {
	st := testutil.NewTestStore(t)
	if !st.FTS5Available() {
		t.Skip("driver built without FTS5")
	}

	_, err := st.UpsertEmail(testutil.NewRecord("m1").WithSubject("zebra migration notes").Build())
	testutil.MustNoErr(t, err, "upsert")

	results, err := st.Search("zebra", 10)
	testutil.MustNoErr(t, err, "search old subject")
	if len(results) != 1 || results[0].ID != "m1" {
		t.Fatalf("search zebra = %+v, want m1", results)
	}

	// Replace the subject wholesale; the FTS shadow follows via triggers.
	_, err = st.UpsertEmail(testutil.NewRecord("m1").WithSubject("giraffe migration notes").Build())
	testutil.MustNoErr(t, err, "re-upsert")

	results, err = st.Search("zebra", 10)
	testutil.MustNoErr(t, err, "search stale subject")
	if len(results) != 0 {
		t.Errorf("stale subject still matches: %+v", results)
	}

	results, err = st.Search("giraffe", 10)
	testutil.MustNoErr(t, err, "search new subject")
	if len(results) != 1 || results[0].ID != "m1" {
		t.Errorf("search giraffe = %+v, want m1", results)
	}
}

func TestStatsDomains(t *testing.T) {
	st := testutil.NewTestStore(t)

	records := []*model.MessageRecord{
		testutil.NewRecord("1").WithFrom("a@x.com").WithThread("t1").Build(),
		testutil.NewRecord("2").WithFrom("b@x.com").WithThread("t1").Build(),
		testutil.NewRecord("3").WithFrom("c@x.com").WithThread("t2").Build(),
		testutil.NewRecord("4").WithFrom("d@y.com").WithThread("t3").Build(),
		testutil.NewRecord("5").WithFrom("e@y.com").WithThread("t4").Build(),
	}
	_, err := st.UpsertEmails(records)
	testutil.MustNoErr(t, err, "seed")

	stats, err := st.GetStats()
	testutil.MustNoErr(t, err, "stats")

	if stats.TotalEmails != 5 {
		t.Errorf("total emails = %d, want 5", stats.TotalEmails)
	}
	if stats.TotalThreads != 4 {
		t.Errorf("total threads = %d, want 4", stats.TotalThreads)
	}
	if stats.UniqueDomains != 2 {
		t.Errorf("unique domains = %d, want 2", stats.UniqueDomains)
	}
	if len(stats.TopDomains) < 2 {
		t.Fatalf("top domains = %+v, want 2 entries", stats.TopDomains)
	}
	if stats.TopDomains[0].Domain != "x.com" || stats.TopDomains[0].Count != 3 {
		t.Errorf("top domain = %+v, want x.com with 3", stats.TopDomains[0])
	}
	if stats.TopDomains[1].Domain != "y.com" || stats.TopDomains[1].Count != 2 {
		t.Errorf("second domain = %+v, want y.com with 2", stats.TopDomains[1])
	}
}

func TestEmailsByDomainAndSender(t *testing.T) {
	st := testutil.NewTestStore(t)

	_, err := st.UpsertEmails([]*model.MessageRecord{
		testutil.NewRecord("old").WithFrom("sales@shop.com").WithTimestamp(1000).Build(),
		testutil.NewRecord("new").WithFrom("Sales <SALES@shop.com>").WithTimestamp(2000).Build(),
		testutil.NewRecord("other").WithFrom("x@else.org").WithTimestamp(3000).Build(),
	})
	testutil.MustNoErr(t, err, "seed")

	// Domain lookup is case-insensitive and tolerates a leading @.
	emails, err := st.EmailsByDomain("@Shop.COM", 10)
	testutil.MustNoErr(t, err, "by domain")
	if len(emails) != 2 {
		t.Fatalf("got %d emails, want 2", len(emails))
	}
	if emails[0].ID != "new" || emails[1].ID != "old" {
		t.Errorf("order = [%s, %s], want newest first", emails[0].ID, emails[1].ID)
	}

	emails, err = st.EmailsBySender("SALES@shop.com", 10)
	testutil.MustNoErr(t, err, "by sender")
	if len(emails) != 2 {
		t.Errorf("got %d emails, want 2", len(emails))
	}
}
