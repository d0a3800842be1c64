package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iamwavecut/modbot/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()
	client, err := NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCreateRecordKeepsCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.IncrementNonSevere(ctx, "100"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	err := client.CreateRecord(ctx, &db.FlaggedMessage{
		ID:         "100",
		GuildID:    "1",
		ChannelID:  "2",
		AuthorName: "mallory",
		Content:    "send me 1 btc",
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}

	rec, err := client.GetRecord(ctx, "100")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec == nil {
		t.Fatalf("expected record")
	}
	if rec.NonSevereCount != 1 {
		t.Fatalf("expected non-severe count to survive upsert, got %d", rec.NonSevereCount)
	}
	if rec.AuthorName != "mallory" || rec.ChannelID != "2" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestGetRecordUnknownReturnsNil(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	rec, err := client.GetRecord(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestAppendReportAllocatesDenseSequence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for i := 1; i <= 3; i++ {
		seq, err := client.AppendReport(ctx, "42", &db.ReviewerReport{
			Author:      "mod",
			Timestamp:   time.Now(),
			Description: fmt.Sprintf("report %d", i),
		})
		if err != nil {
			t.Fatalf("append report %d: %v", i, err)
		}
		if seq != i {
			t.Fatalf("expected seq %d, got %d", i, seq)
		}
	}

	reports, err := client.GetReports(ctx, "42")
	if err != nil {
		t.Fatalf("get reports: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	for i, r := range reports {
		if r.Seq != i+1 || r.Description != fmt.Sprintf("report %d", i+1) {
			t.Fatalf("unexpected report at %d: %+v", i, r)
		}
	}

	rec, err := client.GetRecord(ctx, "42")
	if err != nil || rec == nil {
		t.Fatalf("get record: %v %v", rec, err)
	}
	if rec.ReportCount != 3 {
		t.Fatalf("expected report count 3, got %d", rec.ReportCount)
	}
}

func TestAppendReportConcurrentNoLostSlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	const writers = 16
	var wg sync.WaitGroup
	seqs := make(chan int, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := client.AppendReport(ctx, "7", &db.ReviewerReport{
				Author:      "mod",
				Timestamp:   time.Now(),
				Description: fmt.Sprintf("concurrent %d", i),
			})
			if err != nil {
				t.Errorf("append report: %v", err)
				return
			}
			seqs <- seq
		}(i)
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int]bool)
	for seq := range seqs {
		if seen[seq] {
			t.Fatalf("duplicate sequence %d", seq)
		}
		seen[seq] = true
	}
	for i := 1; i <= writers; i++ {
		if !seen[i] {
			t.Fatalf("missing sequence %d", i)
		}
	}
}

func TestPromptMappingLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if _, ok, err := client.ResolvePrompt(ctx, "p1"); err != nil || ok {
		t.Fatalf("expected unknown prompt, got ok=%v err=%v", ok, err)
	}
	if err := client.SetPromptMapping(ctx, "p1", "m1"); err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	id, ok, err := client.ResolvePrompt(ctx, "p1")
	if err != nil || !ok || id != "m1" {
		t.Fatalf("resolve prompt: id=%q ok=%v err=%v", id, ok, err)
	}
	if err := client.ClearPrompt(ctx, "p1"); err != nil {
		t.Fatalf("clear prompt: %v", err)
	}
	if _, ok, _ := client.ResolvePrompt(ctx, "p1"); ok {
		t.Fatalf("expected prompt to be cleared")
	}
	if err := client.ClearPrompt(ctx, "p1"); err != nil {
		t.Fatalf("clearing twice should be a no-op: %v", err)
	}
}

func TestNonSevereIsMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if n, err := client.GetNonSevere(ctx, "9"); err != nil || n != 0 {
		t.Fatalf("expected zero for unknown, got %d %v", n, err)
	}
	for i := 1; i <= 4; i++ {
		n, err := client.IncrementNonSevere(ctx, "9")
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if n != i {
			t.Fatalf("expected %d, got %d", i, n)
		}
	}
	if n, _ := client.GetNonSevere(ctx, "9"); n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
}

func TestAppendDecisionDeduplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	d := &db.Decision{
		ID:        "d1",
		ForwardID: "f1",
		MessageID: "m1",
		Kind:      db.DecisionConfirm,
		ActorID:   "u1",
		ActorName: "mod",
		DecidedAt: time.Now(),
	}
	inserted, err := client.AppendDecision(ctx, d)
	if err != nil || !inserted {
		t.Fatalf("first decision: inserted=%v err=%v", inserted, err)
	}
	dup := *d
	dup.ID = "d2"
	inserted, err = client.AppendDecision(ctx, &dup)
	if err != nil {
		t.Fatalf("duplicate decision: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate decision to be ignored")
	}
	other := *d
	other.ID = "d3"
	other.Kind = db.DecisionDelete
	if inserted, _ := client.AppendDecision(ctx, &other); !inserted {
		t.Fatalf("expected different decision kind to be recorded")
	}

	decisions, err := client.GetDecisions(ctx, "f1")
	if err != nil {
		t.Fatalf("get decisions: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
}
