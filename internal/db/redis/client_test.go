package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"

	"github.com/iamwavecut/modbot/internal/db"
)

func newTestClient(t *testing.T) *redisClient {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	if err != nil {
		t.Fatalf("new rueidis client: %v", err)
	}
	c := NewWithClient(client, "test:")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestRedisRecordRoundTripKeepsCounters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestClient(t)

	if _, err := c.IncrementNonSevere(ctx, "1"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := c.CreateRecord(ctx, &db.FlaggedMessage{ID: "1", GuildID: "g", ChannelID: "c", AuthorName: "eve", Content: "hi"}); err != nil {
		t.Fatalf("create record: %v", err)
	}
	rec, err := c.GetRecord(ctx, "1")
	if err != nil || rec == nil {
		t.Fatalf("get record: %v %v", rec, err)
	}
	if rec.NonSevereCount != 1 || rec.AuthorName != "eve" || rec.ChannelID != "c" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	missing, err := c.GetRecord(ctx, "404")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown record, got %+v %v", missing, err)
	}
}

func TestRedisAppendReportConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestClient(t)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := c.AppendReport(ctx, "5", &db.ReviewerReport{
				Author:      "mod",
				Timestamp:   time.Now(),
				Description: fmt.Sprintf("r%d", i),
			}); err != nil {
				t.Errorf("append report: %v", err)
			}
		}(i)
	}
	wg.Wait()

	reports, err := c.GetReports(ctx, "5")
	if err != nil {
		t.Fatalf("get reports: %v", err)
	}
	if len(reports) != writers {
		t.Fatalf("expected %d reports, got %d", writers, len(reports))
	}
	for i, r := range reports {
		if r.Seq != i+1 {
			t.Fatalf("expected dense ordering, got seq %d at %d", r.Seq, i)
		}
	}
	rec, _ := c.GetRecord(ctx, "5")
	if rec == nil || rec.ReportCount != writers {
		t.Fatalf("unexpected report count: %+v", rec)
	}
}

func TestRedisPromptLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestClient(t)

	if err := c.SetPromptMapping(ctx, "p", "m"); err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	id, ok, err := c.ResolvePrompt(ctx, "p")
	if err != nil || !ok || id != "m" {
		t.Fatalf("resolve: %q %v %v", id, ok, err)
	}
	if err := c.ClearPrompt(ctx, "p"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, err := c.ResolvePrompt(ctx, "p"); ok || err != nil {
		t.Fatalf("expected cleared prompt, ok=%v err=%v", ok, err)
	}
}

func TestRedisDecisionsAreIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := newTestClient(t)

	d := &db.Decision{ID: "1", ForwardID: "f", MessageID: "m", Kind: db.DecisionInsufficient, ActorID: "u", DecidedAt: time.Now()}
	for i, want := range []bool{true, false} {
		got, err := c.AppendDecision(ctx, d)
		if err != nil {
			t.Fatalf("append decision %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("append decision %d: got %v want %v", i, got, want)
		}
	}
	decisions, err := c.GetDecisions(ctx, "f")
	if err != nil {
		t.Fatalf("get decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Kind != db.DecisionInsufficient {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}
}
