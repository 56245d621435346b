package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

var t0 = time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

func TestAdd_AssignsUUID(t *testing.T) {
	j := openMemory(t)
	id, err := j.Add(context.Background(), Record{Frame: "moldura_1.png", StartedAt: t0, FinishedAt: t0.Add(9 * time.Second), Outcome: OutcomePrinted})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("id %q is not a uuid: %v", id, err)
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	ctx := context.Background()
	j := openMemory(t)
	for i, outcome := range []string{OutcomePrinted, OutcomeSaved, OutcomeCancelled} {
		start := t0.Add(time.Duration(i) * time.Minute)
		if _, err := j.Add(ctx, Record{Frame: "f.png", StartedAt: start, FinishedAt: start.Add(time.Second), Outcome: outcome, Output: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Outcome != OutcomeCancelled || got[1].Outcome != OutcomeSaved {
		t.Errorf("order = %s, %s", got[0].Outcome, got[1].Outcome)
	}
	if !got[0].StartedAt.Equal(t0.Add(2 * time.Minute)) {
		t.Errorf("started_at = %v", got[0].StartedAt)
	}
	if got[0].FinishedAt.Sub(got[0].StartedAt) != time.Second {
		t.Errorf("finished_at = %v", got[0].FinishedAt)
	}
}

func TestRecent_Empty(t *testing.T) {
	got, err := openMemory(t).Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Recent = %v, want empty non-nil", got)
	}
}

func TestCounts(t *testing.T) {
	ctx := context.Background()
	j := openMemory(t)
	for _, o := range []string{OutcomePrinted, OutcomePrinted, OutcomeFailed} {
		if _, err := j.Add(ctx, Record{Frame: "f.png", StartedAt: t0, FinishedAt: t0, Outcome: o}); err != nil {
			t.Fatal(err)
		}
	}
	counts, err := j.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[OutcomePrinted] != 2 || counts[OutcomeFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestOpen_FileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "sessions.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := j.Add(ctx, Record{ID: "fixed-id", Frame: "f.png", StartedAt: t0, FinishedAt: t0, Outcome: OutcomeSaved})
	if err != nil {
		t.Fatal(err)
	}
	if id != "fixed-id" {
		t.Errorf("id = %s", id)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Recent(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "fixed-id" {
		t.Errorf("after reopen = %+v", got)
	}
}
