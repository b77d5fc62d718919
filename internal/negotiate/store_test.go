package negotiate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreTaskLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateTask(ctx, testBrief())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task, err := store.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != StatusCreated {
		t.Errorf("initial status: got %v want %v", task.Status, StatusCreated)
	}
	if task.Brief.Brand != "Walmart" || task.Brief.Identifiers["order_id"] != "112-556" {
		t.Errorf("brief round trip: %+v", task.Brief)
	}

	if err := store.SetStatus(ctx, id, StatusResolved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	task, _ = store.GetTask(ctx, id)
	if task.Status != StatusResolved {
		t.Errorf("status after update: got %v", task.Status)
	}
}

func TestSQLiteStoreUnknownTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetTask(ctx, "nope"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("GetTask: got %v want ErrTaskNotFound", err)
	}
	if err := store.SetStatus(ctx, "nope", StatusFailed); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("SetStatus: got %v want ErrTaskNotFound", err)
	}
}

func TestSQLiteStoreSummary(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateTask(ctx, testBrief())
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if _, ok, err := store.GetSummary(ctx, id); err != nil || ok {
		t.Fatalf("summary before save: ok=%v err=%v", ok, err)
	}

	sum := Summary{
		TicketID:   "WM-CASE-55321",
		Resolution: "Full refund to original payment",
		Amount:     89.99,
		ETA:        "3-5 business days",
		Citations:  []map[string]string{{"title": "Return policy", "url": "https://example.com"}},
		Notes:      []string{"Prepaid label emailed"},
	}
	if err := store.SaveSummary(ctx, id, sum); err != nil {
		t.Fatalf("SaveSummary: %v", err)
	}

	got, ok, err := store.GetSummary(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetSummary: ok=%v err=%v", ok, err)
	}
	if got.TicketID != sum.TicketID || got.Amount != sum.Amount {
		t.Errorf("summary round trip: %+v", got)
	}
	if len(got.Citations) != 1 || got.Citations[0]["title"] != "Return policy" {
		t.Errorf("citations round trip: %+v", got.Citations)
	}

	// Saving again replaces, not duplicates.
	sum.Amount = 99.99
	if err := store.SaveSummary(ctx, id, sum); err != nil {
		t.Fatalf("second SaveSummary: %v", err)
	}
	got, _, _ = store.GetSummary(ctx, id)
	if got.Amount != 99.99 {
		t.Errorf("summary not replaced: %+v", got)
	}
}
