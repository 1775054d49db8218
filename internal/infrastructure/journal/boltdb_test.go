package journal

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close journal: %v", err)
		}
	})
	return store
}

func TestAppendAndBatchPreservesOrder(t *testing.T) {
	store := openTestStore(t)

	base := time.Now()
	for i, userID := range []string{"u-1", "u-2", "u-3"} {
		entry := Entry{
			UserID:    userID,
			Profile:   json.RawMessage(`{"id":"` + userID + `"}`),
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := store.Append(entry); err != nil {
			t.Fatalf("Append %s: %v", userID, err)
		}
	}

	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Batch returned %d entries, want 3", len(entries))
	}
	for i, want := range []string{"u-1", "u-2", "u-3"} {
		if entries[i].UserID != want {
			t.Fatalf("entry %d is %q, want %q (arrival order)", i, entries[i].UserID, want)
		}
	}
}

func TestBatchRespectsLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		entry := Entry{UserID: "u-1", Timestamp: base.Add(time.Duration(i) * time.Millisecond)}
		if err := store.Append(entry); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	entries, err := store.Batch(2)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Batch returned %d entries, want 2", len(entries))
	}
}

func TestRemoveAndSize(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(Entry{UserID: "u-1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := store.Batch(1)
	if err != nil || len(entries) != 1 {
		t.Fatalf("Batch: entries=%d err=%v", len(entries), err)
	}

	if err := store.Remove(entries[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 0 {
		t.Fatalf("Size = %d after removal, want 0", size)
	}
}

func TestRequeueKeepsEntry(t *testing.T) {
	store := openTestStore(t)

	if err := store.Append(Entry{UserID: "u-1", Retries: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, _ := store.Batch(1)
	if err := store.Remove(entries[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Requeue(entries[0]); err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	size, err := store.Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 1 {
		t.Fatalf("Size = %d after requeue, want 1", size)
	}
	requeued, _ := store.Batch(1)
	if requeued[0].ID != entries[0].ID {
		t.Fatal("requeued entry lost its id")
	}
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	store := openTestStore(t)

	old := Entry{UserID: "u-1", Timestamp: time.Now().Add(-48 * time.Hour)}
	recent := Entry{UserID: "u-2", Timestamp: time.Now()}
	if err := store.Append(old); err != nil {
		t.Fatalf("Append old: %v", err)
	}
	if err := store.Append(recent); err != nil {
		t.Fatalf("Append recent: %v", err)
	}

	if err := store.Cleanup(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	entries, err := store.Batch(10)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "u-2" {
		t.Fatalf("entries after cleanup = %+v, want only the recent one", entries)
	}
}
