package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/signalrelay/authgate/domain"
	"github.com/signalrelay/authgate/internal/infrastructure/journal"
)

type memStore struct {
	profiles map[string]*domain.Profile
	putErr   error
}

func newMemStore() *memStore {
	return &memStore{profiles: make(map[string]*domain.Profile)}
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (m *memStore) Put(_ context.Context, profile *domain.Profile) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *memStore) GetOrCreate(_ context.Context, id string, fresh func() *domain.Profile) (*domain.Profile, bool, error) {
	if p, ok := m.profiles[id]; ok {
		return p, false, nil
	}
	p := fresh()
	m.profiles[id] = p
	return p, true, nil
}

func (m *memStore) Ping(_ context.Context) error { return nil }

type health bool

func (h health) IsOnline() bool { return bool(h) }

func openTestJournal(t *testing.T) *journal.Store {
	t.Helper()
	jrn, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), "")
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { jrn.Close() })
	return jrn
}

func TestDrainReplaysJournaledWrites(t *testing.T) {
	jrn := openTestJournal(t)
	store := newMemStore()
	wb := NewWriteback(jrn, health(true), store, nil, WritebackConfig{})

	profile := domain.NewProfile("u-1", "trader@corp.com", "Trader", domain.PlanPro)
	if err := wb.JournalProfile(context.Background(), profile); err != nil {
		t.Fatalf("JournalProfile: %v", err)
	}

	if err := wb.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	replayed, ok := store.profiles["u-1"]
	if !ok {
		t.Fatal("journaled write never reached the store")
	}
	if replayed.Name != "Trader" || replayed.Plan != domain.PlanPro {
		t.Fatalf("replayed profile = %+v, want the journaled record", replayed)
	}
	size, _ := jrn.Size()
	if size != 0 {
		t.Fatalf("journal size = %d after drain, want 0", size)
	}
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	jrn := openTestJournal(t)
	store := newMemStore()
	wb := NewWriteback(jrn, health(false), store, nil, WritebackConfig{})

	if err := wb.JournalProfile(context.Background(), domain.NewProfile("u-1", "trader@corp.com", "Trader", "")); err != nil {
		t.Fatalf("JournalProfile: %v", err)
	}
	if err := wb.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if len(store.profiles) != 0 {
		t.Fatal("drain wrote to the store while the monitor reports it offline")
	}
	size, _ := jrn.Size()
	if size != 1 {
		t.Fatalf("journal size = %d, entries must survive an offline drain", size)
	}
}

func TestDrainRequeuesFailedReplay(t *testing.T) {
	jrn := openTestJournal(t)
	store := newMemStore()
	store.putErr = errors.New("still flaky")
	wb := NewWriteback(jrn, health(true), store, nil, WritebackConfig{MaxRetries: 3})

	if err := wb.JournalProfile(context.Background(), domain.NewProfile("u-1", "trader@corp.com", "Trader", "")); err != nil {
		t.Fatalf("JournalProfile: %v", err)
	}
	if err := wb.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	entries, err := jrn.Batch(10)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("journal holds %d entries after failed replay, want 1 requeued", len(entries))
	}
	if entries[0].Retries != 1 {
		t.Fatalf("Retries = %d, want 1", entries[0].Retries)
	}
}

func TestDrainDropsEntryAtMaxRetries(t *testing.T) {
	jrn := openTestJournal(t)
	store := newMemStore()
	store.putErr = errors.New("still flaky")
	wb := NewWriteback(jrn, health(true), store, nil, WritebackConfig{MaxRetries: 2})

	payload, _ := json.Marshal(domain.NewProfile("u-1", "trader@corp.com", "Trader", ""))
	if err := jrn.Append(journal.Entry{UserID: "u-1", Profile: payload, Retries: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := wb.Drain(context.Background()); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	size, _ := jrn.Size()
	if size != 0 {
		t.Fatalf("journal size = %d, entry at max retries must be dropped", size)
	}
}
