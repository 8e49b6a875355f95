package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testSnapshot(dataset string) Snapshot {
	return Snapshot{
		Dataset:     dataset,
		GeneratedAt: time.Now().UTC(),
		Model:       "gbt(rounds=500,lr=0.05,depth=6)",
		RowsDropped: 2,
		Predictions: []Prediction{
			{Agency: "A1", SKU: "S1", Date: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), Volume: 120.5},
			{Agency: "A1", SKU: "S2", Date: time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), Volume: 80},
		},
	}
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.Len() != 0 {
		t.Errorf("new store should be empty, got %d snapshots", store.Len())
	}
}

func TestMemoryStore_PutGet(t *testing.T) {
	store := NewMemoryStore()
	snapshot := testSnapshot("monthly-volume")

	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	got, found, err := store.GetLatest(context.Background(), "monthly-volume")
	if err != nil {
		t.Fatalf("GetLatest() unexpected error: %v", err)
	}
	if !found {
		t.Fatal("GetLatest() found = false, want true")
	}

	if got.Dataset != snapshot.Dataset || got.Model != snapshot.Model {
		t.Errorf("snapshot = (%s, %s), want (%s, %s)", got.Dataset, got.Model, snapshot.Dataset, snapshot.Model)
	}
	if len(got.Predictions) != 2 {
		t.Fatalf("predictions = %d, want 2", len(got.Predictions))
	}
	if got.Predictions[0].Volume != 120.5 {
		t.Errorf("prediction 0 volume = %v, want 120.5", got.Predictions[0].Volume)
	}
	if got.RowsDropped != 2 {
		t.Errorf("RowsDropped = %d, want 2", got.RowsDropped)
	}
}

func TestMemoryStore_EmptyDataset(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Put(context.Background(), Snapshot{}); err == nil {
		t.Error("Put() with empty dataset should fail")
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, found, err := store.GetLatest(context.Background(), "absent")
	if err != nil {
		t.Fatalf("GetLatest() unexpected error: %v", err)
	}
	if found {
		t.Error("GetLatest() found = true for a dataset never stored")
	}
}

func TestMemoryStore_ReplacesLatest(t *testing.T) {
	store := NewMemoryStore()

	first := testSnapshot("d")
	first.RowsDropped = 1
	second := testSnapshot("d")
	second.RowsDropped = 9

	if err := store.Put(context.Background(), first); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}
	if err := store.Put(context.Background(), second); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	got, _, err := store.GetLatest(context.Background(), "d")
	if err != nil {
		t.Fatalf("GetLatest() unexpected error: %v", err)
	}
	if got.RowsDropped != 9 {
		t.Errorf("RowsDropped = %d, want the replacement snapshot", got.RowsDropped)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, testSnapshot("d")); err == nil {
		t.Error("Put() with canceled context should fail")
	}
	if _, _, err := store.GetLatest(ctx, "d"); err == nil {
		t.Error("GetLatest() with canceled context should fail")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			snapshot := testSnapshot(fmt.Sprintf("dataset-%d", i))
			if err := store.Put(context.Background(), snapshot); err != nil {
				t.Errorf("Put() unexpected error: %v", err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, _, err := store.GetLatest(context.Background(), fmt.Sprintf("dataset-%d", i)); err != nil {
				t.Errorf("GetLatest() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 10 {
		t.Errorf("Len() = %d, want 10", store.Len())
	}
}
