//go:build integration

package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// setupRedisContainer starts a Redis container for testing
func setupRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	endpoint, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	// Strip "redis://" prefix if present
	addr := endpoint
	if len(endpoint) > 8 && endpoint[:8] == "redis://" {
		addr = endpoint[8:]
	}

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return addr
}

func TestRedisStore_NewRedisStore_Success(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() unexpected error: %v", err)
	}
}

func TestRedisStore_NewRedisStore_EmptyAddr(t *testing.T) {
	if _, err := NewRedisStore("", "", 0, time.Minute); err == nil {
		t.Error("NewRedisStore() with empty address should fail")
	}
}

func TestRedisStore_NewRedisStore_InvalidDB(t *testing.T) {
	if _, err := NewRedisStore("localhost:6379", "", -1, time.Minute); err == nil {
		t.Error("NewRedisStore() with negative DB should fail")
	}
}

func TestRedisStore_PutGet(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

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

	if got.Dataset != snapshot.Dataset || got.Model != snapshot.Model || got.RowsDropped != snapshot.RowsDropped {
		t.Errorf("snapshot metadata differs after round trip: %+v", got)
	}
	if len(got.Predictions) != len(snapshot.Predictions) {
		t.Fatalf("predictions = %d, want %d", len(got.Predictions), len(snapshot.Predictions))
	}
	for i := range got.Predictions {
		want := snapshot.Predictions[i]
		if got.Predictions[i].Agency != want.Agency ||
			got.Predictions[i].SKU != want.SKU ||
			got.Predictions[i].Volume != want.Volume ||
			!got.Predictions[i].Date.Equal(want.Date) {
			t.Errorf("prediction %d = %+v, want %+v", i, got.Predictions[i], want)
		}
	}
}

func TestRedisStore_Put_InvalidDatasetName(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

	for _, name := range []string{"", "bad name", "bad/name", "bad:name"} {
		s := testSnapshot("x")
		s.Dataset = name
		if err := store.Put(context.Background(), s); err == nil {
			t.Errorf("Put() with dataset %q should fail", name)
		}
	}
}

func TestRedisStore_GetLatest_NotFound(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

	_, found, err := store.GetLatest(context.Background(), "never-stored")
	if err != nil {
		t.Fatalf("GetLatest() unexpected error: %v", err)
	}
	if found {
		t.Error("GetLatest() found = true for a dataset never stored")
	}
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 2*time.Second)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

	if err := store.Put(context.Background(), testSnapshot("ephemeral")); err != nil {
		t.Fatalf("Put() unexpected error: %v", err)
	}

	_, found, err := store.GetLatest(context.Background(), "ephemeral")
	if err != nil || !found {
		t.Fatalf("GetLatest() before expiry = (%v, %v), want found", found, err)
	}

	time.Sleep(3 * time.Second)

	_, found, err = store.GetLatest(context.Background(), "ephemeral")
	if err != nil {
		t.Fatalf("GetLatest() after expiry unexpected error: %v", err)
	}
	if found {
		t.Error("snapshot should have expired")
	}
}

func TestRedisStore_ConcurrentPuts(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}
	defer store.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Put(context.Background(), testSnapshot(fmt.Sprintf("dataset-%d", i))); err != nil {
				t.Errorf("Put() unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		_, found, err := store.GetLatest(context.Background(), fmt.Sprintf("dataset-%d", i))
		if err != nil || !found {
			t.Errorf("GetLatest(dataset-%d) = (%v, %v), want found", i, found, err)
		}
	}
}

func TestRedisStore_Close_Idempotent(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStore(addr, "", 0, 1*time.Minute)
	if err != nil {
		t.Fatalf("NewRedisStore() unexpected error: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("first Close() unexpected error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() unexpected error: %v", err)
	}
}
