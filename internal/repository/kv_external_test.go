package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/db"
	"github.com/pixelrelay/vote-system/internal/model"
)

// exerciseStore runs the same contract checks against any medium.
func exerciseStore(t *testing.T, kv KVStore) {
	t.Helper()
	ctx := context.Background()
	clientID := "it-" + time.Now().Format("150405.000000000")
	repo := NewVoteRecordRepo(kv, clientID, zerolog.Nop())
	defer repo.Clear(ctx)

	if rec := repo.Read(ctx); rec != nil {
		t.Fatalf("fresh key already holds %+v", rec)
	}
	want := model.NewVoteRecord("c2", time.UnixMilli(1_700_000_000_001))
	if err := repo.Write(ctx, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := NewVoteRecordRepo(kv, clientID, zerolog.Nop()).Read(ctx)
	if got == nil || *got != *want {
		t.Fatalf("Read() = %+v, want %+v", got, want)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if rec := repo.Read(ctx); rec != nil {
		t.Errorf("Read() after Clear = %+v", rec)
	}
}

func TestRedisStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	store, err := NewRedisStore(url)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestPostgresStore_Integration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, url, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	store, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}
