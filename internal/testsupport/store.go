package testsupport

import (
	"context"
	"testing"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedVideo inserts a minimal video row for tests and returns it.
func SeedVideo(t testing.TB, st *store.Store, videoID, title string, views int64) *store.Video {
	t.Helper()

	v := &store.Video{
		VideoID:     videoID,
		Title:       title,
		ViewCount:   views,
		CollectedAt: time.Now(),
	}
	if _, err := st.UpsertVideo(context.Background(), v); err != nil {
		t.Fatalf("UpsertVideo: %v", err)
	}
	return v
}
