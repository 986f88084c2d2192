package watch_test

import (
	"context"
	"testing"
	"time"

	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
	"spyglass/internal/testsupport"
	"spyglass/internal/watch"
)

func newWatcher(t *testing.T, st *store.Store, exec *testsupport.FakeExecutor) *watch.Watcher {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	client, err := scrape.New(cfg, logging.NewNop(), scrape.WithExecutor(exec))
	if err != nil {
		t.Fatalf("scrape.New: %v", err)
	}
	workers := pool.New(2, 4)
	t.Cleanup(func() {
		workers.Stop(time.Second)
	})
	return watch.New(st, client, workers, logging.NewNop())
}

func TestPollDiscoversNewUploads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	watcher := newWatcher(t, st, exec)
	ctx := context.Background()

	if err := st.WatchChannel(ctx, &store.WatchedChannel{
		ChannelID: "UCfeed",
		Priority:  store.PriorityNormal,
	}); err != nil {
		t.Fatalf("WatchChannel failed: %v", err)
	}
	if err := st.TouchWatch(ctx, "UCfeed", "ooooooooo01", nil, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("TouchWatch failed: %v", err)
	}

	// Newest first; the third entry is the upload seen last poll.
	exec.Respond("channel/UCfeed/videos",
		`{"id":"nnnnnnnnn02","title":"Second new upload","channel":"Feed"}`,
		`{"id":"nnnnnnnnn01","title":"First new upload","channel":"Feed"}`,
		`{"id":"ooooooooo01","title":"Old upload","channel":"Feed"}`,
	)

	stats, err := watcher.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if stats.Due != 1 || stats.Polled != 1 || stats.NewVideos != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	pubs, err := st.RecentPublications(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentPublications failed: %v", err)
	}
	if len(pubs) != 2 {
		t.Fatalf("expected 2 publications, got %d", len(pubs))
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	newVideo := 0
	for _, a := range alerts {
		if a.Kind == store.AlertNewVideo {
			newVideo++
			if a.Level != store.LevelImportant {
				t.Fatalf("normal priority should alert important, got %q", a.Level)
			}
		}
	}
	if newVideo != 2 {
		t.Fatalf("expected 2 new-video alerts, got %d", newVideo)
	}

	// The watch cursor advanced to the newest upload.
	watches, err := st.ActiveWatches(ctx)
	if err != nil {
		t.Fatalf("ActiveWatches failed: %v", err)
	}
	if watches[0].LastVideoID != "nnnnnnnnn02" {
		t.Fatalf("cursor not advanced: %q", watches[0].LastVideoID)
	}
}

func TestPollCriticalPriorityAlertsUrgent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	watcher := newWatcher(t, st, exec)
	ctx := context.Background()

	if err := st.WatchChannel(ctx, &store.WatchedChannel{
		ChannelID: "UCvip",
		Priority:  store.PriorityCritical,
	}); err != nil {
		t.Fatalf("WatchChannel failed: %v", err)
	}
	exec.Respond("channel/UCvip/videos",
		`{"id":"vvvvvvvvv01","title":"Breaking upload","channel":"VIP"}`,
	)

	if _, err := watcher.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Kind == store.AlertNewVideo {
			found = true
			if a.Level != store.LevelUrgent {
				t.Fatalf("critical priority should alert urgent, got %q", a.Level)
			}
		}
	}
	if !found {
		t.Fatal("new video alert missing")
	}
}

func TestPollTopicMatchAlert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	watcher := newWatcher(t, st, exec)
	ctx := context.Background()

	if err := st.WatchChannel(ctx, &store.WatchedChannel{
		ChannelID:        "UCtopic",
		InterestedTopics: []string{"AI", "rust"},
	}); err != nil {
		t.Fatalf("WatchChannel failed: %v", err)
	}
	exec.Respond("channel/UCtopic/videos",
		`{"id":"ttttttttt01","title":"Why Rust is taking over","channel":"Topical"}`,
		`{"id":"ttttttttt02","title":"Cooking pasta","channel":"Topical"}`,
	)

	if _, err := watcher.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	alerts, err := st.ListAlerts(ctx, true, 20)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	matches := 0
	for _, a := range alerts {
		if a.Kind == store.AlertTopicMatch {
			matches++
			if a.Data["topic"] != "rust" {
				t.Fatalf("unexpected matched topic: %#v", a.Data)
			}
		}
	}
	if matches != 1 {
		t.Fatalf("expected 1 topic match, got %d", matches)
	}
}

func TestPollSkipsRecentlyChecked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	watcher := newWatcher(t, st, &testsupport.FakeExecutor{})
	ctx := context.Background()

	if err := st.WatchChannel(ctx, &store.WatchedChannel{
		ChannelID:        "UCfresh",
		CheckIntervalMin: 60,
	}); err != nil {
		t.Fatalf("WatchChannel failed: %v", err)
	}
	if err := st.TouchWatch(ctx, "UCfresh", "", nil, time.Now()); err != nil {
		t.Fatalf("TouchWatch failed: %v", err)
	}

	stats, err := watcher.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if stats.Due != 0 {
		t.Fatalf("freshly checked watch should not be due: %+v", stats)
	}
}

func TestEnrichChannelStoresProfile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	watcher := newWatcher(t, st, exec)
	ctx := context.Background()

	exec.Respond("channel/UCgood/about",
		`{"channel_id":"UCgood","channel":"Good Channel","uploader_id":"@good","channel_follower_count":5000}`)

	channel, err := watcher.EnrichChannel(ctx, "UCgood")
	if err != nil {
		t.Fatalf("EnrichChannel failed: %v", err)
	}
	if channel.ChannelName != "Good Channel" || channel.SubscriberCount != 5000 {
		t.Fatalf("unexpected channel: %#v", channel)
	}

	stored, err := st.GetChannel(ctx, "UCgood")
	if err != nil {
		t.Fatalf("GetChannel failed: %v", err)
	}
	if stored.Handle != "good" {
		t.Fatalf("handle not stored: %q", stored.Handle)
	}
}

func TestEnrichChannelAnomalyAlert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	watcher := newWatcher(t, st, exec)
	ctx := context.Background()

	// Profile parses but carries no name.
	exec.Respond("channel/UCodd/about", `{"channel_id":"UCodd"}`)

	if _, err := watcher.EnrichChannel(ctx, "UCodd"); err != nil {
		t.Fatalf("EnrichChannel failed: %v", err)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Kind == store.AlertChannelAnomaly {
			found = true
			if a.Level != store.LevelInfo {
				t.Fatalf("anomaly should be info level, got %q", a.Level)
			}
		}
	}
	if !found {
		t.Fatal("channel anomaly alert missing")
	}
}
