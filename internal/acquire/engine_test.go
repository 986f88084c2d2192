package acquire_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spyglass/internal/acquire"
	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
	"spyglass/internal/testsupport"
)

func newEngine(t *testing.T, cfg *config.Config, st *store.Store, exec *testsupport.FakeExecutor) *acquire.Engine {
	t.Helper()

	client, err := scrape.New(cfg, logging.NewNop(), scrape.WithExecutor(exec))
	if err != nil {
		t.Fatalf("scrape.New: %v", err)
	}
	workers := pool.New(2, 4)
	t.Cleanup(func() {
		workers.Stop(time.Second)
	})
	return acquire.New(cfg, st, client, workers, logging.NewNop())
}

func TestCollectTwoPhaseSweep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)
	ctx := context.Background()

	exec.Respond("ytsearch50:golang tutorial",
		`{"id":"ggggggggg01","title":"Go in an hour","uploader":"GoChan","view_count":25000}`,
		`{"id":"ggggggggg02","title":"Go tips","uploader":"GoChan","view_count":300}`,
	)
	exec.Respond("ytsearch50:rust tutorial",
		`{"id":"rrrrrrrrr01","title":"Rust basics","uploader":"RustChan","view_count":5000}`,
	)
	// Phase B detail fetches for the rows above the view floor.
	exec.Respond("watch?v=ggggggggg01",
		`{"id":"ggggggggg01","title":"Go in an hour","channel":"GoChan","channel_id":"UCgo","view_count":25500,"like_count":800,"description":"full course"}`)
	exec.Respond("watch?v=rrrrrrrrr01",
		`{"id":"rrrrrrrrr01","title":"Rust basics","channel":"RustChan","channel_id":"UCrust","view_count":5100,"like_count":200}`)

	result, err := engine.Collect(ctx, "programming", []string{"golang tutorial", "rust tutorial"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if result.Partial() {
		t.Fatalf("clean sweep reported partial: %+v", result)
	}
	if result.Found != 3 || result.Inserted != 3 {
		t.Fatalf("unexpected sweep counts: %+v", result)
	}
	if result.DetailFetched != 2 || result.DetailFailed != 0 {
		t.Fatalf("unexpected enrichment counts: %+v", result)
	}
	if result.SweepID == "" {
		t.Fatal("sweep id missing")
	}

	// The low-view row stays at the search layer.
	low, err := st.GetVideo(ctx, "ggggggggg02")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if low.HasDetails {
		t.Fatal("row under the view floor must not be enriched")
	}
	if low.Theme != "programming" || low.KeywordSource != "golang tutorial" {
		t.Fatalf("provenance missing: %#v", low)
	}

	enriched, err := st.GetVideo(ctx, "ggggggggg01")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if !enriched.HasDetails || enriched.ChannelID != "UCgo" || enriched.LikeCount != 800 {
		t.Fatalf("detail layer not merged: %#v", enriched)
	}
	// Provenance survives the detail merge.
	if enriched.Theme != "programming" {
		t.Fatalf("theme lost on enrichment: %q", enriched.Theme)
	}
}

func TestCollectPartialFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)

	exec.Fail("ytsearch50:broken", errors.New("exit status 1"))
	exec.Respond("ytsearch50:working",
		`{"id":"wwwwwwwww01","title":"Works fine","view_count":50}`,
	)

	result, err := engine.Collect(context.Background(), "mixed", []string{"broken", "working"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if !result.Partial() {
		t.Fatal("sweep with a failed keyword should be partial")
	}
	if len(result.Failed) != 1 || result.Failed[0] != "broken" {
		t.Fatalf("unexpected failed keywords: %v", result.Failed)
	}
	if result.Inserted != 1 {
		t.Fatalf("surviving keyword not persisted: %+v", result)
	}
}

func TestCollectAllKeywordsFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)

	exec.Fail("ytsearch", errors.New("exit status 1"))

	if _, err := engine.Collect(context.Background(), "doomed", []string{"kw1", "kw2"}); err == nil {
		t.Fatal("expected error when every keyword fails")
	}
}

func TestReacquisitionRegressionAlert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "ddddddddd01", "Previously big", 10000)

	// Any strictly lower re-observed count is a regression, even a
	// modest correction well short of a collapse.
	exec.Respond("ytsearch50:shrink",
		`{"id":"ddddddddd01","title":"Previously big","view_count":7000}`,
	)

	result, err := engine.Collect(ctx, "watching", []string{"shrink"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if result.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", result)
	}

	// The observed value is persisted unchanged.
	v, err := st.GetVideo(ctx, "ddddddddd01")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if v.ViewCount != 7000 {
		t.Fatalf("expected persisted count 7000, got %d", v.ViewCount)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	var alert *store.Alert
	for i := range alerts {
		if alerts[i].Kind == store.AlertCountRegression {
			alert = &alerts[i]
		}
	}
	if alert == nil {
		t.Fatal("count regression alert missing")
	}
	if alert.Level != store.LevelInfo {
		t.Fatalf("regression alert level = %q, want info", alert.Level)
	}
}

func TestReacquisitionEqualCountNoAlert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "ddddddddd02", "Holding steady", 10000)
	exec.Respond("ytsearch50:steady",
		`{"id":"ddddddddd02","title":"Holding steady","view_count":10000}`,
	)

	if _, err := engine.Collect(ctx, "watching", []string{"steady"}); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	for _, a := range alerts {
		if a.Kind == store.AlertCountRegression {
			t.Fatal("equal re-observed count must not alert")
		}
	}
}

func TestEnrichDetailsStoresComments(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(c *config.Config) {
		c.Scraper.CommentsEnabled = true
	})
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "eeeeeeeee01", "Needs details", 8000)

	exec.Respond("watch?v=eeeeeeeee01",
		`{"id":"eeeeeeeee01","title":"Needs details","channel_id":"UCe","view_count":8100,`+
			`"comments":[{"id":"cm1","text":"first","author":"a1","like_count":7},{"id":"cm2","text":"second","author":"a2"}]}`)

	result, err := engine.EnrichDetails(ctx, int64(cfg.Collect.DetailMinViews))
	if err != nil {
		t.Fatalf("EnrichDetails failed: %v", err)
	}
	if result.Queued != 1 || result.Fetched != 1 || result.Failed != 0 {
		t.Fatalf("unexpected enrich counts: %+v", result)
	}

	comments, err := st.CommentsForVideo(ctx, "eeeeeeeee01", 10)
	if err != nil {
		t.Fatalf("CommentsForVideo failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].LikeCount != 7 {
		t.Fatalf("expected most liked first: %#v", comments[0])
	}
}

func TestEnrichDetailsHonorsViewFloor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	engine := newEngine(t, cfg, st, exec)
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "fffffffff01", "Below the sweep floor", 8000)
	testsupport.SeedVideo(t, st, "fffffffff02", "Above the sweep floor", 20000)

	exec.Respond("watch?v=fffffffff02",
		`{"id":"fffffffff02","title":"Above the sweep floor","channel_id":"UCf","view_count":20500}`)

	// The standalone sweep runs with its own floor, not the
	// acquisition default.
	result, err := engine.EnrichDetails(ctx, int64(cfg.Schedule.EnrichMinViews))
	if err != nil {
		t.Fatalf("EnrichDetails failed: %v", err)
	}
	if result.Queued != 1 || result.Fetched != 1 {
		t.Fatalf("unexpected enrich counts: %+v", result)
	}

	low, err := st.GetVideo(ctx, "fffffffff01")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if low.HasDetails {
		t.Fatal("row under the sweep floor must not be enriched")
	}
	high, err := st.GetVideo(ctx, "fffffffff02")
	if err != nil {
		t.Fatalf("GetVideo failed: %v", err)
	}
	if !high.HasDetails {
		t.Fatal("row above the sweep floor should be enriched")
	}
}
