package growth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/growth"
	"spyglass/internal/logging"
	"spyglass/internal/pool"
	"spyglass/internal/scrape"
	"spyglass/internal/store"
	"spyglass/internal/testsupport"
)

func newMonitor(t *testing.T, cfg *config.Config, st *store.Store, exec *testsupport.FakeExecutor) *growth.Monitor {
	t.Helper()

	client, err := scrape.New(cfg, logging.NewNop(), scrape.WithExecutor(exec))
	if err != nil {
		t.Fatalf("scrape.New: %v", err)
	}
	workers := pool.New(2, 4)
	t.Cleanup(func() {
		workers.Stop(time.Second)
	})
	return growth.New(cfg, st, client, workers, logging.NewNop())
}

func detailJSON(videoID string, views int64, publishedUnix int64) string {
	return fmt.Sprintf(`{"id":%q,"title":"Video %s","channel":"Chan","channel_id":"UCx","view_count":%d,"timestamp":%d}`,
		videoID, videoID, views, publishedUnix)
}

func TestCheckVideoFirstObservation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	monitor := newMonitor(t, cfg, st, exec)
	ctx := context.Background()

	published := time.Now().Add(-24 * time.Hour).Unix()
	exec.Respond("watch?v=aaaaaaaaaaa", detailJSON("aaaaaaaaaaa", 1000, published))
	testsupport.SeedVideo(t, st, "aaaaaaaaaaa", "Video aaaaaaaaaaa", 900)

	viral, err := monitor.CheckVideo(ctx, "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("CheckVideo failed: %v", err)
	}
	if viral {
		t.Fatal("single observation cannot be viral")
	}

	snap, err := st.LastSnapshot(ctx, "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("LastSnapshot failed: %v", err)
	}
	if snap.ViewCount != 1000 || snap.ViewCountDelta != 0 || snap.GrowthRate != 0 {
		t.Fatalf("first snapshot should carry zero growth fields: %#v", snap)
	}

	mon, err := st.GetMonitoring(ctx, "aaaaaaaaaaa")
	if err != nil {
		t.Fatalf("GetMonitoring failed: %v", err)
	}
	if mon.Tier != store.TierHigh {
		t.Fatalf("day-old video should sit in the high tier, got %v", mon.Tier)
	}
	if mon.IsPotential {
		t.Fatal("zero growth must not flag potential")
	}
	if got := mon.NextCheckAt.Sub(mon.LastCheckedAt); got != 6*time.Hour {
		t.Fatalf("expected 6h recheck interval, got %v", got)
	}
}

func TestCheckVideoFlagsViralGrowth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	monitor := newMonitor(t, cfg, st, exec)
	ctx := context.Background()

	published := time.Now().Add(-48 * time.Hour).Unix()
	exec.Respond("watch?v=bbbbbbbbbbb", detailJSON("bbbbbbbbbbb", 3100, published))
	testsupport.SeedVideo(t, st, "bbbbbbbbbbb", "Video bbbbbbbbbbb", 2000)

	// History whose rates climb 0.05, 0.10, 0.20; the fresh fetch adds
	// 0.55 on top.
	base := time.Now().Add(-48 * time.Hour)
	history := []struct {
		views int64
		rate  float64
	}{
		{1443, 0}, {1515, 0.05}, {1666, 0.10}, {2000, 0.20},
	}
	for i, h := range history {
		snap := &store.ViewSnapshot{
			VideoID:    "bbbbbbbbbbb",
			ViewCount:  h.views,
			GrowthRate: h.rate,
			RecordedAt: base.Add(time.Duration(i) * 12 * time.Hour),
		}
		if i > 0 {
			snap.HoursSinceLast = 12
			snap.ViewCountDelta = h.views - history[i-1].views
		}
		if err := st.AppendSnapshot(ctx, snap); err != nil {
			t.Fatalf("AppendSnapshot failed: %v", err)
		}
	}

	viral, err := monitor.CheckVideo(ctx, "bbbbbbbbbbb")
	if err != nil {
		t.Fatalf("CheckVideo failed: %v", err)
	}
	if !viral {
		t.Fatal("accelerating series should flag viral")
	}

	mon, err := st.GetMonitoring(ctx, "bbbbbbbbbbb")
	if err != nil {
		t.Fatalf("GetMonitoring failed: %v", err)
	}
	if !mon.IsPotential {
		t.Fatal("rate above threshold should flag potential")
	}
	if mon.LastGrowthRate != 0.55 {
		t.Fatalf("expected rate 0.55, got %v", mon.LastGrowthRate)
	}
	if mon.ViralScore <= 0 {
		t.Fatalf("expected positive viral score, got %v", mon.ViralScore)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	var found *store.Alert
	for i := range alerts {
		if alerts[i].Kind == store.AlertViralGrowth {
			found = &alerts[i]
		}
	}
	if found == nil {
		t.Fatal("viral growth alert missing")
	}
	if found.Level != store.LevelImportant {
		t.Fatalf("expected important level, got %q", found.Level)
	}
	for _, key := range []string{"growth_rate", "acceleration", "viral_score"} {
		if _, ok := found.Data[key]; !ok {
			t.Fatalf("alert data missing %q: %#v", key, found.Data)
		}
	}
}

func TestCheckVideoRaisesCountRegressionAlert(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	monitor := newMonitor(t, cfg, st, exec)
	ctx := context.Background()

	published := time.Now().Add(-10 * 24 * time.Hour).Unix()
	exec.Respond("watch?v=ccccccccccc", detailJSON("ccccccccccc", 2000, published))
	testsupport.SeedVideo(t, st, "ccccccccccc", "Video ccccccccccc", 10000)
	if err := st.AppendSnapshot(ctx, &store.ViewSnapshot{
		VideoID:    "ccccccccccc",
		ViewCount:  10000,
		RecordedAt: time.Now().Add(-12 * time.Hour),
	}); err != nil {
		t.Fatalf("AppendSnapshot failed: %v", err)
	}

	if _, err := monitor.CheckVideo(ctx, "ccccccccccc"); err != nil {
		t.Fatalf("CheckVideo failed: %v", err)
	}

	// The snapshot keeps the raw negative delta.
	snap, err := st.LastSnapshot(ctx, "ccccccccccc")
	if err != nil {
		t.Fatalf("LastSnapshot failed: %v", err)
	}
	if snap.ViewCountDelta != -8000 {
		t.Fatalf("expected raw delta -8000, got %d", snap.ViewCountDelta)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	found := false
	for _, a := range alerts {
		if a.Kind == store.AlertCountRegression {
			found = true
		}
	}
	if !found {
		t.Fatal("count regression alert missing")
	}
}

func TestSweepCountsOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	exec := &testsupport.FakeExecutor{}
	monitor := newMonitor(t, cfg, st, exec)
	ctx := context.Background()

	published := time.Now().Add(-24 * time.Hour).Unix()
	exec.Respond("watch?v=ddddddddddd", detailJSON("ddddddddddd", 500, published))
	exec.Fail("watch?v=eeeeeeeeeee", fmt.Errorf("exit status 1"))
	testsupport.SeedVideo(t, st, "ddddddddddd", "Video ddddddddddd", 400)
	testsupport.SeedVideo(t, st, "eeeeeeeeeee", "Video eeeeeeeeeee", 400)

	stats, err := monitor.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if stats.Due != 2 {
		t.Fatalf("expected 2 due, got %d", stats.Due)
	}
	if stats.Succeeded != 1 || stats.Failed != 1 {
		t.Fatalf("unexpected outcome counts: %+v", stats)
	}
}

func TestSweepEmptyQueue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	monitor := newMonitor(t, cfg, st, &testsupport.FakeExecutor{})

	stats, err := monitor.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if stats.Due != 0 || stats.Succeeded != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}
