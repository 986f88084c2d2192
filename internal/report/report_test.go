package report_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spyglass/internal/logging"
	"spyglass/internal/report"
	"spyglass/internal/store"
	"spyglass/internal/testsupport"
)

func TestDailyDigestWritesSections(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	gen := report.New(cfg, st, logging.NewNop())
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "rrrrrrrrr11", "Rising star", 5000)
	now := time.Now().UTC()
	if err := st.UpsertMonitoring(ctx, &store.Monitoring{
		VideoID:        "rrrrrrrrr11",
		Tier:           store.TierHigh,
		IsPotential:    true,
		LastGrowthRate: 0.42,
		ViralScore:     48.0,
		LastCheckedAt:  now,
		NextCheckAt:    now.Add(6 * time.Hour),
	}); err != nil {
		t.Fatalf("UpsertMonitoring failed: %v", err)
	}
	if err := st.InsertAlert(ctx, store.AlertViralGrowth, store.LevelImportant, "rising fast", nil); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if err := st.AppendPublication(ctx, &store.Publication{
		ChannelID: "UCrep",
		VideoID:   "ppppppppp01",
		Title:     "Fresh upload",
	}); err != nil {
		t.Fatalf("AppendPublication failed: %v", err)
	}
	gen.NoteFailure("snapshot-sweep", "2 of 10 checks failed")

	path, err := gen.DailyDigest(ctx, now)
	if err != nil {
		t.Fatalf("DailyDigest failed: %v", err)
	}
	if want := "daily-" + now.Format("2006-01-02") + ".md"; filepath.Base(path) != want {
		t.Fatalf("unexpected file name %q, want %q", filepath.Base(path), want)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	body := string(raw)
	for _, section := range []string{
		"# Daily Digest",
		"## Overview",
		"Videos tracked: 1",
		"## Top growth",
		"Rising star",
		"## New publications",
		"Fresh upload",
		"## Unread alerts",
		"rising fast",
		"## Failures",
		"snapshot-sweep",
	} {
		if !strings.Contains(body, section) {
			t.Errorf("digest missing %q", section)
		}
	}
}

func TestWeeklyReportFileName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	gen := report.New(cfg, st, logging.NewNop())

	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	path, err := gen.WeeklyReport(context.Background(), now)
	if err != nil {
		t.Fatalf("WeeklyReport failed: %v", err)
	}
	year, week := now.ISOWeek()
	if !strings.Contains(filepath.Base(path), "weekly-") {
		t.Fatalf("unexpected path %q", path)
	}
	if year != 2026 || week != 36 {
		t.Fatalf("unexpected ISO week %d-W%d", year, week)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
}

func TestFailuresDrainAfterReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	gen := report.New(cfg, st, logging.NewNop())
	ctx := context.Background()

	gen.NoteFailure("watch-poll", "scraper exit 1")
	now := time.Now().UTC()
	if _, err := gen.DailyDigest(ctx, now); err != nil {
		t.Fatalf("DailyDigest failed: %v", err)
	}

	// A second render starts with a clean failure list.
	path, err := gen.DailyDigest(ctx, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("DailyDigest failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(raw), "## Failures") {
		t.Fatal("failures section should drain after reporting")
	}
}
