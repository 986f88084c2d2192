// Package report renders the daily digest and weekly report as Markdown
// files under the configured report directory. Reports are read-only
// snapshots of the store and are not authoritative.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/store"
)

// Failure is one sweep-level failure noted since the last report.
type Failure struct {
	Source string
	Detail string
	At     time.Time
}

// Generator writes digest and report files.
type Generator struct {
	store  *store.Store
	logger *slog.Logger
	dir    string

	mu       sync.Mutex
	failures []Failure
}

// New builds a generator writing under the configured report directory.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Generator {
	return &Generator{
		store:  st,
		logger: logging.WithComponent(logger, "report"),
		dir:    cfg.Paths.ReportDir,
	}
}

// NoteFailure records a sweep failure for the next report's failures
// section.
func (g *Generator) NoteFailure(source, detail string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, Failure{Source: source, Detail: detail, At: time.Now()})
	if len(g.failures) > 200 {
		g.failures = g.failures[len(g.failures)-200:]
	}
}

func (g *Generator) takeFailures() []Failure {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.failures
	g.failures = nil
	return out
}

// DailyDigest renders the last 24 hours and writes
// daily-YYYY-MM-DD.md. Returns the written path.
func (g *Generator) DailyDigest(ctx context.Context, now time.Time) (string, error) {
	body, err := g.render(ctx, now, now.Add(-24*time.Hour), "Daily Digest")
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.dir, fmt.Sprintf("daily-%s.md", now.Format("2006-01-02")))
	return path, g.write(path, body)
}

// WeeklyReport renders the last 7 days and writes
// weekly-YYYY-Www.md. Returns the written path.
func (g *Generator) WeeklyReport(ctx context.Context, now time.Time) (string, error) {
	body, err := g.render(ctx, now, now.Add(-7*24*time.Hour), "Weekly Report")
	if err != nil {
		return "", err
	}
	year, week := now.ISOWeek()
	path := filepath.Join(g.dir, fmt.Sprintf("weekly-%d-W%02d.md", year, week))
	return path, g.write(path, body)
}

func (g *Generator) write(path, body string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	g.logger.Info("report written", logging.String("path", path))
	return nil
}

func (g *Generator) render(ctx context.Context, now, since time.Time, title string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - %s\n\n", title, now.Format("2006-01-02 15:04"))

	videoCount, err := g.store.CountVideos(ctx)
	if err != nil {
		return "", err
	}
	monitored, potential, err := g.store.MonitoringStats(ctx)
	if err != nil {
		return "", err
	}
	alertTotal, alertUnread, err := g.store.CountAlerts(ctx, since)
	if err != nil {
		return "", err
	}

	b.WriteString("## Overview\n\n")
	fmt.Fprintf(&b, "- Videos tracked: %d\n", videoCount)
	fmt.Fprintf(&b, "- Under monitoring: %d (%d flagged potential)\n", monitored, potential)
	fmt.Fprintf(&b, "- Alerts since %s: %d (%d unread)\n\n", since.Format("2006-01-02"), alertTotal, alertUnread)

	if err := g.renderTopGrowth(ctx, &b); err != nil {
		return "", err
	}
	if err := g.renderPublications(ctx, &b, since); err != nil {
		return "", err
	}
	if err := g.renderAlerts(ctx, &b); err != nil {
		return "", err
	}
	g.renderFailures(&b)
	return b.String(), nil
}

func (g *Generator) renderTopGrowth(ctx context.Context, b *strings.Builder) error {
	top, err := g.store.TopMonitored(ctx, 10)
	if err != nil {
		return err
	}
	if len(top) == 0 {
		return nil
	}
	b.WriteString("## Top growth\n\n")
	b.WriteString("| Video | Tier | Rate | Score |\n|---|---|---|---|\n")
	for _, m := range top {
		title := m.VideoID
		if v, err := g.store.GetVideo(ctx, m.VideoID); err == nil {
			title = v.Title
		}
		fmt.Fprintf(b, "| %s | %s | %.2f | %.1f |\n", title, m.Tier, m.LastGrowthRate, m.ViralScore)
	}
	b.WriteString("\n")
	return nil
}

func (g *Generator) renderPublications(ctx context.Context, b *strings.Builder, since time.Time) error {
	pubs, err := g.store.RecentPublications(ctx, since, 20)
	if err != nil {
		return err
	}
	if len(pubs) == 0 {
		return nil
	}
	b.WriteString("## New publications\n\n")
	for _, p := range pubs {
		fmt.Fprintf(b, "- %s: %q (%s)\n", p.ChannelID, p.Title, p.DiscoveredAt.Format("01-02 15:04"))
	}
	b.WriteString("\n")
	return nil
}

func (g *Generator) renderAlerts(ctx context.Context, b *strings.Builder) error {
	alerts, err := g.store.ListAlerts(ctx, true, 20)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}
	b.WriteString("## Unread alerts\n\n")
	for _, a := range alerts {
		fmt.Fprintf(b, "- [%s/%s] %s\n", a.Level, a.Kind, a.Message)
	}
	b.WriteString("\n")
	return nil
}

func (g *Generator) renderFailures(b *strings.Builder) {
	failures := g.takeFailures()
	if len(failures) == 0 {
		return
	}
	b.WriteString("## Failures\n\n")
	for _, f := range failures {
		fmt.Fprintf(b, "- %s %s: %s\n", f.At.Format("01-02 15:04"), f.Source, f.Detail)
	}
	b.WriteString("\n")
}
