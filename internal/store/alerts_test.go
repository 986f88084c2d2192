package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"spyglass/internal/store"
	"spyglass/internal/testsupport"
)

func TestAlertLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.InsertAlert(ctx, store.AlertViralGrowth, store.LevelImportant, "video taking off", map[string]any{
		"video_id":    "vid-alert-1",
		"growth_rate": 0.55,
	}); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}
	if err := st.InsertAlert(ctx, store.AlertNewVideo, store.LevelUrgent, "new upload", nil); err != nil {
		t.Fatalf("InsertAlert failed: %v", err)
	}

	alerts, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 unread alerts, got %d", len(alerts))
	}

	var viral *store.Alert
	for i := range alerts {
		if alerts[i].Kind == store.AlertViralGrowth {
			viral = &alerts[i]
		}
	}
	if viral == nil {
		t.Fatal("viral alert missing")
	}
	if viral.Level != store.LevelImportant {
		t.Fatalf("unexpected level %q", viral.Level)
	}
	if rate, ok := viral.Data["growth_rate"].(float64); !ok || rate != 0.55 {
		t.Fatalf("alert data lost: %#v", viral.Data)
	}

	if err := st.MarkAlertRead(ctx, viral.ID); err != nil {
		t.Fatalf("MarkAlertRead failed: %v", err)
	}
	unread, err := st.ListAlerts(ctx, true, 10)
	if err != nil {
		t.Fatalf("ListAlerts failed: %v", err)
	}
	if len(unread) != 1 {
		t.Fatalf("expected 1 unread alert, got %d", len(unread))
	}

	total, unreadCount, err := st.CountAlerts(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountAlerts failed: %v", err)
	}
	if total != 2 || unreadCount != 1 {
		t.Fatalf("expected 2/1, got %d/%d", total, unreadCount)
	}
}

func TestInsertAlertRequiresMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.InsertAlert(context.Background(), store.AlertTopicMatch, store.LevelInfo, "   ", nil)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkAlertReadMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	if err := st.MarkAlertRead(context.Background(), 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
