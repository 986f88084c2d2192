package store_test

import (
	"context"
	"testing"

	"spyglass/internal/store"
	"spyglass/internal/testsupport"
)

func TestUpsertCommentsDedupe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedVideo(t, st, "vid-comm-1", "Commented", 100)

	first := []store.Comment{
		{CommentID: "c1", VideoID: "vid-comm-1", Text: "great video", LikeCount: 5},
		{CommentID: "c2", VideoID: "vid-comm-1", Text: "pinned note", LikeCount: 1, IsPinned: true},
		{VideoID: "vid-comm-1", Text: "no id, skipped"},
	}
	saved, err := st.UpsertComments(ctx, first)
	if err != nil {
		t.Fatalf("UpsertComments failed: %v", err)
	}
	if saved != 2 {
		t.Fatalf("expected 2 saved, got %d", saved)
	}

	// Re-capture with refreshed counters.
	again := []store.Comment{
		{CommentID: "c1", VideoID: "vid-comm-1", Text: "great video (edited)", LikeCount: 25},
	}
	if _, err := st.UpsertComments(ctx, again); err != nil {
		t.Fatalf("UpsertComments failed: %v", err)
	}

	comments, err := st.CommentsForVideo(ctx, "vid-comm-1", 10)
	if err != nil {
		t.Fatalf("CommentsForVideo failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	// Pinned sorts first regardless of likes.
	if !comments[0].IsPinned {
		t.Fatalf("expected pinned comment first, got %#v", comments[0])
	}
	if comments[1].LikeCount != 25 || comments[1].Text != "great video (edited)" {
		t.Fatalf("counters not refreshed: %#v", comments[1])
	}
}
