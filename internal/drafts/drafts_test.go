package drafts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/voltclass/presenterd/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	slides := []*domain.Slide{
		domain.NewCanvasSlide(0),
		domain.NewQuizSlide(1, "What is a goroutine?", []domain.Option{
			{Text: "A lightweight thread", Correct: true},
			{Text: "A package"},
		}),
	}
	if err := s.Save(ctx, Draft{PresentationID: "pres-1", Title: "Concurrency 101", Slides: slides}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "pres-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Title != "Concurrency 101" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Slides) != 2 {
		t.Fatalf("slides = %d, want 2", len(got.Slides))
	}
	if got.Slides[1].Question == nil || got.Slides[1].Question.Text != "What is a goroutine?" {
		t.Errorf("question lost: %+v", got.Slides[1])
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not recorded")
	}
}

func TestSaveUpserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := Draft{PresentationID: "pres-1", Title: "v1", Slides: []*domain.Slide{domain.NewCanvasSlide(0)}}
	if err := s.Save(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := Draft{PresentationID: "pres-1", Title: "v2", Slides: []*domain.Slide{
		domain.NewCanvasSlide(0), domain.NewCanvasSlide(1),
	}}
	if err := s.Save(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, "pres-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "v2" || len(got.Slides) != 2 {
		t.Errorf("draft = %q with %d slides, want v2 with 2", got.Title, len(got.Slides))
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("list = %d entries, want 1", len(list))
	}
}

func TestLoadMissingDraft(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("want ErrDraftNotFound, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, Draft{PresentationID: "pres-1", Title: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "pres-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "pres-1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Load(ctx, "pres-1"); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("want ErrDraftNotFound after delete, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour).UTC()
	if err := s.Save(ctx, Draft{PresentationID: "old", Title: "old", UpdatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, Draft{PresentationID: "new", Title: "new"}); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].PresentationID != "new" {
		t.Fatalf("list order = %+v", list)
	}
}
