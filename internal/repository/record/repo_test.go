package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

func testRecord(src domain.Source, id string) *domrec.Record {
	return &domrec.Record{
		ID:        id,
		Source:    src,
		Title:     "전사 스킬 트리 정리",
		Author:    "tester",
		Date:      "2024.05.01",
		Views:     12,
		Content:   "본문 내용입니다. 충분히 긴 텍스트.",
		Images:    []domrec.Image{{Filename: "a.png", OriginalURL: "https://x/a.png", LocalPath: "/tmp/a.png", SizeBytes: 6000}},
		URL:       "https://example.com/" + id,
		BoardName: "공략",
		CrawledAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRepo_CreateAndGet(t *testing.T) {
	repo := New(t.TempDir(), nil)
	ctx := context.Background()
	rec := testRecord(domain.SourceLodNexon, "123")

	if err := repo.Create(ctx, rec); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, domain.SourceLodNexon, "123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != rec.Title || got.Views != 12 || len(got.Images) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Images[0].LocalPath != "/tmp/a.png" {
		t.Errorf("image path lost: %+v", got.Images[0])
	}
	if !got.CrawledAt.Equal(rec.CrawledAt) {
		t.Errorf("crawled_at = %v", got.CrawledAt)
	}
}

func TestRepo_CreateNeverOverwrites(t *testing.T) {
	repo := New(t.TempDir(), nil)
	ctx := context.Background()
	rec := testRecord(domain.SourceNaverCafe, "7")
	if err := repo.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	again := testRecord(domain.SourceNaverCafe, "7")
	again.Title = "changed"
	err := repo.Create(ctx, again)
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, _ := repo.Get(ctx, domain.SourceNaverCafe, "7")
	if got.Title == "changed" {
		t.Error("existing record was overwritten")
	}
}

func TestRepo_CreateRejectsUnknownSource(t *testing.T) {
	repo := New(t.TempDir(), nil)
	err := repo.Create(context.Background(), testRecord("other", "1"))
	if !errors.Is(err, domain.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestRepo_GetNotFound(t *testing.T) {
	repo := New(t.TempDir(), nil)
	_, err := repo.Get(context.Background(), domain.SourceLodNexon, "missing")
	if !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepo_MarkBookmarked(t *testing.T) {
	repo := New(t.TempDir(), nil)
	ctx := context.Background()
	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "1"))

	if err := repo.MarkBookmarked(ctx, domain.SourceLodNexon, "1"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	got, _ := repo.Get(ctx, domain.SourceLodNexon, "1")
	if !got.BookmarkCreated {
		t.Error("flag not persisted")
	}
	if got.Content != "본문 내용입니다. 충분히 긴 텍스트." {
		t.Error("content lost on rewrite")
	}

	if err := repo.MarkBookmarked(ctx, domain.SourceLodNexon, "1"); err != nil {
		t.Errorf("second mark should be a no-op: %v", err)
	}
	if err := repo.MarkBookmarked(ctx, domain.SourceLodNexon, "nope"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRepo_ListPending(t *testing.T) {
	dir := t.TempDir()
	repo := New(dir, nil)
	ctx := context.Background()

	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "1"))
	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "2"))
	done := testRecord(domain.SourceLodNexon, "3")
	done.BookmarkCreated = true
	_ = repo.Create(ctx, done)
	excluded := testRecord(domain.SourceNaverCafe, "9")
	excluded.Excluded = true
	_ = repo.Create(ctx, excluded)
	_ = repo.Create(ctx, testRecord(domain.SourceNaverCafe, "10"))

	corrupt := filepath.Join(dir, string(domain.SourceNaverCafe), "bad.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	var ids []string
	for _, r := range pending {
		ids = append(ids, string(r.Source)+"/"+r.ID)
	}
	want := []string{"lod_nexon/1", "lod_nexon/2", "naver_cafe/10"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("pending[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestRepo_Count(t *testing.T) {
	repo := New(t.TempDir(), nil)
	ctx := context.Background()

	n, err := repo.Count(ctx, domain.SourceLodNexon)
	if err != nil || n != 0 {
		t.Fatalf("empty count = %d, %v", n, err)
	}
	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "1"))
	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "2"))
	n, _ = repo.Count(ctx, domain.SourceLodNexon)
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestRepo_GetByPath(t *testing.T) {
	repo := New(t.TempDir(), nil)
	ctx := context.Background()
	_ = repo.Create(ctx, testRecord(domain.SourceLodNexon, "5"))

	got, err := repo.GetByPath(ctx, repo.Path(domain.SourceLodNexon, "5"))
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "5" {
		t.Errorf("id = %s", got.ID)
	}
}
