package bookmark

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/lodrag/internal/domain"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

func TestCreate_WritesBookmarkAndFlipsFlag(t *testing.T) {
	recs := &mockRecords{}
	bms := newMemBookmarks()
	llm := &mockCompleter{}
	svc := New(recs, bms, llm, testConfig(), nil)

	b, err := svc.Create(context.Background(), sampleRecord("7832", longContent))
	if err != nil {
		t.Fatal(err)
	}
	if b == nil || b.ID != "lod_nexon_7832" {
		t.Fatalf("bookmark = %+v", b)
	}
	if b.ContentPath != "./data/lod_nexon/7832.json" {
		t.Errorf("content path = %s", b.ContentPath)
	}
	if len(b.Keywords) != 2 || b.CategoryTags[0] != "퀘스트" {
		t.Errorf("keywords/tags = %v %v", b.Keywords, b.CategoryTags)
	}
	if b.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if len(recs.marked) != 1 || recs.marked[0] != "lod_nexon_7832" {
		t.Errorf("marked = %v", recs.marked)
	}

	req := llm.reqs[0]
	if !req.JSONOutput || req.MaxTokens != 500 || len(req.Images) != 0 {
		t.Errorf("text request = %+v", req)
	}
	if !strings.Contains(req.Prompt, "제목: 전사 전직 가이드") || !strings.Contains(req.Prompt, "게시판: 현자의 마을") {
		t.Errorf("prompt missing fields:\n%s", req.Prompt)
	}
}

func TestCreate_DoubleCreateYieldsOneBookmark(t *testing.T) {
	recs := &mockRecords{}
	bms := newMemBookmarks()
	llm := &mockCompleter{}
	svc := New(recs, bms, llm, testConfig(), nil)
	rec := sampleRecord("1", longContent)

	if _, err := svc.Create(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	rec.BookmarkCreated = true
	b, err := svc.Create(context.Background(), rec)
	if err != nil || b != nil {
		t.Fatalf("second create = (%v, %v), want (nil, nil)", b, err)
	}
	if len(bms.items) != 1 {
		t.Errorf("bookmarks = %d", len(bms.items))
	}
	if len(llm.reqs) != 1 {
		t.Errorf("completion calls = %d, want 1", len(llm.reqs))
	}
}

func TestCreate_ShortContentRejectedWithoutCompletion(t *testing.T) {
	llm := &mockCompleter{}
	svc := New(&mockRecords{}, newMemBookmarks(), llm, testConfig(), nil)

	_, err := svc.Create(context.Background(), sampleRecord("2", "  열다섯 글자의 짧은 본문입니다  "))
	if !errors.Is(err, domain.ErrContentTooShort) {
		t.Fatalf("expected ErrContentTooShort, got %v", err)
	}
	if len(llm.reqs) != 0 {
		t.Errorf("completion must not be called, got %d calls", len(llm.reqs))
	}
}

func TestCreate_HealsStaleFlag(t *testing.T) {
	recs := &mockRecords{}
	llm := &mockCompleter{}
	svc := New(recs, newMemBookmarks("lod_nexon_3"), llm, testConfig(), nil)

	b, err := svc.Create(context.Background(), sampleRecord("3", longContent))
	if err != nil || b != nil {
		t.Fatalf("got (%v, %v)", b, err)
	}
	if len(recs.marked) != 1 {
		t.Errorf("stale flag not healed: %v", recs.marked)
	}
	if len(llm.reqs) != 0 {
		t.Error("existing bookmark must not trigger completion")
	}
}

func TestCreate_VisionFailureFallsBackToText(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "img_001.png")
	if err := os.WriteFile(imgPath, []byte("png-bytes"), 0o600); err != nil {
		t.Fatal(err)
	}
	rec := sampleRecord("4", longContent)
	rec.Images = []domrec.Image{{Filename: "img_001.png", LocalPath: imgPath}}

	llm := &mockCompleter{fn: func(req domain.CompletionRequest) (string, error) {
		if len(req.Images) > 0 {
			return "", domain.ErrCompletionProviderError
		}
		return validJSON, nil
	}}
	svc := New(&mockRecords{}, newMemBookmarks(), llm, testConfig(), nil)

	b, err := svc.Create(context.Background(), rec)
	if err != nil || b == nil {
		t.Fatalf("got (%v, %v)", b, err)
	}
	if len(llm.reqs) != 2 {
		t.Fatalf("calls = %d, want 2", len(llm.reqs))
	}
	vision, text := llm.reqs[0], llm.reqs[1]
	if len(vision.Images) != 1 || vision.ImageDetail != domain.ImageDetailLow || vision.MaxTokens != 800 {
		t.Errorf("vision request = %+v", vision)
	}
	if vision.Images[0].MimeType != "image/png" {
		t.Errorf("mime = %s", vision.Images[0].MimeType)
	}
	if !strings.Contains(vision.Prompt, "image_descriptions") || strings.Contains(text.Prompt, "image_descriptions") {
		t.Error("prompt variants mixed up")
	}
}

func TestCreate_VisionIncludesImageDescriptions(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "img_001.jpg")
	_ = os.WriteFile(imgPath, []byte("jpg"), 0o600)
	rec := sampleRecord("5", longContent)
	rec.Images = []domrec.Image{{LocalPath: imgPath}}

	llm := &mockCompleter{fn: func(_ domain.CompletionRequest) (string, error) {
		return "```json\n{\"summary\":\"요약\",\"keywords\":[\"a\"],\"category_tags\":[\"보스\"],\"image_descriptions\":[\"스킬트리\"]}\n```", nil
	}}
	svc := New(&mockRecords{}, newMemBookmarks(), llm, testConfig(), nil)

	b, err := svc.Create(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(b.ImageDescriptions) != 1 || b.ImageDescriptions[0] != "스킬트리" {
		t.Errorf("image descriptions = %v", b.ImageDescriptions)
	}
	if len(b.CategoryTags) != 1 || b.CategoryTags[0] != "기타" {
		t.Errorf("unknown tag not mapped: %v", b.CategoryTags)
	}
}

func TestCreate_MalformedOutputWritesNothing(t *testing.T) {
	recs := &mockRecords{}
	bms := newMemBookmarks()
	llm := &mockCompleter{fn: func(_ domain.CompletionRequest) (string, error) { return "not json", nil }}
	svc := New(recs, bms, llm, testConfig(), nil)

	_, err := svc.Create(context.Background(), sampleRecord("6", longContent))
	if !errors.Is(err, domain.ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
	if len(bms.items) != 0 || len(recs.marked) != 0 {
		t.Error("nothing may be written on malformed output")
	}
}

func TestCreate_FlagFailureKeepsBookmark(t *testing.T) {
	recs := &mockRecords{markErr: errors.New("disk full")}
	bms := newMemBookmarks()
	svc := New(recs, bms, &mockCompleter{}, testConfig(), nil)

	b, err := svc.Create(context.Background(), sampleRecord("7", longContent))
	if err != nil || b == nil {
		t.Fatalf("got (%v, %v)", b, err)
	}
	if len(bms.items) != 1 {
		t.Error("bookmark must stay written")
	}
}

func TestCreateAll_Stats(t *testing.T) {
	recs := &mockRecords{pending: []*domrec.Record{
		sampleRecord("10", longContent),
		sampleRecord("11", "짧음"),
		sampleRecord("12", longContent),
		sampleRecord("13", longContent),
	}}
	bms := newMemBookmarks("lod_nexon_13")
	llm := &mockCompleter{fn: func(req domain.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "12") && strings.Contains(req.Prompt, "FAIL") {
			return "", errors.New("unreachable")
		}
		return validJSON, nil
	}}
	recs.pending[2].Title = "FAIL 12"
	svc := New(recs, bms, llm, testConfig(), nil)

	st, err := svc.CreateAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Created: 1, Skipped: 2, Failed: 1, Total: 4}
	if st != want {
		t.Errorf("stats = %+v, want %+v", st, want)
	}
}

func TestCreateAll_ListError(t *testing.T) {
	svc := New(&mockRecords{listErr: errors.New("io")}, newMemBookmarks(), &mockCompleter{}, testConfig(), nil)
	if _, err := svc.CreateAll(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("가나다라", 2); got != "가나" {
		t.Errorf("got %q", got)
	}
	if got := truncateRunes("abc", 0); got != "abc" {
		t.Errorf("got %q", got)
	}
}
