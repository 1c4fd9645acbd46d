package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	domimg "github.com/kailas-cloud/lodrag/internal/domain/image"
	domrec "github.com/kailas-cloud/lodrag/internal/domain/record"
)

type fakeFetcher struct {
	dataURL string
	err     error
	calls   int
}

func (f *fakeFetcher) FetchDataURL(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.dataURL, f.err
}

func newTestService() *Service {
	return New(Config{
		Enabled:      true,
		MaxPerPost:   10,
		MinSizeBytes: 100,
		MaxSizeBytes: 1000,
		Timeout:      5 * time.Second,
	}, nil)
}

func imageServer(t *testing.T, contentType string, body []byte, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://cafe.naver.com/" {
			t.Errorf("referer header not forwarded")
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

var refHeaders = map[string]string{"Referer": "https://cafe.naver.com/"}

func TestDownload_Direct(t *testing.T) {
	srv := imageServer(t, "image/png", bytes.Repeat([]byte{1}, 500), http.StatusOK)
	dir := t.TempDir()

	img, err := newTestService().Download(context.Background(), srv.URL+"/pic?type=w800", dir, "img_001", refHeaders, nil)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if img.Filename != "img_001.png" || img.SizeBytes != 500 {
		t.Errorf("image = %+v", img)
	}
	if _, err := os.Stat(filepath.Join(dir, "img_001.png")); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestDownload_RejectsNonImageAndSize(t *testing.T) {
	cases := []struct {
		name string
		ct   string
		size int
	}{
		{"html", "text/html", 500},
		{"too small", "image/jpeg", 50},
		{"too large", "image/jpeg", 5000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := imageServer(t, tc.ct, bytes.Repeat([]byte{1}, tc.size), http.StatusOK)
			_, err := newTestService().Download(context.Background(), srv.URL+"/a.jpg", t.TempDir(), "img_001", refHeaders, nil)
			if !errors.Is(err, ErrRejected) {
				t.Fatalf("expected ErrRejected, got %v", err)
			}
		})
	}
}

func TestDownload_BrowserFallback(t *testing.T) {
	srv := imageServer(t, "text/plain", []byte("forbidden"), http.StatusForbidden)
	payload := bytes.Repeat([]byte{7}, 300)
	f := &fakeFetcher{dataURL: "data:image/gif;base64," + base64.StdEncoding.EncodeToString(payload)}

	img, err := newTestService().Download(context.Background(), srv.URL+"/noext", t.TempDir(), "img_002", refHeaders, f)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if f.calls != 1 {
		t.Errorf("fallback calls = %d", f.calls)
	}
	if img.Filename != "img_002.gif" || img.SizeBytes != 300 {
		t.Errorf("image = %+v", img)
	}
}

func TestDownload_FallbackAlsoBounded(t *testing.T) {
	srv := imageServer(t, "text/plain", nil, http.StatusForbidden)
	f := &fakeFetcher{dataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{1, 2})}

	_, err := newTestService().Download(context.Background(), srv.URL+"/a.png", t.TempDir(), "img_001", refHeaders, f)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestDownloadAll_NumbersAndSkips(t *testing.T) {
	good := imageServer(t, "image/jpeg", bytes.Repeat([]byte{1}, 400), http.StatusOK)
	bad := imageServer(t, "text/html", []byte("<html>"), http.StatusOK)

	svc := newTestService()
	imgs := svc.DownloadAll(context.Background(), []domimg.Candidate{
		{URL: good.URL + "/one.jpg"},
		{URL: bad.URL + "/two.jpg"},
		{URL: good.URL + "/icon.png"},
		{URL: good.URL + "/three.jpg"},
	}, t.TempDir(), refHeaders, nil)

	if len(imgs) != 2 {
		t.Fatalf("images = %+v", imgs)
	}
	if imgs[0].Filename != "img_001.jpg" || imgs[1].Filename != "img_003.jpg" {
		t.Errorf("filenames = %s, %s", imgs[0].Filename, imgs[1].Filename)
	}
}

func TestDownloadAll_Disabled(t *testing.T) {
	svc := New(Config{Enabled: false}, nil)
	if imgs := svc.DownloadAll(context.Background(), []domimg.Candidate{{URL: "https://x/a.jpg"}}, t.TempDir(), nil, nil); imgs != nil {
		t.Errorf("expected nil, got %v", imgs)
	}
}

func TestDecodeDataURL(t *testing.T) {
	if _, _, err := DecodeDataURL("https://x"); !errors.Is(err, ErrRejected) {
		t.Error("non data url must be rejected")
	}
	if _, _, err := DecodeDataURL("data:text/html;base64,AAAA"); !errors.Is(err, ErrRejected) {
		t.Error("non image mime must be rejected")
	}
	data, mime, err := DecodeDataURL("data:image/png;base64,aGk=")
	if err != nil || string(data) != "hi" || mime != "image/png" {
		t.Errorf("decode = %q %q %v", data, mime, err)
	}
}

func TestToBase64(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "img_001.png")
	p2 := filepath.Join(dir, "img_002")
	_ = os.WriteFile(p1, []byte("png"), 0o600)
	_ = os.WriteFile(p2, []byte("raw"), 0o600)

	got := ToBase64([]domrec.Image{
		{LocalPath: p1, Filename: "img_001.png"},
		{LocalPath: filepath.Join(dir, "missing.jpg")},
		{LocalPath: p2},
		{LocalPath: p1},
	}, 3, nil)

	if len(got) != 2 {
		t.Fatalf("encoded = %+v", got)
	}
	if got[0].MimeType != "image/png" || got[0].Base64 != base64.StdEncoding.EncodeToString([]byte("png")) {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].MimeType != "image/jpeg" || got[1].Filename != "img_002" {
		t.Errorf("second = %+v", got[1])
	}
}
