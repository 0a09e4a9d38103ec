package download

import (
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ranobe-tools/ranobe-dl/internal/api"
	"github.com/ranobe-tools/ranobe-dl/internal/models"
)

func testNovel(serverURL string) *models.Novel {
	return &models.Novel{
		ID:      1,
		RusName: "Тестовая новелла",
		SlugURL: "1--test-novel",
		Cover:   &models.Cover{Default: serverURL + "/cover.jpg"},
	}
}

func testChapters() []models.Chapter {
	return []models.Chapter{
		{Volume: "1", Number: "1", Branches: []models.Branch{{Kind: models.BranchWithID, ID: "5"}}},
		{Volume: "1", Number: "2", Branches: []models.Branch{{Kind: models.BranchWithID, ID: "5"}}},
	}
}

// newTestServer serves chapter content and a cover image. failNumber marks
// one chapter number as permanently failing.
func newTestServer(t *testing.T, failNumber string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch {
		case r.URL.Path == "/cover.jpg":
			fmt.Fprint(w, "jpeg-bytes")
		case r.URL.Path == "/img/page1.png":
			fmt.Fprint(w, "png-bytes")
		case r.URL.Path == "/api/manga/1--test-novel/chapter":
			number := r.URL.Query().Get("number")
			if number == failNumber {
				w.WriteHeader(nethttp.StatusBadGateway)
				return
			}
			fmt.Fprintf(w, `{"data": {
				"volume": %q, "number": %q, "name": "Chapter %s",
				"content": {"type": "doc"},
				"attachments": [{"filename": "page1.png", "url": "/img/page1.png"}]
			}}`, r.URL.Query().Get("volume"), number, number)
		default:
			w.WriteHeader(nethttp.StatusNotFound)
			fmt.Fprint(w, `{}`)
		}
	}))
}

func testDownloader(t *testing.T, server *httptest.Server) *Downloader {
	t.Helper()
	client, err := api.NewClient(
		api.WithAPIURL(server.URL+"/api/manga/"),
		api.WithRetryDelays([]time.Duration{time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("api.NewClient() error = %v", err)
	}
	d, err := New(client, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

// TestRunWritesChapterFiles verifies a plain run writes one JSON file per
// selected chapter into a directory named after the novel.
func TestRunWritesChapterFiles(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	d := testDownloader(t, server)
	out := t.TempDir()

	res, err := d.Run(testNovel(server.URL), testChapters(), Options{
		OutputDir: out,
		SiteURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Downloaded != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 downloaded, 0 failed", res)
	}
	if res.Dir != filepath.Join(out, "Тестовая новелла") {
		t.Errorf("Dir = %q, want novel-titled subdirectory", res.Dir)
	}
	for _, name := range []string{"v1_c1 Chapter 1.json", "v1_c2 Chapter 2.json"} {
		if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
			t.Errorf("chapter file %s missing: %v", name, err)
		}
	}
}

// TestRunSkipsFailedChapters verifies a chapter that keeps failing is
// counted and skipped while the rest of the run continues.
func TestRunSkipsFailedChapters(t *testing.T) {
	server := newTestServer(t, "1")
	defer server.Close()

	d := testDownloader(t, server)

	res, err := d.Run(testNovel(server.URL), testChapters(), Options{
		OutputDir: t.TempDir(),
		SiteURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Downloaded != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want 1 downloaded, 1 failed", res)
	}
}

// TestRunGroupsByVolumes verifies the per-volume directory layout.
func TestRunGroupsByVolumes(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	d := testDownloader(t, server)

	res, err := d.Run(testNovel(server.URL), testChapters(), Options{
		OutputDir:      t.TempDir(),
		SiteURL:        server.URL,
		GroupByVolumes: true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "volume_1", "v1_c1 Chapter 1.json")); err != nil {
		t.Errorf("volume-grouped chapter missing: %v", err)
	}
}

// TestRunDownloadsCoverAndImages verifies the cover and attachment side
// downloads.
func TestRunDownloadsCoverAndImages(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	d := testDownloader(t, server)

	res, err := d.Run(testNovel(server.URL), testChapters(), Options{
		OutputDir:      t.TempDir(),
		SiteURL:        server.URL,
		DownloadCover:  true,
		DownloadImages: true,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	cover, err := os.ReadFile(filepath.Join(res.Dir, "cover.jpg"))
	if err != nil {
		t.Fatalf("cover missing: %v", err)
	}
	if string(cover) != "jpeg-bytes" {
		t.Errorf("cover contents = %q, want jpeg-bytes", cover)
	}
	if _, err := os.Stat(filepath.Join(res.Dir, "images", "page1.png")); err != nil {
		t.Errorf("attachment missing: %v", err)
	}
}

// TestRunRejectsEmptySelection verifies an impossible branch filter fails
// up front.
func TestRunRejectsEmptySelection(t *testing.T) {
	server := newTestServer(t, "")
	defer server.Close()

	d := testDownloader(t, server)

	if _, err := d.Run(testNovel(server.URL), testChapters(), Options{
		OutputDir: t.TempDir(),
		BranchID:  "999",
	}); err == nil {
		t.Error("Run() error = nil, want error for empty selection")
	}
}
