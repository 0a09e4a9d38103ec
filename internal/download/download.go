// Package download drives a novel download: chapter selection, content
// fetching through the rate-limited API client, and writing the results to
// disk.
package download

import (
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ranobe-tools/ranobe-dl/internal/api"
	"github.com/ranobe-tools/ranobe-dl/internal/branches"
	"github.com/ranobe-tools/ranobe-dl/internal/http"
	"github.com/ranobe-tools/ranobe-dl/internal/models"
	"github.com/ranobe-tools/ranobe-dl/internal/progress"
	"github.com/ranobe-tools/ranobe-dl/internal/util/sanitize"
)

// fileTimeout bounds a single cover or image transfer. These go to the CDN,
// not the API, so the API request timeout does not apply.
const fileTimeout = 5 * time.Minute

// Options controls one download run.
type Options struct {
	// BranchID selects translations: "default" for automatic selection,
	// "" for every available translation, or an explicit branch id.
	BranchID string

	// OutputDir is the base directory; the novel gets a subdirectory.
	OutputDir string

	// SiteURL resolves relative attachment URLs.
	SiteURL string

	GroupByVolumes bool
	DownloadCover  bool
	DownloadImages bool
	AddTranslator  bool
}

// Result summarizes a download run.
type Result struct {
	Dir        string
	Downloaded int
	Failed     int
}

// Downloader fetches chapter content and writes it to disk.
type Downloader struct {
	client     *api.Client
	fileClient *nethttp.Client
	reporter   progress.Reporter
}

// New creates a Downloader. The reporter may be nil for quiet runs.
func New(client *api.Client, reporter progress.Reporter) (*Downloader, error) {
	fileClient, err := http.NewClient(fileTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to configure file client: %w", err)
	}
	if reporter == nil {
		reporter = progress.NewNoOpProgress()
	}
	return &Downloader{
		client:     client,
		fileClient: fileClient,
		reporter:   reporter,
	}, nil
}

// chapterFile is the on-disk shape of one downloaded chapter.
type chapterFile struct {
	Volume     string          `json:"volume"`
	Number     string          `json:"number"`
	Name       string          `json:"name,omitempty"`
	Translator string          `json:"translator,omitempty"`
	Content    json.RawMessage `json:"content"`
}

// Run downloads the selected chapters of a novel. A cancellation aborts the
// run; an individual chapter failure is logged and skipped.
func (d *Downloader) Run(novel *models.Novel, chapters []models.Chapter, opts Options) (*Result, error) {
	selections := branches.Filter(chapters, opts.BranchID)
	if len(selections) == 0 {
		return nil, fmt.Errorf("no chapters match branch %q", opts.BranchID)
	}

	fallback := fmt.Sprintf("novel-%d", novel.ID)
	dir := filepath.Join(opts.OutputDir, sanitize.FileName(novel.Title(), fallback))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	res := &Result{Dir: dir}

	if opts.DownloadCover {
		if err := d.downloadCover(novel, dir, opts.SiteURL); err != nil {
			log.Warn().Msgf("Cover download failed: %v", err)
		}
	}

	d.reporter.Start(int64(len(selections)), "Downloading chapters")
	defer d.reporter.Finish()

	slug := novel.SlugRef()
	for i, sel := range selections {
		upcoming := len(selections) - i - 1
		key := sel.Chapter.Key()

		content, err := d.client.ChapterContent(slug, key.Volume, key.Number, sel.BranchID(), upcoming)
		if err != nil {
			if api.IsCancelled(err) {
				return res, err
			}
			log.Warn().Msgf("Chapter %s skipped: %v", key, err)
			res.Failed++
			d.reporter.Increment()
			continue
		}

		if err := d.writeChapter(dir, sel, content, opts); err != nil {
			log.Warn().Msgf("Chapter %s skipped: %v", key, err)
			res.Failed++
			d.reporter.Increment()
			continue
		}

		if opts.DownloadImages {
			d.downloadAttachments(dir, content, opts.SiteURL)
		}

		res.Downloaded++
		d.reporter.Increment()
	}
	return res, nil
}

// writeChapter persists one chapter as a JSON document.
func (d *Downloader) writeChapter(dir string, sel branches.Selection, content *models.ChapterContent, opts Options) error {
	key := sel.Chapter.Key()

	cf := chapterFile{
		Volume:  key.Volume,
		Number:  key.Number,
		Name:    content.Name,
		Content: content.Content,
	}
	if cf.Name == "" {
		cf.Name = sel.Chapter.Name
	}
	if opts.AddTranslator && sel.Branch != nil {
		cf.Translator = strings.Join(sel.Branch.TeamNames(), ", ")
	}

	if opts.GroupByVolumes {
		dir = filepath.Join(dir, "volume_"+sanitize.FileName(key.Volume, "0"))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create volume directory: %w", err)
		}
	}

	base := fmt.Sprintf("v%s_c%s", key.Volume, key.Number)
	if cf.Name != "" {
		base += " " + cf.Name
	}
	path := filepath.Join(dir, sanitize.FileName(base, key.String())+".json")

	data, err := json.MarshalIndent(&cf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chapter: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write chapter: %w", err)
	}
	return nil
}

// downloadCover fetches the novel cover next to the chapters.
func (d *Downloader) downloadCover(novel *models.Novel, dir, siteURL string) error {
	if novel.Cover == nil || novel.Cover.Default == "" {
		return nil
	}
	src := resolveURL(novel.Cover.Default, siteURL)

	ext := filepath.Ext(src)
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return d.fetchFile(src, filepath.Join(dir, "cover"+ext), true)
}

// downloadAttachments fetches the images embedded in a chapter. Failures
// are logged; the chapter text is already saved.
func (d *Downloader) downloadAttachments(dir string, content *models.ChapterContent, siteURL string) {
	if len(content.Attachments) == 0 {
		return
	}
	imgDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		log.Warn().Msgf("Cannot create image directory: %v", err)
		return
	}
	for i := range content.Attachments {
		att := &content.Attachments[i]
		if att.URL == "" {
			continue
		}
		name := sanitize.FileName(att.FileName(), filepath.Base(att.URL))
		dest := filepath.Join(imgDir, name)
		if _, err := os.Stat(dest); err == nil {
			continue // already downloaded by an earlier chapter
		}
		if err := d.fetchFile(resolveURL(att.URL, siteURL), dest, false); err != nil {
			log.Warn().Msgf("Image %s skipped: %v", name, err)
		}
	}
}

// fetchFile streams a URL to disk. withProgress shows a byte progress bar
// for transfers worth watching (the cover).
func (d *Downloader) fetchFile(src, dest string, withProgress bool) error {
	resp, err := d.fileClient.Get(src)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != nethttp.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, src)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	var body io.Reader = resp.Body
	if withProgress && resp.ContentLength > 0 {
		bar := progress.NewCLIByteProgress()
		bar.Start(resp.ContentLength, filepath.Base(dest))
		defer bar.Finish()
		body = progress.NewProgressReader(resp.Body, bar)
	}

	if _, err := io.Copy(out, body); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	return nil
}

// resolveURL makes attachment and cover URLs absolute.
func resolveURL(u, siteURL string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return strings.TrimSuffix(siteURL, "/") + "/" + strings.TrimPrefix(u, "/")
}
