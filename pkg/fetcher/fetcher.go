package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/mediassist/internal/models"
	"golang.org/x/time/rate"
)

type FetcherConfig struct {
	RateLimit      float64 // requests per second
	Timeout        time.Duration
	MaxFiles       int
	MaxFileSize    int64
	IgnorePatterns []string
	OnProgress     func(url string)
}

// Fetcher downloads PDFs by URL. A link to an HTML page is followed one
// level deep to every PDF it links to on the same host.
type Fetcher struct {
	config  FetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config FetcherConfig) *Fetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.MaxFiles == 0 {
		config.MaxFiles = 20
	}
	if config.MaxFileSize == 0 {
		config.MaxFileSize = 64 << 20
	}

	return &Fetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Fetcher {
	return NewWithConfig(FetcherConfig{})
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]models.Upload, error) {
	base, err := url.Parse(rawURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	resp, err := f.get(ctx, base.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if isPDFResponse(resp) {
		upload, err := f.readUpload(resp)
		if err != nil {
			return nil, err
		}
		return []models.Upload{upload}, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", base, err)
	}

	links := f.pdfLinks(doc, resp.Request.URL)
	if len(links) == 0 {
		return nil, fmt.Errorf("no pdf links found at %s", base)
	}

	uploads := make([]models.Upload, 0, len(links))
	for _, link := range links {
		upload, err := f.fetchPDF(ctx, link)
		if err != nil {
			return uploads, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, nil
}

func (f *Fetcher) fetchPDF(ctx context.Context, link string) (models.Upload, error) {
	resp, err := f.get(ctx, link)
	if err != nil {
		return models.Upload{}, err
	}
	defer resp.Body.Close()

	return f.readUpload(resp)
}

func (f *Fetcher) get(ctx context.Context, link string) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if f.config.OnProgress != nil {
		f.config.OnProgress(link)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, link)
	}
	return resp, nil
}

func (f *Fetcher) readUpload(resp *http.Response) (models.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxFileSize+1))
	if err != nil {
		return models.Upload{}, fmt.Errorf("failed to read %s: %w", resp.Request.URL, err)
	}
	if int64(len(data)) > f.config.MaxFileSize {
		return models.Upload{}, fmt.Errorf("%s exceeds %d bytes", resp.Request.URL, f.config.MaxFileSize)
	}

	return models.Upload{
		Name: fileName(resp.Request.URL),
		Data: data,
	}, nil
}

func (f *Fetcher) pdfLinks(doc *goquery.Document, page *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		if len(links) >= f.config.MaxFiles {
			return
		}
		href, _ := selection.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := page.ResolveReference(ref)
		abs.Fragment = ""

		if !f.shouldFetch(abs, page) || seen[abs.String()] {
			return
		}
		seen[abs.String()] = true
		links = append(links, abs.String())
	})

	return links
}

func (f *Fetcher) shouldFetch(link, page *url.URL) bool {
	if link.Host != page.Host {
		return false
	}
	if !strings.EqualFold(path.Ext(link.Path), ".pdf") {
		return false
	}
	for _, pattern := range f.config.IgnorePatterns {
		if strings.Contains(link.String(), pattern) {
			return false
		}
	}
	return true
}

func isPDFResponse(resp *http.Response) bool {
	if mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mediaType == "application/pdf" {
		return true
	}
	return strings.EqualFold(path.Ext(resp.Request.URL.Path), ".pdf")
}

// fileName always carries a .pdf extension so the session accepts it.
func fileName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = u.Host
	}
	if !strings.EqualFold(path.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
