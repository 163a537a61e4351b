package parser

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/scanner"
)

var publishedLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// HTMLScanner reads drafts rendered as standalone HTML pages, either from
// disk or from preview URLs of the upstream generator.
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client for URL sources; nil selects a 20s timeout client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan parses every matching file and every URL of the request.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Document, error) {
	files, err := matchFiles(req.Dir, req.Pattern, "*.html")
	if err != nil {
		return nil, err
	}

	results := make([]domain.Document, 0, len(files)+len(req.URLs))
	for _, file := range files {
		doc, err := h.readFile(file)
		if err != nil {
			return nil, err
		}
		draft, err := parseDraft(doc, strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		if err != nil {
			return nil, fmt.Errorf("draft %s: %w", file, err)
		}
		results = append(results, draft)
	}

	for _, pageURL := range req.URLs {
		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", req.SourceName, err)
		}
		draft, err := parseDraft(doc, path.Base(strings.TrimSuffix(pageURL, "/")))
		if err != nil {
			return nil, fmt.Errorf("source %s: draft %s: %w", req.SourceName, pageURL, err)
		}
		results = append(results, draft)
	}

	return results, nil
}

func (h *HTMLScanner) readFile(file string) (*goquery.Document, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open draft %s: %w", file, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse draft %s: %w", file, err)
	}
	return doc, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ArticleEnricher/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("draft %s returned %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

// parseDraft maps page metadata and the article element onto a Document.
// The first h1 is the title and is removed from the body.
func parseDraft(doc *goquery.Document, fallbackSlug string) (domain.Document, error) {
	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	container := doc.Find("article").First()
	if container.Length() == 0 {
		container = doc.Find("body").First()
	}

	heading := container.Find("h1").First()
	title := strings.TrimSpace(heading.Text())
	if title == "" {
		title = meta(`meta[property="og:title"]`)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	heading.Remove()

	body, err := container.Html()
	if err != nil {
		return domain.Document{}, fmt.Errorf("render body: %w", err)
	}

	var keywords []string
	for _, k := range strings.Split(meta(`meta[name="keywords"]`), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}

	draftSlug := meta(`meta[name="slug"]`)
	if draftSlug == "" {
		draftSlug = slug.Make(fallbackSlug)
	}

	return domain.Document{
		Slug:        draftSlug,
		Title:       title,
		Category:    meta(`meta[name="category"]`, `meta[property="article:section"]`),
		Keywords:    keywords,
		Body:        strings.TrimSpace(body),
		Excerpt:     meta(`meta[name="description"]`, `meta[property="og:description"]`),
		PublishedAt: parsePublished(meta(`meta[property="article:published_time"]`)),
	}, nil
}

func parsePublished(value string) time.Time {
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
