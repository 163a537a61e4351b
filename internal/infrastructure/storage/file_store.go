package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/enrich/linking"
	"ArticleEnricher/internal/ports"
)

// FileStore writes one <slug>.json file per enriched document into a
// directory and scans that directory for the corpus snapshot.
type FileStore struct {
	dir        string
	urlPattern string
}

var (
	_ ports.DocumentStore = (*FileStore)(nil)
	_ ports.CorpusSource  = (*FileStore)(nil)
)

// NewFileStore stores documents under dir and resolves corpus URLs with urlPattern.
func NewFileStore(dir, urlPattern string) *FileStore {
	return &FileStore{dir: dir, urlPattern: urlPattern}
}

// AlreadyEnriched reports the slugs whose existing output carries the marker.
func (s *FileStore) AlreadyEnriched(ctx context.Context, slugs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, ok, err := s.read(s.pathFor(slug))
		if err != nil {
			return nil, err
		}
		if ok && doc.Document.IsEnriched() {
			result[slug] = true
		}
	}
	return result, nil
}

// SaveEnriched writes the document atomically (temp file + rename).
func (s *FileStore) SaveEnriched(_ context.Context, doc domain.EnrichedDocument) error {
	if doc.Document.Slug == "" {
		return errors.New("save enriched: empty slug")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.Document.Slug, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+doc.Document.Slug+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", doc.Document.Slug, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", doc.Document.Slug, err)
	}
	if err := os.Rename(tmp.Name(), s.pathFor(doc.Document.Slug)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("publish %s: %w", doc.Document.Slug, err)
	}
	return nil
}

// LoadCorpus scans previously enriched output. Files without the marker are
// ignored; a missing directory is an empty corpus.
func (s *FileStore) LoadCorpus(ctx context.Context) (domain.Corpus, error) {
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("scan output dir: %w", err)
	}

	var entries []domain.CorpusEntry
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return domain.Corpus{}, err
		}
		doc, ok, err := s.read(file)
		if err != nil {
			return domain.Corpus{}, err
		}
		if !ok || !doc.Document.IsEnriched() {
			continue
		}
		published := doc.Document.PublishedAt
		if published.IsZero() {
			published = doc.EnrichedAt
		}
		entries = append(entries, domain.CorpusEntry{
			Slug:        doc.Document.Slug,
			Title:       doc.Document.Title,
			Category:    doc.Document.Category,
			Keywords:    doc.Document.Keywords,
			URL:         linking.DocumentURL(s.urlPattern, doc.Document.Slug),
			PublishedAt: published,
		})
	}
	return domain.NewCorpus(entries), nil
}

func (s *FileStore) pathFor(slug string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(slug, string(filepath.Separator), "-")+".json")
}

func (s *FileStore) read(path string) (domain.EnrichedDocument, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EnrichedDocument{}, false, nil
	}
	if err != nil {
		return domain.EnrichedDocument{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	var doc domain.EnrichedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.EnrichedDocument{}, false, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, true, nil
}
