package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/scanner"
)

// Decoder turns a file payload into one or more drafts.
type Decoder func(raw []byte) ([]domain.Document, error)

// FileScanner reads structured drafts (JSON or YAML) from a directory.
type FileScanner struct {
	name           string
	defaultPattern string
	decode         Decoder
}

// NewJSONScanner reads *.json drafts holding one document or an array.
func NewJSONScanner() *FileScanner {
	return &FileScanner{name: "json", defaultPattern: "*.json", decode: decodeJSON}
}

// NewYAMLScanner reads *.yaml drafts holding one document or a sequence.
func NewYAMLScanner() *FileScanner {
	return &FileScanner{name: "yaml", defaultPattern: "*.yaml", decode: decodeYAML}
}

// Name identifies the strategy inside the registry.
func (f *FileScanner) Name() string {
	return f.name
}

// Scan decodes every file matching the request pattern, in name order.
func (f *FileScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Document, error) {
	files, err := matchFiles(req.Dir, req.Pattern, f.defaultPattern)
	if err != nil {
		return nil, err
	}

	var results []domain.Document
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read draft %s: %w", path, err)
		}
		docs, err := f.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode draft %s: %w", path, err)
		}
		for i := range docs {
			fillSlug(&docs[i], path, len(docs) == 1)
		}
		results = append(results, docs...)
	}
	return results, nil
}

func decodeJSON(raw []byte) ([]domain.Document, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []domain.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc domain.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return []domain.Document{doc}, nil
}

func decodeYAML(raw []byte) ([]domain.Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var docs []domain.Document
		if err := node.Decode(&docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc domain.Document
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return []domain.Document{doc}, nil
}

// fillSlug derives a missing slug from the title, or from the file name
// when the file holds a single draft.
func fillSlug(doc *domain.Document, path string, single bool) {
	if doc.Slug != "" {
		return
	}
	if doc.Title != "" {
		doc.Slug = slug.Make(doc.Title)
		return
	}
	if single {
		doc.Slug = slug.Make(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
}

func matchFiles(dir, pattern, fallback string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	if pattern == "" {
		pattern = fallback
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("match %s in %s: %w", pattern, dir, err)
	}
	sort.Strings(files)
	return files, nil
}
