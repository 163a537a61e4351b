package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ArticleEnricher/internal/domain"
	"ArticleEnricher/internal/ports"
)

// YAMLCatalog loads the external resource catalog from a static YAML file:
//
//	resources:
//	  - name: Focus Planner
//	    url: /shop/focus-planner/
//	    category: Productivity
//	    rating: 4.6
//	    review_count: 120
type YAMLCatalog struct {
	path string
}

var _ ports.ResourceCatalog = (*YAMLCatalog)(nil)

// NewYAMLCatalog reads resources from the YAML file at path on each load.
func NewYAMLCatalog(path string) *YAMLCatalog {
	return &YAMLCatalog{path: path}
}

// LoadResources returns the entries in file order. A missing file or an
// empty path yields an empty catalog.
func (c *YAMLCatalog) LoadResources(_ context.Context) ([]domain.Resource, error) {
	if c.path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read resource catalog: %w", err)
	}

	var file struct {
		Resources []domain.Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse resource catalog %s: %w", c.path, err)
	}

	out := file.Resources[:0]
	for _, r := range file.Resources {
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" || r.URL == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
