package domain

import (
	"errors"
	"strings"
	"time"
)

// EnrichedMarker is written into every enriched body; its presence means the document must not be processed again.
const EnrichedMarker = "<!-- article-enricher:enriched -->"

var (
	ErrMissingTitle = errors.New("document has no title")
	ErrMissingBody  = errors.New("document has no body")

	// ErrAlreadyEnriched is returned when a marked body is fed back into the stages.
	ErrAlreadyEnriched = errors.New("document is already enriched")
)

// Document is a single article draft flowing through the pipeline.
type Document struct {
	Slug        string    `json:"slug" yaml:"slug"`
	Title       string    `json:"title" yaml:"title"`
	Category    string    `json:"category" yaml:"category"`
	Keywords    []string  `json:"keywords" yaml:"keywords"`
	Body        string    `json:"body" yaml:"body"`
	Excerpt     string    `json:"excerpt,omitempty" yaml:"excerpt"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
}

// Validate rejects documents that cannot enter the pipeline.
func (d Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrMissingTitle
	}
	if strings.TrimSpace(d.Body) == "" {
		return ErrMissingBody
	}
	return nil
}

// IsEnriched reports whether the body already carries the idempotency marker.
func (d Document) IsEnriched() bool {
	return strings.Contains(d.Body, EnrichedMarker)
}

// Section is a top-level heading with its in-document anchor.
type Section struct {
	Title    string `json:"title"`
	Anchor   string `json:"anchor"`
	Position int    `json:"position"`
}

// MediaElement is a relocatable markup fragment such as a figure.
type MediaElement struct {
	HTML string
}

// Recommendation points at a related corpus document.
type Recommendation struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
}

// ResourcePick is the best matching entry of the external resource catalog.
type ResourcePick struct {
	Resource Resource `json:"resource"`
	Score    int      `json:"score"`
}

// EnrichedDocument is the pipeline output handed to the rendering side.
type EnrichedDocument struct {
	Document   Document         `json:"document"`
	Sections   []Section        `json:"sections,omitempty"`
	Outline    string           `json:"outline,omitempty"`
	Related    []Recommendation `json:"related,omitempty"`
	Resource   *ResourcePick    `json:"resource,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	EnrichedAt time.Time        `json:"enriched_at"`
}
