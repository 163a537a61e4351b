package toc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnricher/internal/domain"
)

func TestBuildAnchorsAndOutline(t *testing.T) {
	t.Parallel()

	body := `<p>Intro.</p><h2>Getting Started</h2><p>One.</p><h2>Getting   Started!</h2><p>Two.</p><h2>Wrap Up</h2>`

	res, err := New().Build(body)
	require.NoError(t, err)

	assert.Equal(t, []domain.Section{
		{Title: "Getting Started", Anchor: "getting-started", Position: 0},
		{Title: "Getting Started!", Anchor: "getting-started-2", Position: 1},
		{Title: "Wrap Up", Anchor: "wrap-up", Position: 2},
	}, res.Sections)

	outline := `<nav class="toc"><ol>` +
		`<li><a href="#getting-started">Getting Started</a></li>` +
		`<li><a href="#getting-started-2">Getting Started!</a></li>` +
		`<li><a href="#wrap-up">Wrap Up</a></li>` +
		`</ol></nav>`
	assert.Equal(t, outline, res.Outline)
	assert.Equal(t, `<p>Intro.</p>`+outline+
		`<h2 id="getting-started">Getting Started</h2><p>One.</p>`+
		`<h2 id="getting-started-2">Getting   Started!</h2><p>Two.</p>`+
		`<h2 id="wrap-up">Wrap Up</h2>`, res.Body)
}

func TestBuildReusesExistingIDs(t *testing.T) {
	t.Parallel()

	body := `<h2 id="custom">First</h2><p id="second">x</p><h2 id="second">Second</h2><h2>!!!</h2>`

	res, err := New().Build(body)
	require.NoError(t, err)

	anchors := make([]string, 0, len(res.Sections))
	for _, s := range res.Sections {
		anchors = append(anchors, s.Anchor)
	}
	assert.Equal(t, []string{"custom", "second-2", "section"}, anchors)
}

func TestBuildSkipsFewHeadings(t *testing.T) {
	t.Parallel()

	body := `<h2>Only One</h2><p>text</p><section><h2>Nested</h2></section>`
	res, err := New().Build(body)
	require.NoError(t, err)
	assert.Equal(t, body, res.Body)
	assert.Empty(t, res.Sections)
	assert.Empty(t, res.Outline)
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	first, err := New().Build(`<h2>A title</h2><p>x</p><h2>B title</h2>`)
	require.NoError(t, err)

	second, err := New().Build(first.Body)
	require.NoError(t, err)
	assert.Equal(t, first.Body, second.Body)
	assert.Empty(t, second.Sections)
}
