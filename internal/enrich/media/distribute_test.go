package media

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"ArticleEnricher/internal/markup"
)

func para(words int) string {
	return "<p>" + strings.TrimSpace(strings.Repeat("lorem ", words)) + "</p>"
}

func figure(i int) string {
	return fmt.Sprintf(`<figure class="wide"><img src="img-%d.png" alt="Image %d"/><figcaption>Caption %d</figcaption></figure>`, i, i, i)
}

// layout renders the top-level sequence as tags, e.g. "p p figure".
func layout(t *testing.T, body string) []string {
	t.Helper()
	frag, err := markup.Parse(body)
	require.NoError(t, err)
	var out []string
	for _, b := range frag.Blocks() {
		if b.Type == html.ElementNode {
			out = append(out, b.Data)
		}
	}
	return out
}

func TestDistributePacesMediaByWordCount(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 1; i <= 3; i++ {
		b.WriteString(figure(i))
	}
	for i := 0; i < 10; i++ {
		b.WriteString(para(50))
	}
	body := b.String()

	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, 125, res.Spacing)
	assert.Zero(t, res.Appended)
	require.Len(t, res.Media, 3)

	assert.Equal(t, []string{
		"p", "p", "p", "figure",
		"p", "p", "figure",
		"p", "p", "p", "figure",
		"p", "p",
	}, layout(t, res.Body))

	for i, m := range res.Media {
		assert.Equal(t, 1, strings.Count(res.Body, m.HTML), "fragment %d must appear exactly once", i)
	}
	before, err := markup.CountMedia(body)
	require.NoError(t, err)
	after, err := markup.CountMedia(res.Body)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDistributeNeverPlacesAfterHeading(t *testing.T) {
	t.Parallel()

	body := figure(1) + para(64) + "<h2>Next section</h2>" + para(64)
	res, err := New(WithMinSpacing(10)).Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, 65, res.Spacing)
	assert.Equal(t, []string{"p", "h2", "p", "figure"}, layout(t, res.Body))
}

func TestDistributeAppendsLeftovers(t *testing.T) {
	t.Parallel()

	body := figure(1) + para(20) + figure(2)
	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Appended)
	assert.Equal(t, []string{"p", "figure", "figure"}, layout(t, res.Body))
	assert.Less(t, strings.Index(res.Body, "img-1.png"), strings.Index(res.Body, "img-2.png"))
}

func TestDistributeLeftoversUseFreeGaps(t *testing.T) {
	t.Parallel()

	body := figure(1) + figure(2) + figure(3) + para(3) + "<h2>Later</h2>" + para(2) + para(2)
	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Zero(t, res.Appended)
	assert.Equal(t, []string{"p", "figure", "h2", "p", "figure", "p", "figure"}, layout(t, res.Body))
	assert.Less(t, strings.Index(res.Body, "img-1.png"), strings.Index(res.Body, "img-2.png"))
	assert.Less(t, strings.Index(res.Body, "img-2.png"), strings.Index(res.Body, "img-3.png"))
}

func TestDistributeLeftoversAfterPacedPlacement(t *testing.T) {
	t.Parallel()

	body := figure(1) + figure(2) + figure(3) + para(120) + para(5) + para(5)
	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Spacing)
	assert.Zero(t, res.Appended)
	assert.Equal(t, []string{"p", "figure", "p", "figure", "p", "figure"}, layout(t, res.Body))
}

func TestDistributeWithoutMediaIsNoop(t *testing.T) {
	t.Parallel()

	body := para(10) + "<h2>Title</h2>"
	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, body, res.Body)
	assert.Empty(t, res.Media)
}

func TestDistributeMediaWrappedInParagraph(t *testing.T) {
	t.Parallel()

	body := `<p><a href="/full.png"><img src="thumb.png"/></a></p>` + para(150) + para(150)
	res, err := New().Distribute(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "p", "p"}, layout(t, res.Body))
	assert.Contains(t, res.Body, `</p><p><a href="/full.png"><img src="thumb.png"/></a></p><p>`)
}
