package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticleEnricher/internal/domain"
)

func TestRecorderWritesTextfile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "enricher.prom")
	rec := NewRecorder(path, nil)

	rec.ObserveDocument("enriched")
	rec.ObserveDocument("enriched")
	rec.ObserveDocument("failed")
	rec.ObserveStage(domain.StageLinks, 3*time.Millisecond)
	rec.ObserveBatch(domain.BatchReport{RunID: "run-1"}, 2*time.Second)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)

	assert.Contains(t, out, `article_enricher_documents_total{outcome="enriched"} 2`)
	assert.Contains(t, out, `article_enricher_documents_total{outcome="failed"} 1`)
	assert.Contains(t, out, `article_enricher_stage_duration_seconds_count{stage="links"} 1`)
	assert.Contains(t, out, "article_enricher_batches_total 1")
	assert.Contains(t, out, "article_enricher_last_batch_duration_seconds 2")
}

func TestRecorderWithoutTextfile(t *testing.T) {
	t.Parallel()

	rec := NewRecorder("", nil)
	rec.ObserveBatch(domain.BatchReport{}, time.Second)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["article_enricher_batches_total"])
}
