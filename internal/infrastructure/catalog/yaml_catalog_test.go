package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLCatalogLoadResources(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
resources:
  - name: " Focus Planner "
    url: /shop/focus-planner/
    category: Productivity
    rating: 4.6
    review_count: 120
  - name: Broken entry
  - name: Habit Cards
    url: /shop/habit-cards/
`), 0o600))

	got, err := NewYAMLCatalog(path).LoadResources(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Focus Planner", got[0].Name)
	assert.InDelta(t, 4.6, got[0].Rating, 0.001)
	assert.Equal(t, 120, got[0].ReviewCount)
	assert.True(t, got[0].HasReviews())
	assert.Equal(t, "Habit Cards", got[1].Name)
	assert.False(t, got[1].HasReviews())
}

func TestYAMLCatalogMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	got, err := NewYAMLCatalog(filepath.Join(t.TempDir(), "absent.yaml")).LoadResources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = NewYAMLCatalog("").LoadResources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestYAMLCatalogRejectsBrokenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "resources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resources: {"), 0o600))

	_, err := NewYAMLCatalog(path).LoadResources(context.Background())
	require.Error(t, err)
}
