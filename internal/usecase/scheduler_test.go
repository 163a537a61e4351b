package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (m *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	m.job = job
	return nil
}

func (m *manualDriver) Stop(context.Context) error {
	m.stopped = true
	return nil
}

func TestSchedulerRunsBatchOnTrigger(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	driver := &manualDriver{}
	pipeline := NewPipeline(PipelineDeps{
		Documents: staticDocuments{exampleDocument()},
		Corpus:    exampleCorpus(),
		Store:     store,
	})

	sched := NewScheduler(driver, pipeline, nil)
	require.NoError(t, sched.Start(context.Background()))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	assert.Contains(t, store.docs, "tiny-habits")

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerWithoutDriverIsNoop(t *testing.T) {
	t.Parallel()

	sched := NewScheduler(nil, nil, nil)
	require.NoError(t, sched.Start(context.Background()))
	require.NoError(t, sched.Stop(context.Background()))
}
