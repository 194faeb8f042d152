package layout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/coffersys/coffer/internal/testing"
	"github.com/coffersys/coffer/internal/workers"
)

func newTestService(t *testing.T, seed int64) (*Service, *Repository, func()) {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "runs")
	repo := NewRepository(db, zerolog.Nop())
	optimizer := NewCeilingLayoutOptimizer(seed, zerolog.Nop())
	svc := NewService(optimizer, repo, workers.NewPool(4), zerolog.Nop())
	return svc, repo, cleanup
}

func TestServiceOptimizePersistsRun(t *testing.T) {
	svc, _, cleanup := newTestService(t, 42)
	defer cleanup()

	req := LayoutRequest{CeilingLengthMM: 4800, CeilingWidthMM: 3600}

	run, err := svc.Optimize(req)
	require.NoError(t, err)
	require.NotNil(t, run)

	_, err = uuid.Parse(run.ID)
	assert.NoError(t, err, "run id should be a uuid")
	assert.WithinDuration(t, time.Now().UTC(), run.CreatedAt, 5*time.Second)

	// The stored request carries the applied defaults
	assert.Equal(t, float64(DefaultPerimeterGapMM), run.Request.PerimeterGapMM)
	assert.Equal(t, float64(DefaultPanelGapMM), run.Request.PanelGapMM)
	assert.Equal(t, DefaultTargetAspectRatio, run.Request.TargetAspectRatio)
	assert.Equal(t, float64(DefaultMaxPanelSizeMM), run.Request.MaxPanelSizeMM)

	got, err := svc.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	assert.Equal(t, run.Request, got.Request)
	assert.Equal(t, run.Result, got.Result)
	assert.Equal(t, run.History, got.History)
}

func TestServiceOptimizeInvalidRequest(t *testing.T) {
	svc, _, cleanup := newTestService(t, 1)
	defer cleanup()

	run, err := svc.Optimize(LayoutRequest{CeilingLengthMM: 0, CeilingWidthMM: 3600})
	assert.Nil(t, run)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	count, err := svc.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "failed optimizations must not be stored")
}

func TestServiceOptimizeWithProgressInvokesHook(t *testing.T) {
	svc, _, cleanup := newTestService(t, 7)
	defer cleanup()

	var iterations []int
	hook := func(iteration int, temperature, bestFitness float64) {
		iterations = append(iterations, iteration)
	}

	run, err := svc.OptimizeWithProgress(LayoutRequest{CeilingLengthMM: 4800, CeilingWidthMM: 3600}, hook)
	require.NoError(t, err)

	require.Len(t, iterations, run.Result.OptimizationIterations)
	assert.Equal(t, 1, iterations[0])
	assert.Equal(t, run.Result.OptimizationIterations, iterations[len(iterations)-1])
}

func TestServiceOptimizeBatch(t *testing.T) {
	svc, _, cleanup := newTestService(t, 99)
	defer cleanup()

	reqs := []LayoutRequest{
		{CeilingLengthMM: 4800, CeilingWidthMM: 3600},
		{CeilingLengthMM: 6000, CeilingWidthMM: 2400},
		{CeilingLengthMM: -1, CeilingWidthMM: 3600}, // invalid slot
		{CeilingLengthMM: 3000, CeilingWidthMM: 3000},
	}

	results, err := svc.OptimizeBatch(reqs)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.NotNil(t, results[0].Run)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[1].Run)
	assert.NotNil(t, results[3].Run)

	assert.Nil(t, results[2].Run)
	assert.ErrorIs(t, results[2].Err, ErrInvalidDimensions)

	// Slot order matches request order
	assert.Equal(t, 4800.0, results[0].Run.Request.CeilingLengthMM)
	assert.Equal(t, 6000.0, results[1].Run.Request.CeilingLengthMM)
	assert.Equal(t, 3000.0, results[3].Run.Request.CeilingLengthMM)

	count, err := svc.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, i := range []int{0, 1, 3} {
		stored, err := svc.GetRun(results[i].Run.ID)
		require.NoError(t, err)
		assert.Equal(t, results[i].Run.Result, stored.Result)
	}
}

func TestServiceOptimizeBatchEmpty(t *testing.T) {
	svc, _, cleanup := newTestService(t, 1)
	defer cleanup()

	results, err := svc.OptimizeBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestServiceRecentRunsLimits(t *testing.T) {
	svc, repo, cleanup := newTestService(t, 1)
	defer cleanup()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Save(testRun(id, base.Add(time.Duration(i)*time.Minute))))
	}

	runs, err := svc.RecentRuns(0)
	require.NoError(t, err)
	assert.Len(t, runs, 5, "non-positive limit falls back to the default page size")

	runs, err = svc.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "e", runs[0].ID)
	assert.Equal(t, "d", runs[1].ID)
}

func TestServicePruneRunsBefore(t *testing.T) {
	svc, repo, cleanup := newTestService(t, 1)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Save(testRun("stale-1", now.AddDate(0, 0, -120))))
	require.NoError(t, repo.Save(testRun("stale-2", now.AddDate(0, 0, -91))))
	require.NoError(t, repo.Save(testRun("fresh", now)))

	deleted, err := svc.PruneRunsBefore(now.AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := svc.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
