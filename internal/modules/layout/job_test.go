package layout

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/coffersys/coffer/internal/testing"
	"github.com/coffersys/coffer/internal/workers"
)

func TestRetentionJobPrunesOldRuns(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "runs")
	defer cleanup()

	repo := NewRepository(db, zerolog.Nop())
	svc := NewService(NewCeilingLayoutOptimizer(1, zerolog.Nop()), repo, workers.NewPool(1), zerolog.Nop())

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Save(testRun("expired", now.AddDate(0, 0, -120))))
	require.NoError(t, repo.Save(testRun("kept", now)))

	job := NewRetentionJob(svc, db, 90, zerolog.Nop())
	assert.Equal(t, "run_retention", job.Name())

	require.NoError(t, job.Run())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.GetByID("expired")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRetentionJobDisabled(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "runs")
	defer cleanup()

	repo := NewRepository(db, zerolog.Nop())
	svc := NewService(NewCeilingLayoutOptimizer(1, zerolog.Nop()), repo, workers.NewPool(1), zerolog.Nop())

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Save(testRun("ancient", now.AddDate(0, 0, -1000))))

	job := NewRetentionJob(svc, db, 0, zerolog.Nop())
	require.NoError(t, job.Run())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "retention of zero keeps everything")
}

func TestRetentionJobNoopWhenNothingExpired(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, "runs")
	defer cleanup()

	repo := NewRepository(db, zerolog.Nop())
	svc := NewService(NewCeilingLayoutOptimizer(1, zerolog.Nop()), repo, workers.NewPool(1), zerolog.Nop())

	require.NoError(t, repo.Save(testRun("fresh", time.Now().UTC())))

	job := NewRetentionJob(svc, db, 30, zerolog.Nop())
	require.NoError(t, job.Run())

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
