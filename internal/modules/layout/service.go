package layout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/coffersys/coffer/internal/modules/optimization"
	"github.com/coffersys/coffer/internal/workers"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

// Service coordinates layout optimization, run persistence, and batch
// execution.
type Service struct {
	optimizer *CeilingLayoutOptimizer
	repo      *Repository
	pool      *workers.Pool
	log       zerolog.Logger
}

// NewService creates a layout service.
func NewService(optimizer *CeilingLayoutOptimizer, repo *Repository, pool *workers.Pool, log zerolog.Logger) *Service {
	return &Service{
		optimizer: optimizer,
		repo:      repo,
		pool:      pool,
		log:       log.With().Str("service", "layout").Logger(),
	}
}

// Optimize runs a single layout optimization and persists the result.
func (s *Service) Optimize(req LayoutRequest) (*Run, error) {
	return s.OptimizeWithProgress(req, nil)
}

// OptimizeWithProgress runs a single layout optimization, invoking hook once
// per generation, and persists the result. The run executes on the worker
// pool like every other optimization.
func (s *Service) OptimizeWithProgress(req LayoutRequest, hook optimization.IterationHook) (*Run, error) {
	var run *Run
	errs := s.pool.Run([]workers.Job{func() error {
		var err error
		run, err = s.runOptimization(req, hook)
		return err
	}})
	if errs[0] != nil {
		return nil, errs[0]
	}

	if err := s.repo.Save(run); err != nil {
		return nil, err
	}

	s.logRun(run)
	return run, nil
}

// BatchResult pairs a batch slot with its outcome. Exactly one of Run and
// Err is set.
type BatchResult struct {
	Run *Run
	Err error
}

// OptimizeBatch runs several layout optimizations in parallel on the worker
// pool. Results are returned in request order; failed slots carry their own
// error. Successful runs are persisted atomically, so a returned error means
// nothing from this batch was stored.
func (s *Service) OptimizeBatch(reqs []LayoutRequest) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return []BatchResult{}, nil
	}

	results := make([]BatchResult, len(reqs))
	jobs := make([]workers.Job, len(reqs))
	for i, req := range reqs {
		i, req := i, req
		jobs[i] = func() error {
			run, err := s.runOptimization(req, nil)
			results[i] = BatchResult{Run: run, Err: err}
			return err
		}
	}

	errs := s.pool.Run(jobs)

	var succeeded []*Run
	failed := 0
	for i := range results {
		if errs[i] == nil {
			succeeded = append(succeeded, results[i].Run)
		} else {
			failed++
		}
	}

	if err := s.repo.SaveBatch(succeeded); err != nil {
		return nil, fmt.Errorf("failed to persist batch: %w", err)
	}

	s.log.Info().
		Int("requested", len(reqs)).
		Int("succeeded", len(succeeded)).
		Int("failed", failed).
		Msg("Batch optimization finished")
	return results, nil
}

// GetRun loads a stored run by id.
func (s *Service) GetRun(id string) (*Run, error) {
	return s.repo.GetByID(id)
}

// RecentRuns lists stored runs, newest first. Non-positive limits fall back
// to the default page size; oversized limits are capped.
func (s *Service) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	if limit > maxRunListLimit {
		limit = maxRunListLimit
	}
	return s.repo.ListRecent(limit)
}

// CountRuns returns the number of stored runs.
func (s *Service) CountRuns() (int64, error) {
	return s.repo.Count()
}

// PruneRunsBefore deletes runs created before the cutoff and reports how many
// were removed.
func (s *Service) PruneRunsBefore(cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Pruned old runs")
	}
	return deleted, nil
}

func (s *Service) runOptimization(req LayoutRequest, hook optimization.IterationHook) (*Run, error) {
	req = req.withDefaults()

	outcome, err := s.optimizer.OptimizeLayoutWithHook(req, hook)
	if err != nil {
		return nil, err
	}

	return &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Request:   req,
		Result:    outcome.Result,
		History:   outcome.History,
	}, nil
}

func (s *Service) logRun(run *Run) {
	improvement := 0.0
	if len(run.History) > 0 {
		improvement = run.History[0] - floats.Min(run.History)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Int("panels_x", run.Result.PanelsX).
		Int("panels_y", run.Result.PanelsY).
		Float64("fitness", run.Result.Fitness).
		Float64("fitness_improvement", improvement).
		Int("iterations", run.Result.OptimizationIterations).
		Float64("execution_ms", run.Result.ExecutionTimeMS).
		Msg("Layout optimized")
}
