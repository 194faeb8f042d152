package layout

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/coffersys/coffer/internal/database"
)

// RetentionJob deletes stored runs older than the retention window and
// compacts the runs database afterwards.
type RetentionJob struct {
	service       *Service
	db            *database.DB
	retentionDays int
	log           zerolog.Logger
}

// NewRetentionJob creates a retention job. A retention of zero or less
// disables pruning.
func NewRetentionJob(service *Service, db *database.DB, retentionDays int, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		service:       service,
		db:            db,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "run_retention").Logger(),
	}
}

// Name identifies the job in scheduler logs.
func (j *RetentionJob) Name() string {
	return "run_retention"
}

// Run prunes runs past the retention window. The database is checkpointed
// and vacuumed only when rows were actually removed.
func (j *RetentionJob) Run() error {
	if j.retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.service.PruneRunsBefore(cutoff)
	if err != nil {
		return err
	}
	if deleted == 0 {
		return nil
	}

	if err := j.db.WALCheckpoint(""); err != nil {
		j.log.Warn().Err(err).Msg("Checkpoint after prune failed")
	}
	if err := j.db.Vacuum(); err != nil {
		j.log.Warn().Err(err).Msg("Vacuum after prune failed")
	}
	return nil
}
