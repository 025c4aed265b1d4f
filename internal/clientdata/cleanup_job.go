package clientdata

import (
	"fmt"

	"github.com/rs/zerolog"
)

// CleanupJob deletes expired rows from the cache tables (nse, coingecko,
// yahoo, exchangerate). Entries are kept past their TTL so clients can fall
// back to stale data, so the job only reclaims space; correctness never
// depends on it running.
type CleanupJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewCleanupJob creates the cache cleanup job.
func NewCleanupJob(repo *Repository, log zerolog.Logger) *CleanupJob {
	return &CleanupJob{
		repo: repo,
		log:  log.With().Str("job", "cache_cleanup").Logger(),
	}
}

// Run sweeps every cache table and reports per-table deletion counts.
func (j *CleanupJob) Run() error {
	results, err := j.repo.DeleteAllExpired()
	if err != nil {
		return fmt.Errorf("cache cleanup: %w", err)
	}

	var total int64
	for _, deleted := range results {
		total += deleted
	}
	if total == 0 {
		j.log.Debug().Msg("No expired cache entries")
		return nil
	}

	evt := j.log.Info()
	for table, deleted := range results {
		if deleted > 0 {
			evt = evt.Int64(table, deleted)
		}
	}
	evt.Int64("total", total).Msg("Removed expired cache entries")

	return nil
}

// Name identifies the job to the scheduler.
func (j *CleanupJob) Name() string {
	return "cache_cleanup"
}
