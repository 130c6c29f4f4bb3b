package artifact

import (
	"log/slog"
	"sync"

	"medianotes/internal/logging"
)

// Janitor runs deferred artifact cleanup off the request path. Each
// scheduled job is removed asynchronously with the outcome logged;
// Wait drains in-flight work for shutdown and tests.
type Janitor struct {
	store  *Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewJanitor returns a janitor deleting from the given store.
func NewJanitor(store *Store, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Janitor{store: store, logger: logging.NewComponentLogger(logger, "janitor")}
}

// Schedule queues removal of the named artifact kinds for a job and
// returns immediately. Cleanup is best-effort; failures are logged,
// never surfaced to the caller.
func (j *Janitor) Schedule(jobID string, kinds ...Kind) {
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		if err := j.store.Remove(jobID, kinds...); err != nil {
			j.logger.Warn("artifact cleanup failed",
				logging.String(logging.FieldJobID, jobID),
				logging.Error(err))
			return
		}
		j.logger.Info("artifacts cleaned up",
			logging.String(logging.FieldJobID, jobID),
			logging.Int("kinds", len(kinds)))
	}()
}

// Wait blocks until all scheduled cleanups have finished.
func (j *Janitor) Wait() {
	j.wg.Wait()
}
