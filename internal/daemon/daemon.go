// Package daemon hosts the media-to-notes service: single-instance
// locking, the HTTP facade, and the streaming WebSocket surface.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"medianotes/internal/artifact"
	"medianotes/internal/config"
	"medianotes/internal/deps"
	"medianotes/internal/jobs"
	"medianotes/internal/logging"
	"medianotes/internal/pipeline"
)

// Daemon coordinates the processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	artifacts    *artifact.Store
	jobsStore    *jobs.Store
	janitor      *artifact.Janitor
	orchestrator *pipeline.Orchestrator
	downloader   pipeline.Downloader
	transcriber  pipeline.Transcriber
	summarizer   pipeline.Summarizer

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Options bundles the daemon's collaborators.
type Options struct {
	Config       *config.Config
	Logger       *slog.Logger
	Artifacts    *artifact.Store
	Jobs         *jobs.Store
	Janitor      *artifact.Janitor
	Orchestrator *pipeline.Orchestrator
	Downloader   pipeline.Downloader
	Transcriber  pipeline.Transcriber
	Summarizer   pipeline.Summarizer
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	ArtifactDir  string
	JobDBPath    string
	LockFilePath string
	Jobs         jobs.Summary
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(opts Options) (*Daemon, error) {
	if opts.Config == nil || opts.Artifacts == nil || opts.Jobs == nil || opts.Orchestrator == nil {
		return nil, errors.New("daemon requires config, stores, and orchestrator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	janitor := opts.Janitor
	if janitor == nil {
		janitor = artifact.NewJanitor(opts.Artifacts, logger)
	}

	lockPath := filepath.Join(opts.Config.Paths.LogDir, "medianotesd.lock")
	d := &Daemon{
		cfg:          opts.Config,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		artifacts:    opts.Artifacts,
		jobsStore:    opts.Jobs,
		janitor:      janitor,
		orchestrator: opts.Orchestrator,
		downloader:   opts.Downloader,
		transcriber:  opts.Transcriber,
		summarizer:   opts.Summarizer,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}
	d.api = newAPIServer(d, logger)
	return d, nil
}

// Start acquires the daemon lock and brings up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another medianotes daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down, drains the janitor, and releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.janitor.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.jobsStore != nil {
		return d.jobsStore.Close()
	}
	return nil
}

// Addr returns the API server's listen address, empty until started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.jobsStore.Stats(ctx)
	if err != nil {
		d.logger.Warn("job stats unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		ArtifactDir:  d.artifacts.Root(),
		JobDBPath:    d.jobsStore.Path(),
		LockFilePath: d.lockPath,
		Jobs:         summary,
		Dependencies: deps.Check(d.cfg),
	}
}
