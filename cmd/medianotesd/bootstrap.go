package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"medianotes/internal/artifact"
	"medianotes/internal/config"
	"medianotes/internal/daemon"
	"medianotes/internal/jobs"
	"medianotes/internal/pipeline"
	"medianotes/internal/services/llm"
	"medianotes/internal/services/whisper"
	"medianotes/internal/services/ytdlp"
)

// buildDaemon wires the stores, stage adapters, and orchestrator from
// configuration.
func buildDaemon(cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := artifact.NewStore(cfg.Paths.UploadDir, logger)
	if err != nil {
		return nil, err
	}
	jobsStore, err := jobs.Open(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
	if err != nil {
		return nil, err
	}

	downloader := newDownloader(cfg)
	transcriber := newTranscriber(cfg)
	summarizer := llm.NewClient(
		credentialResolver(cfg),
		llm.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
	)

	orch := pipeline.NewOrchestrator(pipeline.Options{
		Store:        store,
		Downloader:   downloader,
		Transcriber:  transcriber,
		Summarizer:   summarizer,
		Recorder:     jobsStore,
		DefaultModel: cfg.LLM.DefaultModel,
		Logger:       logger,
	})

	return daemon.New(daemon.Options{
		Config:       cfg,
		Logger:       logger,
		Artifacts:    store,
		Jobs:         jobsStore,
		Orchestrator: orch,
		Downloader:   downloader,
		Transcriber:  transcriber,
		Summarizer:   summarizer,
	})
}

func credentialResolver(cfg *config.Config) llm.Resolver {
	return func(model string) (llm.Credentials, error) {
		provider, err := cfg.ProviderForModel(model)
		if err != nil {
			return llm.Credentials{}, err
		}
		return llm.Credentials{APIKey: provider.APIKey, BaseURL: provider.BaseURL}, nil
	}
}

func newDownloader(cfg *config.Config) pipeline.Downloader {
	return timeoutDownloader{
		inner: ytdlp.NewService(ytdlp.Config{
			Binary: cfg.Download.Binary,
			Format: cfg.Download.Format,
		}),
		timeout: time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
	}
}

func newTranscriber(cfg *config.Config) pipeline.Transcriber {
	return timeoutTranscriber{
		inner: whisper.NewService(whisper.Config{
			Binary:       cfg.Whisper.Binary,
			ModelPath:    cfg.WhisperModelPath(),
			Language:     cfg.Whisper.Language,
			Prompt:       cfg.Whisper.Prompt,
			FFmpegBinary: cfg.FFmpegBinary(),
		}),
		timeout: time.Duration(cfg.Whisper.TimeoutSeconds) * time.Second,
	}
}

// timeoutDownloader bounds each yt-dlp invocation with the configured
// download timeout.
type timeoutDownloader struct {
	inner   pipeline.Downloader
	timeout time.Duration
}

func (d timeoutDownloader) Resolve(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.Resolve(ctx, url)
}

func (d timeoutDownloader) Fetch(ctx context.Context, url, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.inner.Fetch(ctx, url, dest)
}

// timeoutTranscriber bounds the extract-plus-transcribe pass with the
// configured whisper timeout.
type timeoutTranscriber struct {
	inner   pipeline.Transcriber
	timeout time.Duration
}

func (t timeoutTranscriber) Transcribe(ctx context.Context, mediaPath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Transcribe(ctx, mediaPath)
}
