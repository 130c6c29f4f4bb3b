// Package pipeline sequences the four media-to-notes stages, caches
// per-stage artifacts, and streams progress events to the caller. It
// depends only on the adapter contracts; the subprocess and HTTP
// implementations live under internal/services.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"medianotes/internal/artifact"
	"medianotes/internal/logging"
	"medianotes/internal/services"
	"medianotes/internal/services/llm"
	"medianotes/internal/transcript"
)

// SourceKind distinguishes a remote URL from an already-uploaded file.
type SourceKind string

const (
	SourceURL  SourceKind = "url"
	SourceFile SourceKind = "file"
)

// Job describes one pipeline run.
type Job struct {
	// ID is the canonical job id. For URL sources it may be empty and
	// is resolved during the download stage.
	ID            string
	SourceKind    SourceKind
	Source        string
	SubtitleModel string
	LLMModel      string
}

// Downloader resolves canonical job ids for URLs and fetches media.
type Downloader interface {
	Resolve(ctx context.Context, url string) (string, error)
	Fetch(ctx context.Context, url, dest string) error
}

// Transcriber produces SRT content from a media file.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath string) ([]byte, error)
}

// Summarizer produces a markdown summary of transcript text.
type Summarizer interface {
	Summarize(ctx context.Context, model, text string, mode llm.Mode) (string, error)
}

// Recorder receives job lifecycle notifications. Implementations must
// tolerate repeated calls; failures are logged, never fatal.
type Recorder interface {
	JobStarted(ctx context.Context, jobID, source, sourceKind string) error
	StageChanged(ctx context.Context, jobID, stage string) error
	JobCompleted(ctx context.Context, jobID string, resultJSON []byte) error
	JobFailed(ctx context.Context, jobID, stage, message string) error
}

// Orchestrator runs jobs through the fixed stage order.
type Orchestrator struct {
	store        *artifact.Store
	downloader   Downloader
	transcriber  Transcriber
	summarizer   Summarizer
	recorder     Recorder
	defaultModel string
	logger       *slog.Logger
}

// Options bundles the orchestrator's collaborators.
type Options struct {
	Store        *artifact.Store
	Downloader   Downloader
	Transcriber  Transcriber
	Summarizer   Summarizer
	Recorder     Recorder
	DefaultModel string
	Logger       *slog.Logger
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		store:        opts.Store,
		downloader:   opts.Downloader,
		transcriber:  opts.Transcriber,
		summarizer:   opts.Summarizer,
		recorder:     opts.Recorder,
		defaultModel: opts.DefaultModel,
		logger:       logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run starts a fresh forward-only run and returns its event stream.
// The channel closes after the single terminal event. Cancelling the
// context stops the run; events already produced are still delivered
// if the consumer keeps reading.
func (o *Orchestrator) Run(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("pipeline run panicked", logging.Any("panic", r))
				o.send(ctx, events, Event{
					Stage:   StageError,
					Status:  StatusError,
					Message: "internal pipeline failure",
				})
			}
		}()
		o.run(ctx, job, events)
	}()
	return events
}

type runState struct {
	job      Job
	jobID    string
	segments []transcript.Segment
	brief    string
	detailed string
}

func (o *Orchestrator) run(ctx context.Context, job Job, events chan<- Event) {
	state := &runState{job: job, jobID: strings.TrimSpace(job.ID)}
	runCtx := services.WithRequestID(ctx, newCorrelationID())

	stages := []struct {
		stage Stage
		fn    func(context.Context, *runState) (string, error)
	}{
		{StageDownload, o.runDownload},
		{StageTranscription, o.runTranscription},
		{StageSummaryBrief, o.runBriefSummary},
		{StageSummaryDetailed, o.runDetailedSummary},
	}

	for _, step := range stages {
		if runCtx.Err() != nil {
			return
		}
		stageCtx := services.WithStage(runCtx, string(step.stage))
		if state.jobID != "" {
			stageCtx = services.WithJobID(stageCtx, state.jobID)
		}
		log := logging.WithContext(stageCtx, o.logger)

		if !o.send(runCtx, events, Event{Stage: step.stage, Status: StatusProcessing, Message: processingMessage(step.stage)}) {
			return
		}
		o.recordStage(stageCtx, state.jobID, step.stage)

		message, err := step.fn(stageCtx, state)
		if err != nil {
			detail := services.Detail(err)
			log.Error("stage failed", logging.Error(err))
			o.recordFailure(stageCtx, state.jobID, step.stage, detail)
			o.send(runCtx, events, Event{Stage: step.stage, Status: StatusError, Message: detail})
			return
		}

		log.Info("stage complete")
		success := Event{Stage: step.stage, Status: StatusSuccess, Message: message}
		if step.stage == StageTranscription {
			success.SegmentCount = len(state.segments)
		}
		if !o.send(runCtx, events, success) {
			return
		}
	}

	result := &PipelineResult{
		VideoID:         state.jobID,
		VideoSourceURL:  job.Source,
		Transcript:      state.segments,
		BriefSummary:    state.brief,
		DetailedSummary: state.detailed,
	}
	o.recordCompletion(runCtx, state.jobID, result)
	o.send(runCtx, events, Event{
		Stage:   StageComplete,
		Status:  StatusComplete,
		Message: "Processing complete",
		Result:  result,
	})
}

func (o *Orchestrator) runDownload(ctx context.Context, state *runState) (string, error) {
	switch state.job.SourceKind {
	case SourceURL:
		if state.jobID == "" {
			id, err := o.downloader.Resolve(ctx, state.job.Source)
			if err != nil {
				return "", err
			}
			state.jobID = id
		}
	case SourceFile:
		if state.jobID == "" {
			state.jobID = strings.TrimSpace(state.job.Source)
		}
	default:
		return "", services.Wrap(services.ErrValidation, "download", "source", fmt.Sprintf("unsupported source kind %q", state.job.SourceKind), nil)
	}
	if state.jobID == "" {
		return "", services.Wrap(services.ErrValidation, "download", "source", "empty job id", nil)
	}

	if o.recorder != nil {
		if err := o.recorder.JobStarted(ctx, state.jobID, state.job.Source, string(state.job.SourceKind)); err != nil {
			o.logger.Warn("record job start", logging.Error(err))
		}
	}

	exists, err := o.store.Exists(state.jobID, artifact.KindMedia)
	if err != nil {
		return "", err
	}
	if exists {
		return "Media already available", nil
	}

	if state.job.SourceKind == SourceFile {
		return "", services.Wrap(services.ErrNotFound, "download", "locate upload", fmt.Sprintf("no uploaded media for %s", state.jobID), nil)
	}

	dest, err := o.store.Location(state.jobID, artifact.KindMedia)
	if err != nil {
		return "", err
	}
	if err := o.downloader.Fetch(ctx, state.job.Source, dest); err != nil {
		return "", err
	}
	return "Download complete", nil
}

func (o *Orchestrator) runTranscription(ctx context.Context, state *runState) (string, error) {
	exists, err := o.store.Exists(state.jobID, artifact.KindTranscript)
	if err != nil {
		return "", err
	}

	var content []byte
	if exists {
		content, err = o.store.Read(state.jobID, artifact.KindTranscript)
		if err != nil {
			return "", err
		}
	} else {
		mediaPath, err := o.store.Location(state.jobID, artifact.KindMedia)
		if err != nil {
			return "", err
		}
		content, err = o.transcriber.Transcribe(ctx, mediaPath)
		if err != nil {
			return "", err
		}
		if err := o.store.Write(state.jobID, artifact.KindTranscript, content); err != nil {
			return "", err
		}
	}

	state.segments = transcript.ParseSRT(content)
	if len(state.segments) == 0 {
		return "", services.Wrap(services.ErrTranscription, "transcription", "parse srt", "transcript has no usable segments", nil)
	}
	return "Transcription complete", nil
}

func (o *Orchestrator) runBriefSummary(ctx context.Context, state *runState) (string, error) {
	summary, err := o.summarize(ctx, state, artifact.KindBriefSummary, llm.ModeBrief)
	if err != nil {
		return "", err
	}
	state.brief = summary
	return "Brief summary ready", nil
}

func (o *Orchestrator) runDetailedSummary(ctx context.Context, state *runState) (string, error) {
	summary, err := o.summarize(ctx, state, artifact.KindDetailedSummary, llm.ModeDetailed)
	if err != nil {
		return "", err
	}
	state.detailed = summary
	return "Detailed summary ready", nil
}

func (o *Orchestrator) summarize(ctx context.Context, state *runState, kind artifact.Kind, mode llm.Mode) (string, error) {
	exists, err := o.store.Exists(state.jobID, kind)
	if err != nil {
		return "", err
	}
	if exists {
		content, err := o.store.Read(state.jobID, kind)
		if err != nil {
			return "", err
		}
		return string(content), nil
	}

	model := strings.TrimSpace(state.job.LLMModel)
	if model == "" {
		model = o.defaultModel
	}
	summary, err := o.summarizer.Summarize(ctx, model, transcript.PlainText(state.segments), mode)
	if err != nil {
		return "", err
	}
	if err := o.store.Write(state.jobID, kind, []byte(summary)); err != nil {
		return "", err
	}
	return summary, nil
}

// send delivers an event unless the run context is done. FIFO order is
// the channel's own guarantee; a blocked consumer blocks the run.
func (o *Orchestrator) send(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) recordStage(ctx context.Context, jobID string, stage Stage) {
	if o.recorder == nil || jobID == "" {
		return
	}
	if err := o.recorder.StageChanged(ctx, jobID, string(stage)); err != nil {
		o.logger.Warn("record stage", logging.Error(err))
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, jobID string, stage Stage, message string) {
	if o.recorder == nil || jobID == "" {
		return
	}
	if err := o.recorder.JobFailed(ctx, jobID, string(stage), message); err != nil {
		o.logger.Warn("record failure", logging.Error(err))
	}
}

func (o *Orchestrator) recordCompletion(ctx context.Context, jobID string, result *PipelineResult) {
	if o.recorder == nil || jobID == "" {
		return
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		o.logger.Warn("encode result", logging.Error(err))
		return
	}
	if err := o.recorder.JobCompleted(ctx, jobID, encoded); err != nil {
		o.logger.Warn("record completion", logging.Error(err))
	}
}

func newCorrelationID() string {
	return uuid.NewString()
}

func processingMessage(stage Stage) string {
	switch stage {
	case StageDownload:
		return "Downloading media"
	case StageTranscription:
		return "Transcribing audio"
	case StageSummaryBrief:
		return "Generating brief summary"
	case StageSummaryDetailed:
		return "Generating detailed summary"
	default:
		return string(stage)
	}
}
