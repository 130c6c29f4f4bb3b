package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"medianotes/internal/api"
	"medianotes/internal/artifact"
	"medianotes/internal/jobs"
	"medianotes/internal/logging"
	"medianotes/internal/services"
	"medianotes/internal/services/llm"
	"medianotes/internal/session"
	"medianotes/internal/transcript"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(d.cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/download", srv.handleDownload)
	mux.HandleFunc("/api/v1/transcribe", srv.handleTranscribe)
	mux.HandleFunc("/api/v1/generate", srv.handleGenerate)
	mux.HandleFunc("/api/v1/upload", srv.handleUpload)
	mux.Handle("/ws/process", session.NewHandler(d.orchestrator, logger))
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)
	srv.handler = mux

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sourceURL := strings.TrimSpace(req.URL)
	if sourceURL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	ctx := r.Context()
	jobID, err := s.daemon.downloader.Resolve(ctx, sourceURL)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	exists, err := s.daemon.artifacts.Exists(jobID, artifact.KindMedia)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	message := "Media already available"
	if !exists {
		dest, err := s.daemon.artifacts.Location(jobID, artifact.KindMedia)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if err := s.daemon.downloader.Fetch(ctx, sourceURL, dest); err != nil {
			s.writeServiceError(w, err)
			return
		}
		message = "Download complete"
	}
	s.writeJSON(w, http.StatusOK, api.DownloadResponse{Message: message, VideoID: jobID})
}

func (s *apiServer) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.TranscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		s.writeError(w, http.StatusBadRequest, "video_id is required")
		return
	}

	ctx := r.Context()
	content, err := s.transcriptFor(ctx, videoID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	text := transcript.PlainText(transcript.ParseSRT(content))
	s.writeJSON(w, http.StatusOK, api.TranscribeResponse{
		Message:        "Transcription complete",
		TranscriptID:   videoID,
		TranscriptText: text,
	})
}

// transcriptFor returns the transcript artifact, producing it on a
// cache miss. The media artifact must already exist.
func (s *apiServer) transcriptFor(ctx context.Context, videoID string) ([]byte, error) {
	exists, err := s.daemon.artifacts.Exists(videoID, artifact.KindTranscript)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.daemon.artifacts.Read(videoID, artifact.KindTranscript)
	}

	mediaExists, err := s.daemon.artifacts.Exists(videoID, artifact.KindMedia)
	if err != nil {
		return nil, err
	}
	if !mediaExists {
		return nil, services.Wrap(services.ErrNotFound, "transcription", "locate media", fmt.Sprintf("no media for %s", videoID), nil)
	}

	mediaPath, err := s.daemon.artifacts.Location(videoID, artifact.KindMedia)
	if err != nil {
		return nil, err
	}
	content, err := s.daemon.transcriber.Transcribe(ctx, mediaPath)
	if err != nil {
		return nil, err
	}
	if err := s.daemon.artifacts.Write(videoID, artifact.KindTranscript, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *apiServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	transcriptID := strings.TrimSpace(req.TranscriptID)
	if transcriptID == "" {
		s.writeError(w, http.StatusBadRequest, "transcript_id is required")
		return
	}

	ctx := r.Context()
	content, err := s.daemon.artifacts.Read(transcriptID, artifact.KindTranscript)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	text := transcript.PlainText(transcript.ParseSRT(content))

	model := strings.TrimSpace(req.ModelType)
	if model == "" {
		model = s.daemon.cfg.LLM.DefaultModel
	}
	notes, err := s.daemon.summarizer.Summarize(ctx, model, text, llm.ModeDetailed)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.GenerateResponse{
		Message:         "Notes generated",
		MarkdownContent: notes,
		ModelUsed:       model,
	})

	// The facade is one-shot: once notes are out the door the source
	// artifacts are disposable.
	s.daemon.janitor.Schedule(transcriptID, artifact.KindMedia, artifact.KindTranscript)
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fileID := uuid.NewString()
	size, err := s.daemon.artifacts.WriteFrom(fileID, artifact.KindMedia, r.Body)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.logger.Info("media uploaded", logging.String("file_id", fileID), logging.Int64("bytes", size))
	s.writeJSON(w, http.StatusOK, api.UploadResponse{FileID: fileID})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	dependencies := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		ArtifactDir:  status.ArtifactDir,
		JobDBPath:    status.JobDBPath,
		LockFilePath: status.LockFilePath,
		Jobs: api.JobSummary{
			Total:      status.Jobs.Total,
			Pending:    status.Jobs.Pending,
			Processing: status.Jobs.Processing,
			Completed:  status.Jobs.Completed,
			Failed:     status.Jobs.Failed,
		},
		Dependencies: dependencies,
	})
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		statuses = append(statuses, jobs.Status(trimmed))
	}

	records, err := s.daemon.jobsStore.List(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]api.JobView, 0, len(records))
	for _, record := range records {
		views = append(views, jobView(record))
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: views})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	record, err := s.daemon.jobsStore.GetByJobID(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{Job: jobView(record)})
}

func jobView(record *jobs.Job) api.JobView {
	return api.JobView{
		JobID:        record.JobID,
		Source:       record.Source,
		SourceKind:   record.SourceKind,
		Status:       string(record.Status),
		Stage:        record.Stage,
		ErrorMessage: record.ErrorMessage,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

// writeServiceError maps the error taxonomy onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	}
	s.writeError(w, status, services.Detail(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
