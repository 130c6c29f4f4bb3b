package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"medianotes/internal/api"
	"medianotes/internal/artifact"
	"medianotes/internal/jobs"
	"medianotes/internal/pipeline"
	"medianotes/internal/services/llm"
	"medianotes/internal/testsupport"
)

const sampleSRT = `1
00:00:00,000 --> 00:00:02,000
Hello there.

2
00:00:02,500 --> 00:00:04,000
General notes.
`

type fakeDownloader struct {
	fetchCalls atomic.Int32
}

func (f *fakeDownloader) Resolve(ctx context.Context, url string) (string, error) {
	return "resolved-video", nil
}

func (f *fakeDownloader) Fetch(ctx context.Context, url, dest string) error {
	f.fetchCalls.Add(1)
	return os.WriteFile(dest, []byte("media"), 0o644)
}

type fakeTranscriber struct {
	calls atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, mediaPath string) ([]byte, error) {
	f.calls.Add(1)
	return []byte(sampleSRT), nil
}

type fakeSummarizer struct {
	lastModel string
	lastMode  llm.Mode
}

func (f *fakeSummarizer) Summarize(ctx context.Context, model, text string, mode llm.Mode) (string, error) {
	f.lastModel = model
	f.lastMode = mode
	return "# Notes\n\n- generated", nil
}

type testDaemon struct {
	daemon      *Daemon
	server      *httptest.Server
	downloader  *fakeDownloader
	transcriber *fakeTranscriber
	summarizer  *fakeSummarizer
}

func newTestDaemon(t *testing.T) *testDaemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	store, err := artifact.NewStore(cfg.Paths.UploadDir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	jobsStore, err := jobs.Open(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() { _ = jobsStore.Close() })

	td := &testDaemon{
		downloader:  &fakeDownloader{},
		transcriber: &fakeTranscriber{},
		summarizer:  &fakeSummarizer{},
	}
	orch := pipeline.NewOrchestrator(pipeline.Options{
		Store:        store,
		Downloader:   td.downloader,
		Transcriber:  td.transcriber,
		Summarizer:   td.summarizer,
		Recorder:     jobsStore,
		DefaultModel: cfg.LLM.DefaultModel,
	})

	d, err := New(Options{
		Config:       cfg,
		Artifacts:    store,
		Jobs:         jobsStore,
		Orchestrator: orch,
		Downloader:   td.downloader,
		Transcriber:  td.transcriber,
		Summarizer:   td.summarizer,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	td.daemon = d
	td.server = httptest.NewServer(d.api.handler)
	t.Cleanup(td.server.Close)
	return td
}

func (td *testDaemon) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(td.server.URL+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestDownloadEndpoint(t *testing.T) {
	td := newTestDaemon(t)

	resp := td.postJSON(t, "/api/v1/download", api.DownloadRequest{URL: "https://example.com/v/1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	payload := decodeBody[api.DownloadResponse](t, resp)
	if payload.VideoID != "resolved-video" {
		t.Fatalf("video id = %q", payload.VideoID)
	}
	if payload.Message != "Download complete" {
		t.Fatalf("message = %q", payload.Message)
	}

	// A repeat request reuses the cached media.
	resp = td.postJSON(t, "/api/v1/download", api.DownloadRequest{URL: "https://example.com/v/1"})
	payload = decodeBody[api.DownloadResponse](t, resp)
	if payload.Message != "Media already available" {
		t.Fatalf("message = %q", payload.Message)
	}
	if td.downloader.fetchCalls.Load() != 1 {
		t.Fatalf("fetch calls = %d, want 1", td.downloader.fetchCalls.Load())
	}
}

func TestDownloadEndpointRejectsMissingURL(t *testing.T) {
	td := newTestDaemon(t)
	resp := td.postJSON(t, "/api/v1/download", api.DownloadRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTranscribeEndpoint(t *testing.T) {
	td := newTestDaemon(t)
	if err := td.daemon.artifacts.Write("vid-1", artifact.KindMedia, []byte("media")); err != nil {
		t.Fatalf("seed media: %v", err)
	}

	resp := td.postJSON(t, "/api/v1/transcribe", api.TranscribeRequest{VideoID: "vid-1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	payload := decodeBody[api.TranscribeResponse](t, resp)
	if payload.TranscriptID != "vid-1" {
		t.Fatalf("transcript id = %q", payload.TranscriptID)
	}
	if payload.TranscriptText != "Hello there. General notes." {
		t.Fatalf("text = %q", payload.TranscriptText)
	}

	// Transcript is persisted and reused on the next call.
	resp = td.postJSON(t, "/api/v1/transcribe", api.TranscribeRequest{VideoID: "vid-1"})
	_ = decodeBody[api.TranscribeResponse](t, resp)
	if td.transcriber.calls.Load() != 1 {
		t.Fatalf("transcriber calls = %d, want 1", td.transcriber.calls.Load())
	}
}

func TestTranscribeEndpointMissingMedia(t *testing.T) {
	td := newTestDaemon(t)
	resp := td.postJSON(t, "/api/v1/transcribe", api.TranscribeRequest{VideoID: "ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGenerateEndpoint(t *testing.T) {
	td := newTestDaemon(t)
	if err := td.daemon.artifacts.Write("vid-2", artifact.KindMedia, []byte("media")); err != nil {
		t.Fatalf("seed media: %v", err)
	}
	if err := td.daemon.artifacts.Write("vid-2", artifact.KindTranscript, []byte(sampleSRT)); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	resp := td.postJSON(t, "/api/v1/generate", api.GenerateRequest{TranscriptID: "vid-2", ModelType: "gpt-4o"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	payload := decodeBody[api.GenerateResponse](t, resp)
	if payload.MarkdownContent != "# Notes\n\n- generated" {
		t.Fatalf("content = %q", payload.MarkdownContent)
	}
	if payload.ModelUsed != "gpt-4o" {
		t.Fatalf("model = %q", payload.ModelUsed)
	}
	if td.summarizer.lastMode != llm.ModeDetailed {
		t.Fatalf("mode = %q", td.summarizer.lastMode)
	}

	// Source artifacts are cleaned up once the notes are returned.
	td.daemon.janitor.Wait()
	for _, kind := range []artifact.Kind{artifact.KindMedia, artifact.KindTranscript} {
		exists, err := td.daemon.artifacts.Exists("vid-2", kind)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if exists {
			t.Fatalf("artifact %s not cleaned up", kind)
		}
	}
}

func TestGenerateEndpointDefaultsModel(t *testing.T) {
	td := newTestDaemon(t)
	if err := td.daemon.artifacts.Write("vid-3", artifact.KindTranscript, []byte(sampleSRT)); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	resp := td.postJSON(t, "/api/v1/generate", api.GenerateRequest{TranscriptID: "vid-3"})
	payload := decodeBody[api.GenerateResponse](t, resp)
	if payload.ModelUsed != "deepseek-chat" {
		t.Fatalf("model = %q", payload.ModelUsed)
	}
	if td.summarizer.lastModel != "deepseek-chat" {
		t.Fatalf("summarizer model = %q", td.summarizer.lastModel)
	}
}

func TestGenerateEndpointMissingTranscript(t *testing.T) {
	td := newTestDaemon(t)
	resp := td.postJSON(t, "/api/v1/generate", api.GenerateRequest{TranscriptID: "ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUploadEndpoint(t *testing.T) {
	td := newTestDaemon(t)

	resp, err := http.Post(td.server.URL+"/api/v1/upload", "application/octet-stream", strings.NewReader("raw media bytes"))
	if err != nil {
		t.Fatalf("POST upload: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	payload := decodeBody[api.UploadResponse](t, resp)
	if payload.FileID == "" {
		t.Fatal("empty file id")
	}

	content, err := td.daemon.artifacts.Read(payload.FileID, artifact.KindMedia)
	if err != nil {
		t.Fatalf("read upload: %v", err)
	}
	if string(content) != "raw media bytes" {
		t.Fatalf("content = %q", content)
	}
}

func TestStatusEndpoint(t *testing.T) {
	td := newTestDaemon(t)
	if err := td.daemon.jobsStore.JobStarted(context.Background(), "job-1", "https://example.com/v", "url"); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	resp, err := http.Get(td.server.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	payload := decodeBody[api.DaemonStatus](t, resp)
	if payload.PID != os.Getpid() {
		t.Fatalf("pid = %d", payload.PID)
	}
	if payload.ArtifactDir == "" || payload.JobDBPath == "" || payload.LockFilePath == "" {
		t.Fatalf("paths missing: %+v", payload)
	}
	if payload.Jobs.Total != 1 || payload.Jobs.Processing != 1 {
		t.Fatalf("jobs = %+v", payload.Jobs)
	}
	if len(payload.Dependencies) != 4 {
		t.Fatalf("dependencies = %d, want 4", len(payload.Dependencies))
	}
}

func TestJobsEndpoints(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()
	if err := td.daemon.jobsStore.JobStarted(ctx, "job-a", "https://example.com/a", "url"); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := td.daemon.jobsStore.JobFailed(ctx, "job-a", "download", "boom"); err != nil {
		t.Fatalf("fail job: %v", err)
	}
	if err := td.daemon.jobsStore.JobStarted(ctx, "job-b", "upload-1", "file"); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	resp, err := http.Get(td.server.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("GET jobs: %v", err)
	}
	list := decodeBody[api.JobListResponse](t, resp)
	if len(list.Jobs) != 2 {
		t.Fatalf("jobs = %d", len(list.Jobs))
	}

	resp, err = http.Get(td.server.URL + "/api/jobs?status=failed")
	if err != nil {
		t.Fatalf("GET jobs filtered: %v", err)
	}
	list = decodeBody[api.JobListResponse](t, resp)
	if len(list.Jobs) != 1 || list.Jobs[0].JobID != "job-a" {
		t.Fatalf("filtered jobs = %+v", list.Jobs)
	}
	if list.Jobs[0].ErrorMessage != "boom" {
		t.Fatalf("error message = %q", list.Jobs[0].ErrorMessage)
	}

	resp, err = http.Get(td.server.URL + "/api/jobs/job-b")
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	single := decodeBody[api.JobResponse](t, resp)
	if single.Job.SourceKind != "file" {
		t.Fatalf("job = %+v", single.Job)
	}

	resp, err = http.Get(td.server.URL + "/api/jobs/nope")
	if err != nil {
		t.Fatalf("GET missing job: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMethodGuards(t *testing.T) {
	td := newTestDaemon(t)
	for _, path := range []string{"/api/v1/download", "/api/v1/transcribe", "/api/v1/generate", "/api/v1/upload"} {
		resp, err := http.Get(td.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s status = %d, want 405", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
	resp, err := http.Post(td.server.URL+"/api/status", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST status: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d, want 405", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPIClientAgainstServer(t *testing.T) {
	td := newTestDaemon(t)
	client := api.NewClient(td.server.URL)
	ctx := context.Background()

	download, err := client.Download(ctx, "https://example.com/v/1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if download.VideoID != "resolved-video" {
		t.Fatalf("video id = %q", download.VideoID)
	}

	transcribe, err := client.Transcribe(ctx, download.VideoID)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if transcribe.TranscriptText == "" {
		t.Fatal("empty transcript text")
	}

	generate, err := client.Generate(ctx, transcribe.TranscriptID, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if generate.MarkdownContent == "" {
		t.Fatal("empty notes")
	}

	upload, err := client.Upload(ctx, strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if upload.FileID == "" {
		t.Fatal("empty file id")
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.PID != os.Getpid() {
		t.Fatalf("pid = %d", status.PID)
	}

	if _, err := client.Job(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing job")
	} else if !strings.Contains(err.Error(), "404") {
		t.Fatalf("err = %v", err)
	}
}

func TestClientErrorPayload(t *testing.T) {
	td := newTestDaemon(t)
	client := api.NewClient(td.server.URL)
	_, err := client.Transcribe(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("%d", http.StatusNotFound)) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "no media for ghost") {
		t.Fatalf("err = %v", err)
	}
}
