package session

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"medianotes/internal/pipeline"
)

type scriptedRunner struct {
	events    []pipeline.Event
	job       pipeline.Job
	started   chan struct{}
	cancelled chan struct{}
	block     bool
}

func (r *scriptedRunner) Run(ctx context.Context, job pipeline.Job) <-chan pipeline.Event {
	r.job = job
	ch := make(chan pipeline.Event)
	go func() {
		defer close(ch)
		if r.started != nil {
			close(r.started)
		}
		if r.block {
			<-ctx.Done()
			if r.cancelled != nil {
				close(r.cancelled)
			}
			return
		}
		for _, event := range r.events {
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

type wireEvent struct {
	Stage   string          `json:"stage"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func dial(t *testing.T, runner Runner) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(NewHandler(runner, nil))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event wireEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func completeEvents() []pipeline.Event {
	return []pipeline.Event{
		{Stage: pipeline.StageDownload, Status: pipeline.StatusProcessing, Message: "Downloading media"},
		{Stage: pipeline.StageDownload, Status: pipeline.StatusSuccess, Message: "Download complete"},
		{Stage: pipeline.StageTranscription, Status: pipeline.StatusProcessing, Message: "Transcribing audio"},
		{Stage: pipeline.StageTranscription, Status: pipeline.StatusSuccess, Message: "Transcription complete", SegmentCount: 2},
		{Stage: pipeline.StageComplete, Status: pipeline.StatusComplete, Message: "Processing complete", Result: &pipeline.PipelineResult{VideoID: "vid"}},
	}
}

func TestSessionForwardsEventsInOrder(t *testing.T) {
	runner := &scriptedRunner{events: completeEvents()}
	conn := dial(t, runner)

	command := StartCommand{Type: "url", Value: "https://example.com/v/1", LLMModel: "deepseek-chat"}
	if err := conn.WriteJSON(command); err != nil {
		t.Fatalf("write command: %v", err)
	}

	want := completeEvents()
	for i, expected := range want {
		got := readEvent(t, conn)
		if got.Stage != string(expected.Stage) || got.Status != string(expected.Status) {
			t.Fatalf("event %d = (%s, %s), want (%s, %s)", i, got.Stage, got.Status, expected.Stage, expected.Status)
		}
	}

	// Transcription success carries the segment count in data.
	final := want[len(want)-1]
	if final.Result == nil {
		t.Fatal("scripted complete event lost its result")
	}

	// The server closes the connection after the terminal event.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection close after terminal event")
	}

	if runner.job.SourceKind != pipeline.SourceURL || runner.job.Source != "https://example.com/v/1" {
		t.Fatalf("job = %+v", runner.job)
	}
	if runner.job.LLMModel != "deepseek-chat" {
		t.Fatalf("job model = %q", runner.job.LLMModel)
	}
}

func TestSessionSegmentCountOnWire(t *testing.T) {
	runner := &scriptedRunner{events: completeEvents()}
	conn := dial(t, runner)

	if err := conn.WriteJSON(StartCommand{Type: "url", Value: "https://example.com/v/1"}); err != nil {
		t.Fatalf("write command: %v", err)
	}

	for {
		event := readEvent(t, conn)
		if event.Stage == "transcription" && event.Status == "success" {
			var data struct {
				SegmentCount int `json:"segment_count"`
			}
			if err := json.Unmarshal(event.Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if data.SegmentCount != 2 {
				t.Fatalf("segment count = %d", data.SegmentCount)
			}
			return
		}
		if event.Stage == "complete" || event.Stage == "error" {
			t.Fatal("no transcription success event seen")
		}
	}
}

func TestSessionMalformedCommandKeepsSessionOpen(t *testing.T) {
	runner := &scriptedRunner{events: completeEvents()}
	conn := dial(t, runner)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	event := readEvent(t, conn)
	if event.Stage != "error" || event.Status != "error" {
		t.Fatalf("event = (%s, %s), want (error, error)", event.Stage, event.Status)
	}

	// The session still accepts a valid command afterwards.
	if err := conn.WriteJSON(StartCommand{Type: "url", Value: "https://example.com/v/1"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	event = readEvent(t, conn)
	if event.Stage != "download" || event.Status != "processing" {
		t.Fatalf("event = (%s, %s), want (download, processing)", event.Stage, event.Status)
	}
}

func TestSessionUnsupportedTypeKeepsSessionOpen(t *testing.T) {
	runner := &scriptedRunner{events: completeEvents()}
	conn := dial(t, runner)

	if err := conn.WriteJSON(StartCommand{Type: "torrent", Value: "magnet:x"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	event := readEvent(t, conn)
	if event.Stage != "error" || event.Status != "error" {
		t.Fatalf("event = (%s, %s)", event.Stage, event.Status)
	}
	if !strings.Contains(event.Message, "torrent") {
		t.Fatalf("message = %q", event.Message)
	}

	if err := conn.WriteJSON(StartCommand{Type: "file", Value: "upload-1"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	event = readEvent(t, conn)
	if event.Stage != "download" {
		t.Fatalf("event = %+v", event)
	}
	if runner.job.SourceKind != pipeline.SourceFile || runner.job.Source != "upload-1" {
		t.Fatalf("job = %+v", runner.job)
	}
}

func TestSessionMissingValueRejected(t *testing.T) {
	runner := &scriptedRunner{}
	conn := dial(t, runner)

	if err := conn.WriteJSON(StartCommand{Type: "url"}); err != nil {
		t.Fatalf("write command: %v", err)
	}
	event := readEvent(t, conn)
	if event.Stage != "error" || event.Status != "error" {
		t.Fatalf("event = (%s, %s)", event.Stage, event.Status)
	}
}

func TestSessionDisconnectCancelsRun(t *testing.T) {
	runner := &scriptedRunner{
		block:     true,
		started:   make(chan struct{}),
		cancelled: make(chan struct{}),
	}
	conn := dial(t, runner)

	if err := conn.WriteJSON(StartCommand{Type: "url", Value: "https://example.com/v/1"}); err != nil {
		t.Fatalf("write command: %v", err)
	}

	select {
	case <-runner.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run never started")
	}

	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-runner.cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("run context not cancelled after disconnect")
	}
}
