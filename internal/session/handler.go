// Package session serves the streaming processing surface over a
// WebSocket. A connection waits for one start command, runs one
// pipeline job, and forwards every event in emission order.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"medianotes/internal/logging"
	"medianotes/internal/pipeline"
)

// Runner starts a pipeline run and returns its event stream.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) <-chan pipeline.Event
}

// StartCommand is the single client-to-server message.
type StartCommand struct {
	Type          string `json:"type"`
	Value         string `json:"value"`
	SubtitleModel string `json:"subtitle_model"`
	LLMModel      string `json:"llm_model"`
}

func (c StartCommand) validate() error {
	kind := pipeline.SourceKind(strings.TrimSpace(c.Type))
	if kind != pipeline.SourceURL && kind != pipeline.SourceFile {
		return fmt.Errorf("unsupported source type %q", c.Type)
	}
	if strings.TrimSpace(c.Value) == "" {
		return fmt.Errorf("missing value for source type %q", c.Type)
	}
	return nil
}

func (c StartCommand) job() pipeline.Job {
	return pipeline.Job{
		SourceKind:    pipeline.SourceKind(strings.TrimSpace(c.Type)),
		Source:        strings.TrimSpace(c.Value),
		SubtitleModel: strings.TrimSpace(c.SubtitleModel),
		LLMModel:      strings.TrimSpace(c.LLMModel),
	}
}

// Handler upgrades HTTP requests and drives one session per connection.
type Handler struct {
	runner   Runner
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler wires a session handler around a runner.
func NewHandler(runner Runner, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "session"),
		upgrader: websocket.Upgrader{
			// The daemon binds loopback; cross-origin browsers are not a
			// supported client.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements the /ws/process endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	h.serve(r.Context(), conn)
}

// serve runs the AwaitingStart, Running, Closed state machine.
func (h *Handler) serve(ctx context.Context, conn *websocket.Conn) {
	for {
		// AwaitingStart: one message at a time until a valid command.
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var command StartCommand
		if err := json.Unmarshal(payload, &command); err != nil {
			h.logger.Warn("malformed start command", logging.Error(err))
			if !h.writeErrorEvent(conn, "invalid start command") {
				return
			}
			continue
		}
		if err := command.validate(); err != nil {
			h.logger.Warn("rejected start command", logging.Error(err))
			if !h.writeErrorEvent(conn, err.Error()) {
				return
			}
			continue
		}

		h.runJob(ctx, conn, command.job())
		return
	}
}

// runJob is the Running state: one orchestrator run forwarded FIFO.
// The read pump exists only to notice the client hanging up.
func (h *Handler) runJob(ctx context.Context, conn *websocket.Conn, job pipeline.Job) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	events := h.runner.Run(runCtx, job)
	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("event write failed", logging.Error(err))
			cancel()
			for range events {
			}
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Handler) writeErrorEvent(conn *websocket.Conn, message string) bool {
	event := pipeline.Event{Stage: pipeline.StageError, Status: pipeline.StatusError, Message: message}
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Warn("error event write failed", logging.Error(err))
		return false
	}
	return true
}
