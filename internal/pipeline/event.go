package pipeline

import (
	"encoding/json"

	"medianotes/internal/transcript"
)

// Stage names one step of the pipeline, plus the two terminal
// pseudo-stages used on the wire.
type Stage string

const (
	StageDownload        Stage = "download"
	StageTranscription   Stage = "transcription"
	StageSummaryBrief    Stage = "summary_brief"
	StageSummaryDetailed Stage = "summary_detailed"
	StageComplete        Stage = "complete"
	StageError           Stage = "error"
)

// WorkStages lists the processing stages in execution order.
func WorkStages() []Stage {
	return []Stage{StageDownload, StageTranscription, StageSummaryBrief, StageSummaryDetailed}
}

// Status is the progress state carried by an event.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusComplete   Status = "complete"
)

// PipelineResult is the aggregate returned inside the terminal
// complete event.
type PipelineResult struct {
	VideoID         string               `json:"video_id"`
	VideoSourceURL  string               `json:"video_source_url"`
	Transcript      []transcript.Segment `json:"transcript"`
	BriefSummary    string               `json:"brief_summary"`
	DetailedSummary string               `json:"detailed_summary"`
}

// Event is one progress or result notification from a run. The
// payload fields are a closed union: SegmentCount is set only on
// transcription success, Result only on the terminal complete event.
type Event struct {
	Stage        Stage
	Status       Status
	Message      string
	SegmentCount int
	Result       *PipelineResult
}

// Terminal reports whether the event ends a run's stream.
func (e Event) Terminal() bool {
	return e.Status == StatusError || e.Status == StatusComplete
}

// Valid reports whether the (stage, status) pair and payload are part
// of the event union.
func (e Event) Valid() bool {
	switch e.Stage {
	case StageDownload, StageTranscription, StageSummaryBrief, StageSummaryDetailed:
		if e.Status != StatusProcessing && e.Status != StatusSuccess && e.Status != StatusError {
			return false
		}
	case StageComplete:
		if e.Status != StatusComplete {
			return false
		}
	case StageError:
		if e.Status != StatusError {
			return false
		}
	default:
		return false
	}
	if e.SegmentCount != 0 && (e.Stage != StageTranscription || e.Status != StatusSuccess) {
		return false
	}
	if e.Result != nil && e.Stage != StageComplete {
		return false
	}
	if e.Stage == StageComplete && e.Result == nil {
		return false
	}
	return true
}

type wireEvent struct {
	Stage   Stage  `json:"stage"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// MarshalJSON renders the wire shape {stage, status, message, data?}.
func (e Event) MarshalJSON() ([]byte, error) {
	wire := wireEvent{Stage: e.Stage, Status: e.Status, Message: e.Message}
	switch {
	case e.Stage == StageTranscription && e.Status == StatusSuccess && e.SegmentCount > 0:
		wire.Data = map[string]int{"segment_count": e.SegmentCount}
	case e.Result != nil:
		wire.Data = e.Result
	}
	return json.Marshal(wire)
}
