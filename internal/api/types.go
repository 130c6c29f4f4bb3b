// Package api defines the wire types shared by the daemon's HTTP
// surface and the CLI client.
package api

import "time"

// DownloadRequest asks the daemon to fetch media for a URL.
type DownloadRequest struct {
	URL string `json:"url"`
}

// DownloadResponse reports the canonical job id for the media.
type DownloadResponse struct {
	Message string `json:"message"`
	VideoID string `json:"video_id"`
}

// TranscribeRequest asks for a transcript of already-fetched media.
type TranscribeRequest struct {
	VideoID string `json:"video_id"`
}

// TranscribeResponse carries the transcript text.
type TranscribeResponse struct {
	Message        string `json:"message"`
	TranscriptID   string `json:"transcript_id"`
	TranscriptText string `json:"transcript_text"`
}

// GenerateRequest asks for markdown notes from a stored transcript.
type GenerateRequest struct {
	TranscriptID string `json:"transcript_id"`
	ModelType    string `json:"model_type"`
}

// GenerateResponse carries the generated notes.
type GenerateResponse struct {
	Message         string `json:"message"`
	MarkdownContent string `json:"markdown_content"`
	ModelUsed       string `json:"model_used"`
}

// UploadResponse names the stored media artifact.
type UploadResponse struct {
	FileID string `json:"file_id"`
}

// JobSummary counts jobs grouped by lifecycle state.
type JobSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// DependencyStatus reports one external tool's availability.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus is the /api/status payload.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	ArtifactDir  string             `json:"artifact_dir"`
	JobDBPath    string             `json:"job_db_path"`
	LockFilePath string             `json:"lock_file_path"`
	Jobs         JobSummary         `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// JobView is one job registry record on the wire.
type JobView struct {
	JobID        string    `json:"job_id"`
	Source       string    `json:"source"`
	SourceKind   string    `json:"source_kind"`
	Status       string    `json:"status"`
	Stage        string    `json:"stage,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// JobListResponse is the /api/jobs payload.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse is the /api/jobs/{id} payload.
type JobResponse struct {
	Job JobView `json:"job"`
}

// ErrorResponse is the error payload shape for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
