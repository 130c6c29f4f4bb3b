// Package deps reports the availability of the external tools the
// pipeline shells out to.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"medianotes/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the external binaries for the configured pipeline.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "yt-dlp", Command: cfg.Download.Binary, Description: "Fetches remote media"},
		{Name: "ffmpeg", Command: cfg.FFmpegBinary(), Description: "Extracts audio for transcription"},
		{Name: "whisper", Command: cfg.Whisper.Binary, Description: "Transcribes audio to SRT"},
	}
}

// Check evaluates every configured requirement plus the whisper model
// file.
func Check(cfg *config.Config) []Status {
	results := CheckBinaries(Requirements(cfg))
	return append(results, CheckModel(cfg.WhisperModelPath()))
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckModel reports whether the whisper model file exists.
func CheckModel(path string) Status {
	status := Status{
		Name:        "whisper model",
		Command:     path,
		Description: "Speech recognition model weights",
	}
	if strings.TrimSpace(path) == "" {
		status.Detail = "model path not configured"
		return status
	}
	info, err := os.Stat(path)
	if err != nil {
		status.Detail = fmt.Sprintf("model file %q not found", path)
		return status
	}
	if info.IsDir() {
		status.Detail = fmt.Sprintf("model path %q is a directory", path)
		return status
	}
	status.Available = true
	return status
}
