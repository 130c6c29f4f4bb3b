// Package whisper produces SRT transcripts from media files by
// extracting a mono 16kHz WAV with ffmpeg and running it through a
// whisper.cpp CLI binary.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"medianotes/internal/services"
)

// Config captures the transcription invocation settings.
type Config struct {
	Binary       string
	ModelPath    string
	Language     string
	Prompt       string
	FFmpegBinary string
}

// Service wraps the ffmpeg and whisper.cpp binaries. The command
// runner is injectable for tests.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "whisper-cli"
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Transcribe converts the media file at mediaPath into SRT content.
// A missing media file is a not-found error so callers can distinguish
// it from transcription failures. Intermediate files are removed.
func (s *Service) Transcribe(ctx context.Context, mediaPath string) ([]byte, error) {
	if strings.TrimSpace(mediaPath) == "" {
		return nil, services.Wrap(services.ErrValidation, "transcription", "transcribe", "media path is empty", nil)
	}
	if _, err := os.Stat(mediaPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "transcription", "locate media", mediaPath, err)
		}
		return nil, services.Wrap(services.ErrStorage, "transcription", "stat media", mediaPath, err)
	}

	workDir, err := os.MkdirTemp("", "medianotes-whisper-")
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "transcription", "work dir", "create temp dir", err)
	}
	defer os.RemoveAll(workDir)

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	wavPath := filepath.Join(workDir, base+".wav")
	if err := s.extractAudio(ctx, mediaPath, wavPath); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "extract audio", mediaPath, err)
	}

	outBase := filepath.Join(workDir, base)
	if err := s.runWhisper(ctx, wavPath, outBase); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "whisper", mediaPath, err)
	}

	srtPath := outBase + ".srt"
	content, err := os.ReadFile(srtPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcription", "read srt", srtPath, err)
	}
	return content, nil
}

// extractAudio produces a mono 16kHz PCM WAV, the input format
// whisper.cpp expects.
func (s *Service) extractAudio(ctx context.Context, source, dest string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	return s.run(ctx, s.cfg.FFmpegBinary, args...)
}

func (s *Service) runWhisper(ctx context.Context, wavPath, outBase string) error {
	args := []string{
		"-m", s.cfg.ModelPath,
		"-f", wavPath,
		"-osrt",
		"-of", outBase,
	}
	if lang := strings.TrimSpace(s.cfg.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if prompt := strings.TrimSpace(s.cfg.Prompt); prompt != "" {
		args = append(args, "--prompt", prompt)
	}
	return s.run(ctx, s.cfg.Binary, args...)
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
