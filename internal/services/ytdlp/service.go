// Package ytdlp shells out to yt-dlp to resolve canonical job ids for
// URLs and to fetch media into the artifact store.
package ytdlp

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"medianotes/internal/services"
)

// Config captures the yt-dlp invocation settings.
type Config struct {
	Binary string
	Format string
}

// Service wraps the yt-dlp binary. The command runner is injectable for
// tests; the default captures combined output for error reporting.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService creates a yt-dlp service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing). The
// runner returns the command's stdout.
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Resolve asks yt-dlp for the output filename it would use for the URL
// and derives the canonical job id from it. The id is stable across
// resubmissions of the same URL, which is what makes the artifact
// cache effective.
func (s *Service) Resolve(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", services.Wrap(services.ErrValidation, "download", "resolve", "url is empty", nil)
	}
	output, err := s.run(ctx, s.cfg.Binary, "--no-download", "--print", "filename", url)
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "download", "resolve", "probe filename", err)
	}
	jobID := jobIDFromFilename(string(output))
	if jobID == "" {
		return "", services.Wrap(services.ErrDownload, "download", "resolve", fmt.Sprintf("yt-dlp returned no filename for %s", url), nil)
	}
	return jobID, nil
}

// Fetch downloads the URL's media to dest.
func (s *Service) Fetch(ctx context.Context, url, dest string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return services.Wrap(services.ErrValidation, "download", "fetch", "url is empty", nil)
	}
	if dest == "" {
		return services.Wrap(services.ErrValidation, "download", "fetch", "destination path is empty", nil)
	}
	args := []string{"--no-progress"}
	if s.cfg.Format != "" {
		args = append(args, "-f", s.cfg.Format)
	}
	args = append(args, "-o", dest, url)
	if _, err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return services.Wrap(services.ErrDownload, "download", "fetch", url, err)
	}
	return nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}

// jobIDFromFilename strips the extension from a yt-dlp filename and
// sanitizes the remainder into a filesystem-safe job id.
func jobIDFromFilename(filename string) string {
	name := strings.TrimSpace(filename)
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	name = filepath.Base(name)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, name)
	name = strings.Trim(name, ". ")
	return name
}
