// Package artifact manages the on-disk pipeline artifacts for a job:
// the media file, its transcript, and the generated summaries. Naming
// is deterministic per job id, which is what makes artifact existence
// usable as the stage cache signal. There is no cross-process locking;
// two concurrent runs of the same job id race on the same paths.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"medianotes/internal/logging"
	"medianotes/internal/services"
)

// Kind identifies one artifact class produced by the pipeline.
type Kind int

const (
	KindMedia Kind = iota
	KindTranscript
	KindBriefSummary
	KindDetailedSummary
)

// Kinds lists every artifact class in pipeline order.
func Kinds() []Kind {
	return []Kind{KindMedia, KindTranscript, KindBriefSummary, KindDetailedSummary}
}

// Ext returns the filename extension for the kind, including the dot.
func (k Kind) Ext() string {
	switch k {
	case KindMedia:
		return ".mp4"
	case KindTranscript:
		return ".srt"
	case KindBriefSummary:
		return ".brief.md"
	case KindDetailedSummary:
		return ".detailed.md"
	default:
		return ".bin"
	}
}

func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindTranscript:
		return "transcript"
	case KindBriefSummary:
		return "brief_summary"
	case KindDetailedSummary:
		return "detailed_summary"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Store persists artifacts under a single shared directory with
// deterministic per-job naming.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates the root directory if needed and returns a store
// rooted there.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrValidation, "artifact", "new store", "root directory is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifact", "new store", "create root directory", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{root: root, logger: logging.NewComponentLogger(logger, "artifact")}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Location returns the absolute path an artifact lives at, whether or
// not it exists yet.
func (s *Store) Location(jobID string, kind Kind) (string, error) {
	if err := validateJobID(jobID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, jobID+kind.Ext()), nil
}

// Exists reports whether the artifact is present on disk.
func (s *Store) Exists(jobID string, kind Kind) (bool, error) {
	path, err := s.Location(jobID, kind)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrStorage, "artifact", "stat", kind.String(), err)
	}
	return !info.IsDir(), nil
}

// Read returns the artifact content. A missing artifact is a not-found
// error.
func (s *Store) Read(jobID string, kind Kind) ([]byte, error) {
	path, err := s.Location(jobID, kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "artifact", "read", fmt.Sprintf("no %s artifact for %s", kind, jobID), err)
		}
		return nil, services.Wrap(services.ErrStorage, "artifact", "read", kind.String(), err)
	}
	return data, nil
}

// Write stores the artifact content, replacing any previous version.
func (s *Store) Write(jobID string, kind Kind, content []byte) error {
	path, err := s.Location(jobID, kind)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "artifact", "write", kind.String(), err)
	}
	return nil
}

// WriteFrom streams reader content into the artifact, replacing any
// previous version. Used for uploads so large media never buffers in
// memory.
func (s *Store) WriteFrom(jobID string, kind Kind, r io.Reader) (int64, error) {
	path, err := s.Location(jobID, kind)
	if err != nil {
		return 0, err
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "artifact", "write", kind.String(), err)
	}
	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, services.Wrap(services.ErrStorage, "artifact", "write", kind.String(), err)
	}
	return written, nil
}

// Remove deletes the named artifact kinds for a job. Missing files are
// not an error; the first real failure is returned after attempting
// every kind.
func (s *Store) Remove(jobID string, kinds ...Kind) error {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	var firstErr error
	for _, kind := range kinds {
		path, err := s.Location(jobID, kind)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			if firstErr == nil {
				firstErr = services.Wrap(services.ErrStorage, "artifact", "remove", kind.String(), err)
			}
			continue
		}
	}
	return firstErr
}

func validateJobID(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return services.Wrap(services.ErrValidation, "artifact", "job id", "job id is empty", nil)
	}
	if strings.ContainsAny(jobID, `/\`) || jobID == "." || jobID == ".." || strings.HasPrefix(jobID, "..") {
		return services.Wrap(services.ErrValidation, "artifact", "job id", fmt.Sprintf("job id %q contains path elements", jobID), nil)
	}
	return nil
}
