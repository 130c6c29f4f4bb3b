package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDownload      = errors.New("download error")
	ErrTranscription = errors.New("transcription error")
	ErrSummarization = errors.New("summarization error")
	ErrNotFound      = errors.New("not found")
	ErrStorage       = errors.New("storage error")
	ErrProtocol      = errors.New("protocol error")
	ErrValidation    = errors.New("validation error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Detail returns the human-readable portion of a wrapped service error,
// stripped of the sentinel prefix.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrDownload, ErrTranscription, ErrSummarization,
		ErrNotFound, ErrStorage, ErrProtocol, ErrValidation,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
