package jobs

import "time"

// Status represents the lifecycle of a job record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value names a known status.
func ValidStatus(value Status) bool {
	_, ok := statusSet[value]
	return ok
}

// Job is one persisted pipeline run.
type Job struct {
	ID           int64
	JobID        string
	Source       string
	SourceKind   string
	Status       Status
	Stage        string
	ErrorMessage string
	ResultJSON   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summary counts jobs grouped by lifecycle state.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
}
