package enums

import "fmt"

// JobStatus describes the lifecycle state of an automation job. Transitions
// are one-directional toward deleted; rows are never physically removed.
type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusInactive JobStatus = "inactive"
	JobStatusDeleted  JobStatus = "deleted"
)

var validJobStatuses = []JobStatus{
	JobStatusActive,
	JobStatusInactive,
	JobStatusDeleted,
}

// String returns the literal string for the status.
func (s JobStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseJobStatus converts raw input into a JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
