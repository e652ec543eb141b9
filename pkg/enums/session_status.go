package enums

import "fmt"

// SessionStatus describes whether a platform credential set is usable.
type SessionStatus string

const (
	SessionStatusLinked   SessionStatus = "linked"
	SessionStatusUnlinked SessionStatus = "unlinked"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusLinked,
	SessionStatusUnlinked,
}

// String returns the literal string for the status.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is known.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
