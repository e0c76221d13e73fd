package enums

import "fmt"

// MediaStatus describes the lifecycle state of a media asset. Transitions are
// monotonic: create -> uploaded -> ready. A failed pipeline run leaves the
// asset at uploaded.
type MediaStatus string

const (
	MediaStatusCreate   MediaStatus = "create"
	MediaStatusUploaded MediaStatus = "uploaded"
	MediaStatusReady    MediaStatus = "ready"
)

var validMediaStatuses = []MediaStatus{
	MediaStatusCreate,
	MediaStatusUploaded,
	MediaStatusReady,
}

// String returns the literal string for the status.
func (m MediaStatus) String() string {
	return string(m)
}

// IsValid reports whether the status is known.
func (m MediaStatus) IsValid() bool {
	for _, candidate := range validMediaStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaStatus converts raw input into a MediaStatus.
func ParseMediaStatus(value string) (MediaStatus, error) {
	for _, candidate := range validMediaStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media status %q", value)
}
