package enums

import "fmt"

// CodecKind distinguishes the elementary stream types of an encode.
type CodecKind string

const (
	CodecKindVideo CodecKind = "video"
	CodecKindAudio CodecKind = "audio"
)

// IsValid reports whether the kind is known.
func (c CodecKind) IsValid() bool {
	return c == CodecKindVideo || c == CodecKindAudio
}

// ParseCodecKind converts raw input into a CodecKind.
func ParseCodecKind(value string) (CodecKind, error) {
	kind := CodecKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid codec kind %q", value)
	}
	return kind, nil
}
