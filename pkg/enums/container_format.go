package enums

import "fmt"

// ContainerFormat is the segment container used for muxings. Only the
// transport-stream container is wired today; fMP4 is declared so callers get
// a typed rejection instead of silently producing an unplayable output.
type ContainerFormat string

const (
	ContainerFormatTS   ContainerFormat = "ts"
	ContainerFormatFMP4 ContainerFormat = "fmp4"
)

// Supported reports whether the pipeline can produce this container.
func (c ContainerFormat) Supported() bool {
	return c == ContainerFormatTS
}

// ParseContainerFormat converts raw input into a ContainerFormat.
func ParseContainerFormat(value string) (ContainerFormat, error) {
	switch ContainerFormat(value) {
	case ContainerFormatTS:
		return ContainerFormatTS, nil
	case ContainerFormatFMP4:
		return ContainerFormatFMP4, nil
	}
	return "", fmt.Errorf("invalid container format %q", value)
}
