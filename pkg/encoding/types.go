package encoding

// Status is the lifecycle state the provider reports for jobs and manifests.
type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusError    Status = "ERROR"
)

// Terminal reports whether no further automatic transition occurs.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Input is a provider-side ingest resource (bucket binding).
type Input struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Output is a provider-side egress resource (bucket binding).
type Output struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CodecConfiguration describes one codec preset. Video presets carry a
// dimension; audio presets carry a bitrate. Exactly one of the two shapes is
// populated depending on the configuration kind.
type CodecConfiguration struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Bitrate int64  `json:"bitrate,omitempty"`
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
}

// IsVideo reports whether the preset carries a video dimension.
func (c CodecConfiguration) IsVideo() bool {
	return c.Width != nil || c.Height != nil
}

// Dimension returns the height when set, else the width.
func (c CodecConfiguration) Dimension() int {
	if c.Height != nil {
		return *c.Height
	}
	if c.Width != nil {
		return *c.Width
	}
	return 0
}

// JobSpec creates one encoding job.
type JobSpec struct {
	Name        string `json:"name"`
	CloudRegion string `json:"cloudRegion,omitempty"`
}

// Job is the provider's unit of encode work.
type Job struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status,omitempty"`
}

// StreamInput selects the source object for a stream.
type StreamInput struct {
	InputID       string `json:"inputId"`
	InputPath     string `json:"inputPath"`
	SelectionMode string `json:"selectionMode"`
}

// StreamSpec attaches one codec-specific stream to a job.
type StreamSpec struct {
	CodecConfigID string        `json:"codecConfigId"`
	InputStreams  []StreamInput `json:"inputStreams"`
}

// Stream is one elementary output line within a job.
type Stream struct {
	ID            string `json:"id"`
	CodecConfigID string `json:"codecConfigId"`
}

// ACLEntry grants access on a muxing or manifest output.
type ACLEntry struct {
	Permission string `json:"permission"`
}

// EncodingOutput binds a resource to an output path.
type EncodingOutput struct {
	OutputID   string     `json:"outputId"`
	OutputPath string     `json:"outputPath"`
	ACL        []ACLEntry `json:"acl,omitempty"`
}

// MuxingStream references the stream a muxing packages.
type MuxingStream struct {
	StreamID string `json:"streamId"`
}

// TSMuxingSpec creates a transport-stream segmented muxing.
type TSMuxingSpec struct {
	SegmentLength float64          `json:"segmentLength"`
	SegmentNaming string           `json:"segmentNaming"`
	Streams       []MuxingStream   `json:"streams"`
	Outputs       []EncodingOutput `json:"outputs"`
}

// Muxing is the packaged segment output for one stream.
type Muxing struct {
	ID            string  `json:"id"`
	SegmentLength float64 `json:"segmentLength"`
}

// ManifestSpec creates an HLS manifest resource.
type ManifestSpec struct {
	Name         string           `json:"name"`
	ManifestName string           `json:"manifestName"`
	Outputs      []EncodingOutput `json:"outputs"`
}

// Manifest is the adaptive-bitrate playlist resource.
type Manifest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status,omitempty"`
}

// AudioMediaSpec registers one audio rendition on a manifest.
type AudioMediaSpec struct {
	GroupID     string `json:"groupId"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	SegmentPath string `json:"segmentPath"`
	Language    string `json:"language"`
	EncodingID  string `json:"encodingId"`
	StreamID    string `json:"streamId"`
	MuxingID    string `json:"muxingId"`
}

// VariantStreamSpec registers one video rendition on a manifest. Audio is the
// audio group reference and stays empty when the encode has no audio track.
type VariantStreamSpec struct {
	Audio       string `json:"audio,omitempty"`
	URI         string `json:"uri"`
	SegmentPath string `json:"segmentPath"`
	EncodingID  string `json:"encodingId"`
	StreamID    string `json:"streamId"`
	MuxingID    string `json:"muxingId"`
}

// ThumbnailSpec requests preview images at fixed offsets (seconds).
type ThumbnailSpec struct {
	Positions []int            `json:"positions"`
	Pattern   string           `json:"pattern"`
	Outputs   []EncodingOutput `json:"outputs"`
}

// Thumbnail is the provider-side preview-image job.
type Thumbnail struct {
	ID        string `json:"id"`
	Pattern   string `json:"pattern"`
	Positions []int  `json:"positions"`
	Status    Status `json:"status,omitempty"`
}

// StatusResult is the polled state of a job or manifest.
type StatusResult struct {
	Status   Status  `json:"status"`
	Progress float64 `json:"progress,omitempty"`
}
