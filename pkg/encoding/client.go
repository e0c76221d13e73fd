package encoding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/enums"
	"github.com/coursecast/coursecast-backend/pkg/logger"
)

const apiKeyHeader = "X-Api-Key"

// Client talks to the encoding provider's resource-oriented REST API. Like
// the GCS client it is a thin hand-rolled HTTP layer: JSON envelopes in and
// out, contexts on every call, no SDK.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient validates the configuration and returns a provider client.
func NewClient(cfg config.EncodingConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("encoding base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("encoding api key is required")
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}

	if logg != nil {
		logg.Info(context.Background(), "encoding client initialized")
	}

	return client, nil
}

// envelope is the provider's uniform response wrapper.
type envelope struct {
	Status string `json:"status"`
	Data   struct {
		Result   json.RawMessage `json:"result"`
		Messages []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages,omitempty"`
	} `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned %s for %s %s: %s", resp.Status, method, path, previewBody(raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decoding provider envelope: %w", err)
	}
	if strings.EqualFold(env.Status, "ERROR") {
		return fmt.Errorf("provider rejected %s %s: %s", method, path, envelopeMessage(env))
	}

	if out == nil || len(env.Data.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data.Result, out); err != nil {
		return fmt.Errorf("decoding provider result: %w", err)
	}
	return nil
}

func envelopeMessage(env envelope) string {
	for _, msg := range env.Data.Messages {
		if strings.EqualFold(msg.Type, "ERROR") {
			return msg.Text
		}
	}
	if len(env.Data.Messages) > 0 {
		return env.Data.Messages[0].Text
	}
	return "no error detail"
}

func previewBody(raw []byte) string {
	const max = 512
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) <= max {
		return trimmed
	}
	return trimmed[:max] + "...(truncated)"
}

// GetInput resolves the ingest resource the pipeline reads from.
func (c *Client) GetInput(ctx context.Context, id string) (*Input, error) {
	var input Input
	if err := c.do(ctx, http.MethodGet, "/encoding/inputs/"+url.PathEscape(id), nil, &input); err != nil {
		return nil, fmt.Errorf("get input %s: %w", id, err)
	}
	return &input, nil
}

// GetOutput resolves the egress resource the pipeline writes to.
func (c *Client) GetOutput(ctx context.Context, id string) (*Output, error) {
	var output Output
	if err := c.do(ctx, http.MethodGet, "/encoding/outputs/"+url.PathEscape(id), nil, &output); err != nil {
		return nil, fmt.Errorf("get output %s: %w", id, err)
	}
	return &output, nil
}

// GetCodecConfiguration resolves one codec preset by kind and id.
func (c *Client) GetCodecConfiguration(ctx context.Context, kind enums.CodecKind, id string) (*CodecConfiguration, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid codec kind %q", kind)
	}
	var cfg CodecConfiguration
	path := fmt.Sprintf("/encoding/configurations/%s/%s", kind, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("get %s codec configuration %s: %w", kind, id, err)
	}
	return &cfg, nil
}

// CreateJob creates an empty encoding job.
func (c *Client) CreateJob(ctx context.Context, spec JobSpec) (*Job, error) {
	var job Job
	if err := c.do(ctx, http.MethodPost, "/encoding/encodings", spec, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// AddStream attaches one codec-specific stream to the job.
func (c *Client) AddStream(ctx context.Context, jobID string, spec StreamSpec) (*Stream, error) {
	var stream Stream
	path := fmt.Sprintf("/encoding/encodings/%s/streams", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodPost, path, spec, &stream); err != nil {
		return nil, fmt.Errorf("add stream to job %s: %w", jobID, err)
	}
	return &stream, nil
}

// AddTSMuxing creates the transport-stream muxing for one stream.
func (c *Client) AddTSMuxing(ctx context.Context, jobID string, spec TSMuxingSpec) (*Muxing, error) {
	var muxing Muxing
	path := fmt.Sprintf("/encoding/encodings/%s/muxings/ts", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodPost, path, spec, &muxing); err != nil {
		return nil, fmt.Errorf("add ts muxing to job %s: %w", jobID, err)
	}
	return &muxing, nil
}

// CreateManifest creates an empty HLS manifest resource.
func (c *Client) CreateManifest(ctx context.Context, spec ManifestSpec) (*Manifest, error) {
	var manifest Manifest
	if err := c.do(ctx, http.MethodPost, "/encoding/manifests/hls", spec, &manifest); err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	return &manifest, nil
}

// AddAudioMedia registers one audio rendition on the manifest.
func (c *Client) AddAudioMedia(ctx context.Context, manifestID string, spec AudioMediaSpec) error {
	path := fmt.Sprintf("/encoding/manifests/hls/%s/media/audio", url.PathEscape(manifestID))
	if err := c.do(ctx, http.MethodPost, path, spec, nil); err != nil {
		return fmt.Errorf("add audio media to manifest %s: %w", manifestID, err)
	}
	return nil
}

// AddVariantStream registers one video rendition on the manifest.
func (c *Client) AddVariantStream(ctx context.Context, manifestID string, spec VariantStreamSpec) error {
	path := fmt.Sprintf("/encoding/manifests/hls/%s/streams", url.PathEscape(manifestID))
	if err := c.do(ctx, http.MethodPost, path, spec, nil); err != nil {
		return fmt.Errorf("add variant stream to manifest %s: %w", manifestID, err)
	}
	return nil
}

// StartJob begins processing a created job.
func (c *Client) StartJob(ctx context.Context, jobID string) error {
	path := fmt.Sprintf("/encoding/encodings/%s/start", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("start job %s: %w", jobID, err)
	}
	return nil
}

// StartManifest begins generation of a created manifest.
func (c *Client) StartManifest(ctx context.Context, manifestID string) error {
	path := fmt.Sprintf("/encoding/manifests/hls/%s/start", url.PathEscape(manifestID))
	if err := c.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("start manifest %s: %w", manifestID, err)
	}
	return nil
}

// JobStatus polls the current job state.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*StatusResult, error) {
	var result StatusResult
	path := fmt.Sprintf("/encoding/encodings/%s/status", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("job %s status: %w", jobID, err)
	}
	return &result, nil
}

// ManifestStatus polls the current manifest state.
func (c *Client) ManifestStatus(ctx context.Context, manifestID string) (*StatusResult, error) {
	var result StatusResult
	path := fmt.Sprintf("/encoding/manifests/hls/%s/status", url.PathEscape(manifestID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("manifest %s status: %w", manifestID, err)
	}
	return &result, nil
}

// AddThumbnail requests preview-image generation on a stream.
func (c *Client) AddThumbnail(ctx context.Context, jobID, streamID string, spec ThumbnailSpec) (*Thumbnail, error) {
	var thumb Thumbnail
	path := fmt.Sprintf("/encoding/encodings/%s/streams/%s/thumbnails", url.PathEscape(jobID), url.PathEscape(streamID))
	if err := c.do(ctx, http.MethodPost, path, spec, &thumb); err != nil {
		return nil, fmt.Errorf("add thumbnail to stream %s: %w", streamID, err)
	}
	return &thumb, nil
}

// GetThumbnail fetches the stored thumbnail resource by id.
func (c *Client) GetThumbnail(ctx context.Context, jobID, streamID, thumbnailID string) (*Thumbnail, error) {
	var thumb Thumbnail
	path := fmt.Sprintf(
		"/encoding/encodings/%s/streams/%s/thumbnails/%s",
		url.PathEscape(jobID), url.PathEscape(streamID), url.PathEscape(thumbnailID),
	)
	if err := c.do(ctx, http.MethodGet, path, nil, &thumb); err != nil {
		return nil, fmt.Errorf("get thumbnail %s: %w", thumbnailID, err)
	}
	return &thumb, nil
}
