package encoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursecast/coursecast-backend/pkg/config"
	"github.com/coursecast/coursecast-backend/pkg/enums"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.EncodingConfig{
		BaseURL:     server.URL,
		APIKey:      "test-key",
		HTTPTimeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func successEnvelope(result any) map[string]any {
	return map[string]any{
		"status": "SUCCESS",
		"data":   map[string]any{"result": result},
	}
}

func TestClientRequiresConfiguration(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.EncodingConfig{APIKey: "k"}, nil)
	require.Error(t, err)

	_, err = NewClient(config.EncodingConfig{BaseURL: "https://api.example.com"}, nil)
	require.Error(t, err)
}

func TestClientSendsAPIKeyAndDecodesResult(t *testing.T) {
	t.Parallel()

	var gotHeader, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(successEnvelope(map[string]any{
			"id":   "input-1",
			"name": "gcs-input",
			"type": "GCS",
		}))
	})

	input, err := client.GetInput(context.Background(), "input-1")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotHeader)
	assert.Equal(t, "/encoding/inputs/input-1", gotPath)
	assert.Equal(t, "input-1", input.ID)
	assert.Equal(t, "gcs-input", input.Name)
}

func TestClientSurfacesEnvelopeErrorMessages(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ERROR",
			"data": map[string]any{
				"messages": []map[string]string{
					{"type": "INFO", "text": "received"},
					{"type": "ERROR", "text": "codec configuration not found"},
				},
			},
		})
	})

	_, err := client.GetCodecConfiguration(context.Background(), enums.CodecKindVideo, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec configuration not found")
}

func TestClientSurfacesHTTPFailures(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	})

	err := client.StartJob(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientPostsSpecsAndParsesStatus(t *testing.T) {
	t.Parallel()

	var gotSpec TSMuxingSpec
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/encoding/encodings/job-1/muxings/ts":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotSpec))
			json.NewEncoder(w).Encode(successEnvelope(map[string]any{
				"id":            "mux-1",
				"segmentLength": 4,
			}))
		case "/encoding/encodings/job-1/status":
			json.NewEncoder(w).Encode(successEnvelope(map[string]any{
				"status":   "RUNNING",
				"progress": 42.5,
			}))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	muxing, err := client.AddTSMuxing(context.Background(), "job-1", TSMuxingSpec{
		SegmentLength: 4,
		SegmentNaming: "segment_%number%.ts",
		Streams:       []MuxingStream{{StreamID: "stream-1"}},
		Outputs: []EncodingOutput{{
			OutputID:   "output-1",
			OutputPath: "2026-03-01/video/720/",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "mux-1", muxing.ID)
	assert.Equal(t, "segment_%number%.ts", gotSpec.SegmentNaming)
	assert.Len(t, gotSpec.Streams, 1)

	status, err := client.JobStatus(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, status.Status)
	assert.InDelta(t, 42.5, status.Progress, 0.001)
	assert.False(t, status.Status.Terminal())
}

func TestClientIgnoresEmptyResultBodies(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "SUCCESS",
			"data":   map[string]any{},
		})
	})

	require.NoError(t, client.StartManifest(context.Background(), "manifest-1"))
}
