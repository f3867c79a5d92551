package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/types"
)

func completionServer(t *testing.T, status int, content any, seen *ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		if status != http.StatusOK {
			http.Error(w, "model not loaded", status)
			return
		}
		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:      "cmpl-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDetectLandmarks(t *testing.T) {
	var seen ChatCompletionRequest
	reply := "```json\n" + `{"pose_landmarks":[[{"x":0.5,"y":0.1,"z":0,"visibility":0.9}]]}` + "\n```"
	srv := completionServer(t, http.StatusOK, reply, &seen)

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	raws, err := c.DetectLandmarks(context.Background(), "qwen2-vl", "locate", "aGVsbG8=")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, landmark.Nose, raws[0].Name)

	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, "json_object", seen.ResponseFormat.Type)
	assert.Len(t, seen.Messages, 1)
}

func TestDetectLandmarks_ContentParts(t *testing.T) {
	parts := []map[string]string{{"type": "text", "text": `{"landmarks":[{"name":"right_hip","x":0.4,"y":0.7}]}`}}
	srv := completionServer(t, http.StatusOK, parts, nil)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	raws, err := c.DetectLandmarks(context.Background(), "m", "locate", "")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, landmark.RightHip, raws[0].Name)
	assert.InDelta(t, 1.0, raws[0].Confidence, 1e-12)
}

func TestDetectLandmarks_Errors(t *testing.T) {
	srv := completionServer(t, http.StatusServiceUnavailable, nil, nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.DetectLandmarks(context.Background(), "m", "locate", "")
	assert.ErrorContains(t, err, "status 503")

	srv = completionServer(t, http.StatusOK, "no person found", nil)
	c, err = NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.DetectLandmarks(context.Background(), "m", "locate", "")
	assert.ErrorIs(t, err, types.ErrInsufficientLandmarkData)
}

func TestSimpleQuery(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "a person standing", nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	text, err := c.SimpleQuery(context.Background(), "m", "describe", "")
	require.NoError(t, err)
	assert.Equal(t, "a person standing", text)
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, DefaultURL, c.baseURL)

	_, err = NewClient("localhost:8080")
	assert.Error(t, err)
}
