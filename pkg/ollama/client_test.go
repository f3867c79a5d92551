package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/types"
)

func fakeServer(t *testing.T, reply string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "test",
			"message": map[string]any{"role": "assistant", "content": reply},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("http://localhost:11434/api/chat")
	assert.NoError(t, err)

	_, err = NewClient("localhost")
	assert.Error(t, err)
}

func TestDetectLandmarks(t *testing.T) {
	var seen map[string]any
	srv := fakeServer(t, `{"landmarks":[{"name":"left_hip","x":0.58,"y":0.7,"z":0,"confidence":0.8}]}`, &seen)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	img := base64.StdEncoding.EncodeToString([]byte("fake-jpeg"))
	raws, err := c.DetectLandmarks(context.Background(), "minicpm-v4.5", "find landmarks", img)
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, landmark.LeftHip, raws[0].Name)
	assert.InDelta(t, 0.8, raws[0].Confidence, 1e-12)

	assert.Equal(t, "json", seen["format"])
	options, ok := seen["options"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4096, options["num_ctx"])
}

func TestDetectLandmarks_ProseReply(t *testing.T) {
	srv := fakeServer(t, "There is nobody in this picture.", nil)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.DetectLandmarks(context.Background(), "llava", "find landmarks", "")
	assert.ErrorIs(t, err, types.ErrInsufficientLandmarkData)
}

func TestSimpleQuery_BadImage(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = c.SimpleQuery(context.Background(), "llava", "hi", "%%%not-base64")
	assert.ErrorContains(t, err, "base64")
}

func TestModelOptions(t *testing.T) {
	assert.NotContains(t, modelOptions("llava:13b"), "num_ctx")
	assert.Contains(t, modelOptions("openbmb/MiniCPM-V-4"), "num_ctx")
}
