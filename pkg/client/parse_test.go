package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/brafit/pkg/landmark"
	"github.com/menta2k/brafit/pkg/types"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"block comment", `{"a":/* one */1}`, `{"a":1}`},
		{"line comment", "{\n// note\n\"a\":1}", "{\n\n\"a\":1}"},
		{"surrounding prose", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeModelJSON(tt.in))
		})
	}
}

func TestParseLandmarks(t *testing.T) {
	reply := "```json\n" + `{
  "landmarks": [
    {"name": "left_shoulder", "x": 0.62, "y": 0.31, "z": 0, "confidence": 0.9},
    {"name": "right_shoulder", "x": 0.38, "y": 0.30, "z": 0, "confidence": 0.85},
  ]
}` + "\n```"

	raws, err := ParseLandmarks(reply)
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, landmark.LeftShoulder, raws[0].Name)
	assert.InDelta(t, 0.85, raws[1].Confidence, 1e-12)
}

func TestParseLandmarks_NoPose(t *testing.T) {
	for _, reply := range []string{
		"I cannot see a person in this image.",
		`{"landmarks": []}`,
	} {
		_, err := ParseLandmarks(reply)
		assert.ErrorIs(t, err, types.ErrInsufficientLandmarkData, reply)
	}
}
