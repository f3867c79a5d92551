package client

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/menta2k/brafit/pkg/landmark"
)

var (
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailing     = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseLandmarks decodes a model reply into raw landmarks. Replies without
// usable JSON are reported as a missing pose.
func ParseLandmarks(raw string) ([]landmark.Raw, error) {
	raw = SanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("model returned non-JSON response: %w", landmark.ErrNoPose)
	}

	raws, err := landmark.ParseJSON(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return raws, nil
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from a
// model reply and keeps only the outermost object.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
