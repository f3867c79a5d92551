package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/brafit/pkg/client"
	"github.com/menta2k/brafit/pkg/landmark"
)

// DefaultTimeout applies when the caller's context carries no deadline
const DefaultTimeout = 300 * time.Second

// Client wraps the Ollama API client
type Client struct {
	client *api.Client
}

// NewClient creates a new Ollama client
func NewClient(ollamaURL string) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", ollamaURL)
	}

	// Drop any path like /api/chat; the SDK adds its own.
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{client: api.NewClient(baseURL, http.DefaultClient)}, nil
}

var _ client.VisionClient = (*Client)(nil)

// SimpleQuery performs a free-form query with an image
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	req, err := chatRequest(model, prompt, imgB64)
	if err != nil {
		return "", err
	}
	return c.chat(ctx, req)
}

// DetectLandmarks asks the model for pose landmarks and parses the reply
func (c *Client) DetectLandmarks(ctx context.Context, model, prompt, imgB64 string) ([]landmark.Raw, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	req, err := chatRequest(model, prompt, imgB64)
	if err != nil {
		return nil, err
	}
	req.Format = json.RawMessage(`"json"`)
	req.Options = modelOptions(model)

	content, err := c.chat(ctx, req)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}
	return client.ParseLandmarks(content)
}

func (c *Client) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat error: %w", err)
	}
	return content.String(), nil
}

func chatRequest(model, prompt, imgB64 string) (*api.ChatRequest, error) {
	msg := api.Message{Role: "user", Content: prompt}
	if imgB64 != "" {
		imgBytes, err := base64.StdEncoding.DecodeString(imgB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image: %w", err)
		}
		msg.Images = []api.ImageData{api.ImageData(imgBytes)}
	}

	streamFalse := false
	return &api.ChatRequest{
		Model:    model,
		Messages: []api.Message{msg},
		Stream:   &streamFalse,
	}, nil
}

// modelOptions keeps sampling close to deterministic for coordinate output.
// MiniCPM-V 4.x needs a larger context window for full-body photos.
func modelOptions(model string) map[string]any {
	options := map[string]any{
		"temperature": 0.1,
		"top_p":       0.8,
	}

	modelLower := strings.ToLower(model)
	if strings.Contains(modelLower, "minicpm-v4") ||
		strings.Contains(modelLower, "minicpm-v-4") ||
		strings.Contains(modelLower, "minicpmv4") {
		options["num_ctx"] = 4096
	}
	return options
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
