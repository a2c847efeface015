// Package image renders optimized prompts into images through the Stability
// text-to-image API.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

// Fixed request parameters of the text-to-image call.
const (
	Size        = 1024
	Samples     = 1
	CFGScale    = 7
	Steps       = 30
	defaultMIME = "image/png"

	defaultBaseURL = "https://api.stability.ai"
	defaultEngine  = "stable-diffusion-xl-1024-v1-0"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 4 << 10
)

// KeyFunc returns the current image-service credential. An empty key means
// none is configured.
type KeyFunc func(ctx context.Context) (string, error)

// Options configures the Stability client.
type Options struct {
	APIKey     KeyFunc
	BaseURL    string
	Engine     string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client performs text-to-image calls.
type Client struct {
	apiKey  KeyFunc
	baseURL string
	engine  string
	client  *http.Client
	logger  infra.Logger
}

type textPrompt struct {
	Text string `json:"text"`
}

type generationRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CFGScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
}

type generationResponse struct {
	Artifacts []struct {
		Base64       string `json:"base64"`
		FinishReason string `json:"finishReason"`
	} `json:"artifacts"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	engine := strings.TrimSpace(opts.Engine)
	if engine == "" {
		engine = defaultEngine
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	apiKey := opts.APIKey
	if apiKey == nil {
		apiKey = func(context.Context) (string, error) { return "", nil }
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		engine:  engine,
		client:  httpClient,
		logger:  infra.OrNop(opts.Logger),
	}
}

// StaticKey adapts a fixed credential to a KeyFunc.
func StaticKey(key string) KeyFunc {
	return func(context.Context) (string, error) { return key, nil }
}

// GenerateImage renders prompt as a single square image. A missing
// credential fails before any request is made.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*domain.ImageArtifact, error) {
	const op = "image.generate"
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: load credential: %w", op, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.Configuration(op, "image service api key is not configured")
	}

	payload := generationRequest{
		TextPrompts: []textPrompt{{Text: prompt}},
		CFGScale:    CFGScale,
		Height:      Size,
		Width:       Size,
		Samples:     Samples,
		Steps:       Steps,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	endpoint := fmt.Sprintf("%s/v1/generation/%s/text-to-image", c.baseURL, c.engine)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.Network(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(raw))
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			msg = detail.Message
		}
		return nil, domain.Generation(op, resp.StatusCode, msg)
	}

	var decoded generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, domain.Generation(op, resp.StatusCode, "decode response: "+err.Error())
	}
	if len(decoded.Artifacts) == 0 || strings.TrimSpace(decoded.Artifacts[0].Base64) == "" {
		return nil, domain.Generation(op, resp.StatusCode, "response contained no image artifact")
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(decoded.Artifacts[0].Base64))
	if err != nil {
		return nil, domain.Generation(op, resp.StatusCode, "decode artifact: "+err.Error())
	}

	artifact := &domain.ImageArtifact{MIME: defaultMIME, Width: Size, Height: Size, Data: data}
	if cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data)); err == nil {
		artifact.Width, artifact.Height = cfg.Width, cfg.Height
		artifact.MIME = "image/" + format
	}
	c.logger.Debug().
		Str("engine", c.engine).
		Int("bytes", len(data)).
		Int("width", artifact.Width).
		Int("height", artifact.Height).
		Msg("image: generated artifact")
	return artifact, nil
}
