// Package speech holds the text-to-speech collaborators: the ElevenLabs cloud
// voice and the Google Translate endpoint used as the local fallback.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultTimeout           = 30 * time.Second
	maxErrorBody             = 4 << 10

	voiceStability       = 0.6
	voiceSimilarityBoost = 0.5
)

// KeyFunc returns the current cloud-speech credential.
type KeyFunc func(ctx context.Context) (string, error)

type ElevenLabsOptions struct {
	APIKey     KeyFunc
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// ElevenLabs synthesizes speech with a configured cloud voice.
type ElevenLabs struct {
	apiKey  KeyFunc
	baseURL string
	client  *http.Client
	logger  infra.Logger
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func NewElevenLabs(opts ElevenLabsOptions) *ElevenLabs {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	apiKey := opts.APIKey
	if apiKey == nil {
		apiKey = func(context.Context) (string, error) { return "", nil }
	}
	return &ElevenLabs{apiKey: apiKey, baseURL: baseURL, client: client, logger: infra.OrNop(opts.Logger)}
}

// StaticKey adapts a fixed credential to a KeyFunc.
func StaticKey(key string) KeyFunc {
	return func(context.Context) (string, error) { return key, nil }
}

// Synthesize returns MPEG audio for text spoken by voiceID. A missing
// credential or voice fails before any request is made.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	const op = "speech.elevenlabs"
	key, err := e.apiKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: load credential: %w", op, err)
	}
	if strings.TrimSpace(key) == "" {
		return nil, domain.Configuration(op, "cloud speech api key is not configured")
	}
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return nil, domain.Configuration(op, "cloud voice id is not configured")
	}

	body, err := json.Marshal(ttsRequest{
		Text:          text,
		VoiceSettings: voiceSettings{Stability: voiceStability, SimilarityBoost: voiceSimilarityBoost},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", strings.TrimSpace(key))

	audio, err := fetch(e.client, op, req)
	if err != nil {
		return nil, err
	}
	e.logger.Debug().Str("voice", voiceID).Int("bytes", len(audio)).Msg("speech: cloud audio synthesized")
	return audio, nil
}

func fetch(client *http.Client, op string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.Network(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.Upstream(op, resp.StatusCode, string(raw))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Network(op, fmt.Errorf("read audio: %w", err))
	}
	return audio, nil
}
