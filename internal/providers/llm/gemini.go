package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Gemini calls the generateContent endpoint of the Gemini API.
type Gemini struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  infra.Logger
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGemini(opts GeminiOptions) (*Gemini, error) {
	key := trimmedKey(opts.APIKey)
	if key == "" {
		return nil, domain.Configuration("llm.gemini", "gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{
		apiKey:  key,
		model:   model,
		baseURL: baseURL,
		client:  defaultHTTPClient(opts.HTTPClient),
		logger:  infra.OrNop(opts.Logger),
	}, nil
}

func (g *Gemini) Model() string {
	return g.model
}

func (g *Gemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	const op = "llm.gemini"
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), &buf)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	raw, err := do(g.client, op, req)
	if err != nil {
		return "", err
	}
	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.Upstream(op, http.StatusOK, "decode response: "+err.Error())
	}
	text := extractGeminiText(out)
	if text == "" {
		return "", emptyReply(op)
	}
	g.logger.Debug().Str("model", g.model).Int("chars", len(text)).Msg("llm: gemini reply")
	return text, nil
}

func (g *Gemini) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

// extractGeminiText joins the text parts of the first candidate that has any.
func extractGeminiText(resp geminiResponse) string {
	for _, cand := range resp.Candidates {
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
		if strings.TrimSpace(sb.String()) != "" {
			return sb.String()
		}
	}
	return ""
}
