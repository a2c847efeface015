package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// OpenAI calls the chat completions endpoint with a single user message.
type OpenAI struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	logger       infra.Logger
}

type openAIChatRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	key := trimmedKey(opts.APIKey)
	if key == "" {
		return nil, domain.Configuration("llm.openai", "openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		apiKey:       key,
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       defaultHTTPClient(opts.HTTPClient),
		logger:       infra.OrNop(opts.Logger),
	}, nil
}

func (o *OpenAI) Model() string {
	return o.model
}

func (o *OpenAI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	const op = "llm.openai"
	payload := openAIChatRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("%s: encode request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		req.Header.Set("OpenAI-Organization", o.organization)
	}

	raw, err := do(o.client, op, req)
	if err != nil {
		return "", err
	}
	var out openAIChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", domain.Upstream(op, http.StatusOK, "decode response: "+err.Error())
	}
	for _, choice := range out.Choices {
		if strings.TrimSpace(choice.Message.Content) != "" {
			o.logger.Debug().Str("model", o.model).Int("chars", len(choice.Message.Content)).Msg("llm: openai reply")
			return choice.Message.Content, nil
		}
	}
	return "", emptyReply(op)
}
