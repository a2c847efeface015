// Package llm holds the language-model collaborators. Each client sends one
// stateless single-turn prompt and returns the reply text verbatim.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

// Client is the language-model contract the generation engine consumes.
type Client interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 4 << 10
)

// New builds the client selected by cfg.LLMProvider.
func New(cfg *infra.Config, httpClient *http.Client, logger *infra.Logger) (Client, error) {
	switch cfg.LLMProvider {
	case ProviderOpenAI:
		c, err := NewOpenAI(OpenAIOptions{
			APIKey:       cfg.OpenAIAPIKey,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			HTTPClient:   httpClient,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGemini, "":
		c, err := NewGemini(GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			BaseURL:    cfg.GeminiBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, domain.Configuration("llm", fmt.Sprintf("unsupported provider %q", cfg.LLMProvider))
	}
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

// do sends req and returns the body of a 2xx response. Transport failures are
// network errors and other statuses are upstream errors carrying the body.
func do(client *http.Client, op string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, domain.Network(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.Upstream(op, resp.StatusCode, string(raw))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Network(op, fmt.Errorf("read response: %w", err))
	}
	return raw, nil
}

func emptyReply(op string) error {
	return domain.Upstream(op, http.StatusOK, "response contained no text")
}

func trimmedKey(key string) string {
	return strings.TrimSpace(key)
}
