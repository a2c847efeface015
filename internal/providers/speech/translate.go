package speech

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"progenai/internal/domain"
	"progenai/internal/infra"
)

const (
	defaultTranslateBaseURL = "https://translate.google.com"

	// ChunkLimit is the longest text, in characters, sent per request.
	ChunkLimit = 200
)

type TranslateOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Translate synthesizes speech through the Google Translate TTS endpoint. It
// needs no credential.
type Translate struct {
	baseURL string
	client  *http.Client
	logger  infra.Logger
}

func NewTranslate(opts TranslateOptions) *Translate {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTranslateBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Translate{baseURL: baseURL, client: client, logger: infra.OrNop(opts.Logger)}
}

// Synthesize returns MPEG audio for text in lang. Long text is split into
// chunks and the audio segments are concatenated in order.
func (t *Translate) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	const op = "speech.translate"
	chunks := Chunk(text, ChunkLimit)
	if len(chunks) == 0 {
		return nil, domain.Validation(op, "text is empty")
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = string(domain.DefaultLanguage)
	}
	var audio []byte
	for i, chunk := range chunks {
		q := url.Values{}
		q.Set("ie", "UTF-8")
		q.Set("client", "tw-ob")
		q.Set("tl", lang)
		q.Set("q", chunk)
		q.Set("total", strconv.Itoa(len(chunks)))
		q.Set("idx", strconv.Itoa(i))
		q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/translate_tts?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w", op, err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")
		part, err := fetch(t.client, op, req)
		if err != nil {
			return nil, err
		}
		audio = append(audio, part...)
	}
	t.logger.Debug().Str("lang", lang).Int("chunks", len(chunks)).Int("bytes", len(audio)).Msg("speech: local audio synthesized")
	return audio, nil
}

// Chunk splits text into pieces of at most limit characters, breaking on
// whitespace where possible. Words longer than limit are split hard.
func Chunk(text string, limit int) []string {
	var chunks []string
	var current []rune
	flush := func() {
		if s := strings.TrimSpace(string(current)); s != "" {
			chunks = append(chunks, s)
		}
		current = current[:0]
	}
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		need := len(w)
		if len(current) > 0 {
			need++
		}
		if len(current)+need > limit {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)
	}
	flush()
	return chunks
}
