package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"progenai/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestGenerateImage(t *testing.T) {
	pngData := tinyPNG(t, 4, 3)
	var got generationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-img" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprintf(w, `{"artifacts":[{"base64":%q,"finishReason":"SUCCESS"}]}`, base64.StdEncoding.EncodeToString(pngData))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: StaticKey("sk-img"), BaseURL: srv.URL})
	art, err := client.GenerateImage(context.Background(), "A fluffy cat")
	if err != nil {
		t.Fatalf("GenerateImage error: %v", err)
	}
	if !bytes.Equal(art.Data, pngData) {
		t.Fatalf("artifact bytes mismatch")
	}
	if art.Width != 4 || art.Height != 3 || art.MIME != "image/png" {
		t.Fatalf("unexpected artifact metadata: %+v", art)
	}
	if len(got.TextPrompts) != 1 || got.TextPrompts[0].Text != "A fluffy cat" {
		t.Fatalf("unexpected prompts: %+v", got.TextPrompts)
	}
	if got.CFGScale != 7 || got.Width != 1024 || got.Height != 1024 || got.Samples != 1 || got.Steps != 30 {
		t.Fatalf("unexpected parameters: %+v", got)
	}
}

func TestGenerateImageMissingKeyMakesNoRequest(t *testing.T) {
	called := false
	client := NewClient(Options{
		APIKey: StaticKey(" "),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			called = true
			return nil, errors.New("unexpected")
		})},
	})
	_, err := client.GenerateImage(context.Background(), "x")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if called {
		t.Fatalf("request made without credential")
	}
}

func TestGenerateImageUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"name":"invalid_prompts","message":"prompt rejected"}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: StaticKey("k"), BaseURL: srv.URL})
	_, err := client.GenerateImage(context.Background(), "x")
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindGeneration {
		t.Fatalf("expected generation error, got %v", err)
	}
	if de.Status != http.StatusBadRequest || de.Message != "prompt rejected" {
		t.Fatalf("unexpected error detail: %+v", de)
	}
}

func TestGenerateImageMissingArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"artifacts":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Options{APIKey: StaticKey("k"), BaseURL: srv.URL})
	if _, err := client.GenerateImage(context.Background(), "x"); !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
}
