package domain

import (
	"encoding/base64"
	"strings"
	"time"
)

// Modality is the kind of artefact the optimized prompt targets.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityText  Modality = "text"
	ModalityCode  Modality = "code"
)

// Modalities lists every supported modality in display order.
var Modalities = []Modality{ModalityImage, ModalityText, ModalityCode}

func (m Modality) Valid() bool {
	switch m {
	case ModalityImage, ModalityText, ModalityCode:
		return true
	}
	return false
}

// Style selects the instruction template used for optimization.
type Style string

const (
	StyleSimple    Style = "simple"
	StyleDetailed  Style = "detailed"
	StyleTechnical Style = "technical"
	StyleCreative  Style = "creative"
)

var Styles = []Style{StyleSimple, StyleDetailed, StyleTechnical, StyleCreative}

func (s Style) Valid() bool {
	switch s {
	case StyleSimple, StyleDetailed, StyleTechnical, StyleCreative:
		return true
	}
	return false
}

// ParseModality normalizes free-form input, defaulting to image.
func ParseModality(v string) Modality {
	m := Modality(strings.ToLower(strings.TrimSpace(v)))
	if m.Valid() {
		return m
	}
	return ModalityImage
}

// ParseStyle normalizes free-form input, defaulting to detailed.
func ParseStyle(v string) Style {
	s := Style(strings.ToLower(strings.TrimSpace(v)))
	if s.Valid() {
		return s
	}
	return StyleDetailed
}

// GenerationRequest is one user-initiated generation. It is passed by value
// and never mutated after submission.
type GenerationRequest struct {
	RawInput string   `json:"rawInput"`
	Modality Modality `json:"modality"`
	Style    Style    `json:"style"`
	Language Language `json:"language"`
}

func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.RawInput) == "" {
		return ErrEmptyInput
	}
	if !r.Modality.Valid() {
		return Validation("generate", "unsupported modality "+string(r.Modality))
	}
	if !r.Style.Valid() {
		return Validation("generate", "unsupported style "+string(r.Style))
	}
	return nil
}

// ImageArtifact is a decoded image produced from an optimized prompt.
type ImageArtifact struct {
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"-"`
}

// DataURL renders the artefact as an inline data URL for display.
func (a *ImageArtifact) DataURL() string {
	if a == nil || len(a.Data) == 0 {
		return ""
	}
	mime := a.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// CodeArtifact is the raw code text returned by the language model.
type CodeArtifact struct {
	Source string `json:"source"`
}

// GenerationResult is the outcome of one generation or refinement cycle.
// A refinement produces a new result rather than mutating the previous one.
type GenerationResult struct {
	ID                  string            `json:"id"`
	Request             GenerationRequest `json:"request"`
	OptimizedPrompt     string            `json:"optimizedPrompt"`
	Image               *ImageArtifact    `json:"image,omitempty"`
	Code                *CodeArtifact     `json:"code,omitempty"`
	ArtifactError       string            `json:"artifactError,omitempty"`
	RefinementQuestions []string          `json:"refinementQuestions"`
	Refined             bool              `json:"refined"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// HasArtifact reports whether an image or code artefact was produced.
func (r *GenerationResult) HasArtifact() bool {
	return r != nil && (r.Image != nil || r.Code != nil)
}

// Clone returns a copy that shares no slices with r. Artefact payloads are
// immutable once produced and stay shared.
func (r *GenerationResult) Clone() *GenerationResult {
	if r == nil {
		return nil
	}
	out := *r
	out.RefinementQuestions = make([]string, len(r.RefinementQuestions))
	copy(out.RefinementQuestions, r.RefinementQuestions)
	return &out
}

// AnswerSet maps a refinement question to the user's answer.
type AnswerSet map[string]string

// Answered returns the entries with a non-blank answer.
func (a AnswerSet) Answered() AnswerSet {
	out := make(AnswerSet, len(a))
	for q, ans := range a {
		if strings.TrimSpace(q) == "" || strings.TrimSpace(ans) == "" {
			continue
		}
		out[q] = ans
	}
	return out
}

// Role identifies the author of a chat entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatEntry is one line of the append-only conversation log.
type ChatEntry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
