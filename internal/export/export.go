// Package export renders saved prompts as downloadable documents.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"progenai/internal/domain"
	"progenai/pkg/zip"
)

const (
	App       = "ProGen AI"
	Separator = "\n\n---\n\n"
	MIMEJSON  = "application/json"
	MIMEZip   = "application/zip"
)

// Document is the JSON file written for an exported prompt.
type Document struct {
	Prompt    string          `json:"prompt"`
	Modality  domain.Modality `json:"modality"`
	Style     domain.Style    `json:"style"`
	Timestamp time.Time       `json:"timestamp"`
	App       string          `json:"app"`
}

func NewDocument(prompt string, modality domain.Modality, style domain.Style, now time.Time) Document {
	return Document{
		Prompt:    prompt,
		Modality:  modality,
		Style:     style,
		Timestamp: now.UTC(),
		App:       App,
	}
}

// Combined joins every saved prompt into one document tagged with the given
// modality and style.
func Combined(entries []domain.SavedPrompt, modality domain.Modality, style domain.Style, now time.Time) Document {
	prompts := make([]string, 0, len(entries))
	for _, e := range entries {
		prompts = append(prompts, e.Prompt)
	}
	return NewDocument(strings.Join(prompts, Separator), modality, style, now)
}

// Filename is progenai-prompt-<unix millis>.json.
func (d Document) Filename() string {
	return fmt.Sprintf("progenai-prompt-%d.json", d.Timestamp.UnixMilli())
}

func (d Document) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal: %w", err)
	}
	return b, nil
}

// Archive packs one document per saved prompt plus an index into a zip.
func Archive(entries []domain.SavedPrompt, now time.Time) ([]byte, error) {
	files := make([]zip.Entry, 0, len(entries)+1)
	var index strings.Builder
	for i, e := range entries {
		doc := NewDocument(e.Prompt, e.Modality, e.Style, e.Timestamp)
		data, err := doc.Marshal()
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("progenai-prompt-%d.json", e.ID)
		files = append(files, zip.Entry{Filename: name, Modified: e.Timestamp, Data: data})
		fmt.Fprintf(&index, "%d. %s [%s/%s] %s\n", i+1, name, Label(string(e.Modality)), Label(string(e.Style)), Stars(e.Rating))
	}
	files = append(files, zip.Entry{Filename: "index.txt", Modified: now, Data: []byte(index.String())})
	return zip.Archive(files)
}

// ArchiveFilename is progenai-prompts-<unix millis>.zip.
func ArchiveFilename(now time.Time) string {
	return fmt.Sprintf("progenai-prompts-%d.zip", now.UnixMilli())
}

// Label turns an enum value into a display label ("image" -> "Image").
func Label(v string) string {
	return cases.Title(language.English).String(v)
}

// Stars renders a rating as filled and empty stars.
func Stars(rating int) string {
	r := domain.ClampRating(rating)
	return strings.Repeat("★", r) + strings.Repeat("☆", domain.MaxRating-r)
}

// ShareText is the message offered when sharing a prompt.
func ShareText(prompt, origin string) string {
	return fmt.Sprintf("Check out this AI prompt I created with ProGen AI:\n\n\"%s\"\n\nTry it at: %s", prompt, origin)
}
