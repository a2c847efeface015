package domain

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is the short code of a supported input/output language.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageTamil   Language = "ta"
	LanguageTelugu  Language = "te"
)

// DefaultLanguage is used whenever a stored or requested value is unknown.
const DefaultLanguage = LanguageEnglish

var Languages = []Language{LanguageEnglish, LanguageHindi, LanguageTamil, LanguageTelugu}

var languageTags = map[Language]language.Tag{
	LanguageEnglish: language.English,
	LanguageHindi:   language.Hindi,
	LanguageTamil:   language.Tamil,
	LanguageTelugu:  language.Telugu,
}

var recognitionLocales = map[Language]language.Tag{
	LanguageEnglish: language.AmericanEnglish,
	LanguageHindi:   language.MustParse("hi-IN"),
	LanguageTamil:   language.MustParse("ta-IN"),
	LanguageTelugu:  language.MustParse("te-IN"),
}

// ParseLanguage accepts short codes or full locales ("hi-IN") and falls back
// to English.
func ParseLanguage(v string) Language {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(v)
	if err != nil {
		return DefaultLanguage
	}
	base, _ := tag.Base()
	l := Language(base.String())
	if _, ok := languageTags[l]; ok {
		return l
	}
	return DefaultLanguage
}

func (l Language) Valid() bool {
	_, ok := languageTags[l]
	return ok
}

func (l Language) orDefault() Language {
	if l.Valid() {
		return l
	}
	return DefaultLanguage
}

// Tag returns the BCP 47 tag of the language.
func (l Language) Tag() language.Tag {
	return languageTags[l.orDefault()]
}

// Name is the English display name ("Hindi"), used in model instructions.
func (l Language) Name() string {
	return display.English.Languages().Name(l.Tag())
}

// RecognitionLocale is the regional locale handed to speech recognition.
func (l Language) RecognitionLocale() string {
	return recognitionLocales[l.orDefault()].String()
}

// SpeechCode is the short code handed to speech synthesis.
func (l Language) SpeechCode() string {
	return string(l.orDefault())
}

// LanguageTags lists the supported tags, English first, for matchers.
func LanguageTags() []language.Tag {
	tags := make([]language.Tag, 0, len(Languages))
	for _, l := range Languages {
		tags = append(tags, languageTags[l])
	}
	return tags
}
