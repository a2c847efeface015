package voice

import (
	"fmt"

	"progenai/internal/domain"
)

// Reason classifies a speech-recognition failure.
type Reason string

const (
	NoSpeechDetected    Reason = "no-speech"
	AudioCaptureFailed  Reason = "audio-capture"
	PermissionDenied    Reason = "not-allowed"
	NetworkUnavailable  Reason = "network"
	ServiceUnavailable  Reason = "service-not-allowed"
	Aborted             Reason = "aborted"
	LanguageUnsupported Reason = "language-not-supported"
	Unknown             Reason = "unknown"
)

// RecognitionError is an error code reported by the recognition engine.
type RecognitionError struct {
	Reason Reason
	Code   string
}

// ParseRecognitionError maps an engine error code onto a Reason. Unlisted
// codes become Unknown and keep the raw code.
func ParseRecognitionError(code string) *RecognitionError {
	r := Reason(code)
	switch r {
	case NoSpeechDetected, AudioCaptureFailed, PermissionDenied, NetworkUnavailable,
		ServiceUnavailable, Aborted, LanguageUnsupported:
		return &RecognitionError{Reason: r, Code: code}
	}
	return &RecognitionError{Reason: Unknown, Code: code}
}

func (e *RecognitionError) Error() string {
	return "voice: " + e.Message()
}

// Message is the text shown to the user.
func (e *RecognitionError) Message() string {
	switch e.Reason {
	case NoSpeechDetected:
		return "No speech was detected. Please try speaking again."
	case AudioCaptureFailed:
		return "Audio capture failed. Please check your microphone and try again."
	case PermissionDenied:
		return "Microphone access denied. Please allow microphone permissions and try again."
	case NetworkUnavailable:
		return "Network error occurred. Speech recognition requires an internet connection."
	case ServiceUnavailable:
		return "Speech recognition service not allowed. This may be due to browser restrictions or network policies."
	case Aborted:
		return "Speech recognition was aborted. Please try again."
	case LanguageUnsupported:
		return "The selected language is not supported for speech recognition."
	}
	return fmt.Sprintf("Speech recognition error: %s. Please try again or use text input instead.", e.Code)
}

// UserVisible reports whether the error is shown to the user. The rest are
// logged only.
func (e *RecognitionError) UserVisible() bool {
	switch e.Reason {
	case PermissionDenied, NetworkUnavailable, ServiceUnavailable:
		return true
	}
	return false
}

// Recoverable reports whether one automatic reinitialization is attempted.
func (e *RecognitionError) Recoverable() bool {
	return e.Reason == NetworkUnavailable || e.Reason == ServiceUnavailable
}

// Unwrap exposes the domain kind so callers can match with errors.Is.
func (e *RecognitionError) Unwrap() error {
	kind := domain.KindDevice
	if e.Recoverable() {
		kind = domain.KindNetwork
	}
	return &domain.Error{Kind: kind, Op: "voice.recognition", Message: e.Message()}
}
