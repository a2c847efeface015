package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies failures so callers can decide how to surface them.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindEnvironment   Kind = "environment"
	KindDevice        Kind = "device"
	KindNetwork       Kind = "network"
	KindUpstream      Kind = "upstream"
	KindValidation    Kind = "validation"
	KindGeneration    Kind = "generation"
)

var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrEnvironment   = &Error{Kind: KindEnvironment}
	ErrDevice        = &Error{Kind: KindDevice}
	ErrNetwork       = &Error{Kind: KindNetwork}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrGeneration    = &Error{Kind: KindGeneration}

	ErrEmptyInput = Validation("generate", "input is empty")
	ErrNoAnswers  = Validation("refine", "no refinement answers supplied")
	ErrNotFound   = errors.New("not found")
)

// Error is the typed failure returned by the core. Status and Message carry
// the upstream response when Kind is upstream or generation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.Status)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind. Op and Message narrow the match
// when set on the target.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

func Configuration(op, msg string) error {
	return &Error{Kind: KindConfiguration, Op: op, Message: msg}
}

func Environment(op, msg string) error {
	return &Error{Kind: KindEnvironment, Op: op, Message: msg}
}

func Device(op string, err error) error {
	return &Error{Kind: KindDevice, Op: op, Err: err}
}

func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Message: msg}
}

func Upstream(op string, status int, body string) error {
	return &Error{Kind: KindUpstream, Op: op, Status: status, Message: strings.TrimSpace(body)}
}

func Generation(op string, status int, msg string) error {
	return &Error{Kind: KindGeneration, Op: op, Status: status, Message: strings.TrimSpace(msg)}
}

// KindOf reports the Kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
