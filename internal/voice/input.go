// Package voice coordinates speech capture and playback around injected
// recognition, microphone and audio capabilities.
package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"progenai/internal/domain"
	"progenai/internal/infra"
	"progenai/internal/notify"
)

// InputState is the lifecycle state of an InputSession.
type InputState string

const (
	StateIdle                 InputState = "idle"
	StateRequestingPermission InputState = "requesting-permission"
	StateListening            InputState = "listening"
	StateError                InputState = "error"
)

const (
	PermissionTimeout  = 10 * time.Second
	StartRetryDelay    = 150 * time.Millisecond
	ReinitStartDelay   = 300 * time.Millisecond
	NetworkReinitDelay = 1200 * time.Millisecond
)

// Result is one recognition hypothesis.
type Result struct {
	Transcript string
	Final      bool
}

// Events are the callbacks a Recognizer reports through. They may be called
// from any goroutine.
type Events struct {
	OnResult func(results []Result)
	OnEnd    func()
	OnError  func(code string)
}

// Recognizer is one speech-recognition engine instance bound to a locale.
type Recognizer interface {
	Start() error
	Stop()
	Abort()
}

// RecognizerFactory creates a recognizer for a locale such as "hi-IN".
type RecognizerFactory func(locale string, events Events) (Recognizer, error)

// Microphone grants capture permission. RequestPermission blocks until the
// user answers or ctx ends.
type Microphone interface {
	RequestPermission(ctx context.Context) error
}

// Environment reports whether capture is allowed to run at all.
type Environment interface {
	SecureContext() bool
	Online() bool
}

// InputOptions configures an InputSession.
type InputOptions struct {
	Recognizers RecognizerFactory
	Microphone  Microphone
	Environment Environment
	Language    domain.Language
	Notifier    notify.Notifier
	Logger      *infra.Logger

	// OnInput receives the committed input value after every change.
	OnInput func(string)
	// OnInterim receives the transient interim transcript.
	OnInterim func(string)
	// OnState receives every state transition.
	OnState func(InputState)

	// PermissionTimeout bounds the microphone permission request. Zero means
	// the PermissionTimeout constant.
	PermissionTimeout time.Duration

	Sleep     func(ctx context.Context, d time.Duration) error
	AfterFunc func(d time.Duration, f func()) func() bool
}

// InputSession manages one speech-to-text capture at a time.
type InputSession struct {
	recognizers RecognizerFactory
	mic         Microphone
	env         Environment
	notifier    notify.Notifier
	logger      infra.Logger
	onInput     func(string)
	onInterim   func(string)
	onState     func(InputState)
	permTimeout time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	afterFunc   func(d time.Duration, f func()) func() bool

	mu             sync.Mutex
	lang           domain.Language
	recognizer     Recognizer
	generation     int
	started        bool
	state          InputState
	input          string
	base           string
	finals         string
	interim        string
	ended          bool
	networkRetried bool
	cancelReinit   func() bool
	lastErr        error
}

func NewInputSession(opts InputOptions) *InputSession {
	s := &InputSession{
		recognizers: opts.Recognizers,
		mic:         opts.Microphone,
		env:         opts.Environment,
		notifier:    opts.Notifier,
		logger:      infra.OrNop(opts.Logger),
		onInput:     opts.OnInput,
		onInterim:   opts.OnInterim,
		onState:     opts.OnState,
		permTimeout: opts.PermissionTimeout,
		sleep:       opts.Sleep,
		afterFunc:   opts.AfterFunc,
		lang:        opts.Language,
		state:       StateIdle,
	}
	if !s.lang.Valid() {
		s.lang = domain.DefaultLanguage
	}
	if s.permTimeout <= 0 {
		s.permTimeout = PermissionTimeout
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.afterFunc == nil {
		s.afterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *InputSession) State() InputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Input returns the committed input value.
func (s *InputSession) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetInput replaces the committed input value, as when the user types.
func (s *InputSession) SetInput(v string) {
	s.mu.Lock()
	s.input = v
	s.mu.Unlock()
}

// Interim returns the live, uncommitted transcript.
func (s *InputSession) Interim() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interim
}

// LastError returns the most recent recognition or start failure.
func (s *InputSession) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *InputSession) Language() domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lang
}

// Start begins a capture. A session already listening is stopped first.
// Every capture runs on a recognizer that has not been started before, so
// late events from an aborted capture never reach the new one.
func (s *InputSession) Start(ctx context.Context) error {
	if s.env != nil && !s.env.SecureContext() {
		return s.fail(domain.Environment("voice.start", "speech recognition requires https or a loopback host"))
	}
	if s.env != nil && !s.env.Online() {
		return s.fail(domain.Environment("voice.start", "speech recognition requires a network connection"))
	}
	if st := s.State(); st == StateListening || st == StateRequestingPermission {
		s.Stop()
	}

	s.mu.Lock()
	fresh := s.recognizer != nil && !s.started
	s.mu.Unlock()
	if !fresh {
		if err := s.reinit(); err != nil {
			return s.fail(domain.Device("voice.start", err))
		}
	}
	s.mu.Lock()
	s.networkRetried = false
	s.mu.Unlock()
	s.setState(StateRequestingPermission)

	if s.mic != nil {
		pctx, cancel := context.WithTimeout(ctx, s.permTimeout)
		err := s.mic.RequestPermission(pctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = errors.New("microphone permission request timed out")
			}
			s.setState(StateIdle)
			return s.fail(domain.Device("voice.permission", err))
		}
	}

	s.mu.Lock()
	s.base = s.input
	s.finals = ""
	s.interim = ""
	s.ended = false
	s.lastErr = nil
	s.mu.Unlock()
	s.setState(StateListening)

	if err := s.startWithRecovery(ctx); err != nil {
		s.setState(StateIdle)
		return s.fail(domain.Device("voice.start", err))
	}
	s.logger.Debug().Str("locale", s.Language().RecognitionLocale()).Msg("voice: listening")
	return nil
}

// startWithRecovery starts the recognizer, retrying once after a short pause
// and once more after a longer one. Each retry replaces the failed recognizer.
func (s *InputSession) startWithRecovery(ctx context.Context) error {
	err := s.startCurrent()
	if err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Msg("voice: start failed, retrying")
	if err := s.sleep(ctx, StartRetryDelay); err != nil {
		return err
	}
	if err := s.reinit(); err != nil {
		return err
	}
	if err = s.startCurrent(); err == nil {
		return nil
	}
	s.logger.Warn().Err(err).Msg("voice: retry failed, reinitializing recognizer")
	if err := s.reinit(); err != nil {
		return err
	}
	if err := s.sleep(ctx, ReinitStartDelay); err != nil {
		return err
	}
	return s.startCurrent()
}

func (s *InputSession) startCurrent() error {
	s.mu.Lock()
	r := s.recognizer
	if r != nil {
		s.started = true
	}
	s.mu.Unlock()
	if r == nil {
		return errors.New("speech recognition is not available")
	}
	return r.Start()
}

// Stop ends the capture. Final speech not yet committed through the end
// callback is committed now.
func (s *InputSession) Stop() {
	s.mu.Lock()
	r := s.recognizer
	if r == nil {
		s.mu.Unlock()
		return
	}
	wasActive := s.state == StateListening
	s.mu.Unlock()

	r.Abort()
	r.Stop()

	s.mu.Lock()
	var committed *string
	if wasActive && !s.ended && strings.TrimSpace(s.finals) != "" {
		s.input = joinSpace(s.base, s.finals)
		v := s.input
		committed = &v
	}
	s.interim = ""
	s.mu.Unlock()

	if committed != nil && s.onInput != nil {
		s.onInput(*committed)
	}
	s.emitInterim("")
	s.setState(StateIdle)
}

// HandleOffline stops an active capture when connectivity is lost.
func (s *InputSession) HandleOffline() {
	if s.State() == StateListening {
		s.logger.Info().Msg("voice: network lost, stopping capture")
		s.Stop()
	}
}

// SetLanguage tears down the recognizer and creates one for lang. An active
// capture is stopped first.
func (s *InputSession) SetLanguage(lang domain.Language) error {
	if !lang.Valid() {
		return domain.Validation("voice.language", "unsupported language "+string(lang))
	}
	if s.Language() == lang {
		return nil
	}
	if st := s.State(); st == StateListening || st == StateRequestingPermission {
		s.Stop()
	}
	s.mu.Lock()
	s.lang = lang
	s.mu.Unlock()
	if s.recognizers == nil {
		return nil
	}
	if err := s.reinit(); err != nil {
		return domain.Device("voice.language", err)
	}
	return nil
}

// Close releases the recognizer and any pending reinitialization.
func (s *InputSession) Close() {
	s.Stop()
	s.mu.Lock()
	if s.cancelReinit != nil {
		s.cancelReinit()
		s.cancelReinit = nil
	}
	s.generation++
	old := s.recognizer
	s.recognizer = nil
	s.mu.Unlock()
	if old != nil {
		old.Abort()
	}
}

// reinit replaces the recognizer with one for the current language. Events
// from earlier recognizers are ignored afterwards.
func (s *InputSession) reinit() error {
	if s.recognizers == nil {
		return errors.New("speech recognition is not available")
	}
	s.mu.Lock()
	s.generation++
	gen := s.generation
	locale := s.lang.RecognitionLocale()
	old := s.recognizer
	s.recognizer = nil
	s.started = false
	s.mu.Unlock()

	if old != nil {
		old.Abort()
	}
	r, err := s.recognizers(locale, Events{
		OnResult: func(results []Result) { s.handleResults(gen, results) },
		OnEnd:    func() { s.handleEnd(gen) },
		OnError:  func(code string) { s.handleError(gen, code) },
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		r.Abort()
		return errors.New("recognizer replaced during initialization")
	}
	s.recognizer = r
	return nil
}

func (s *InputSession) handleResults(gen int, results []Result) {
	s.mu.Lock()
	if gen != s.generation || s.state != StateListening {
		s.mu.Unlock()
		return
	}
	var interim strings.Builder
	changed := false
	for _, r := range results {
		if !r.Final {
			interim.WriteString(r.Transcript)
			continue
		}
		text := strings.TrimSpace(r.Transcript)
		if text == "" {
			continue
		}
		s.input = joinSpace(s.input, text)
		s.finals = joinSpace(s.finals, text)
		changed = true
	}
	s.interim = interim.String()
	input, live := s.input, s.interim
	s.mu.Unlock()

	if changed && s.onInput != nil {
		s.onInput(input)
	}
	s.emitInterim(live)
}

func (s *InputSession) handleEnd(gen int) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.interim = ""
	s.mu.Unlock()

	s.emitInterim("")
	s.setState(StateIdle)
}

func (s *InputSession) handleError(gen int, code string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	rerr := ParseRecognitionError(code)
	s.lastErr = rerr
	s.interim = ""
	retry := rerr.Recoverable() && !s.networkRetried
	if retry {
		s.networkRetried = true
		if s.cancelReinit != nil {
			s.cancelReinit()
		}
		s.cancelReinit = s.afterFunc(NetworkReinitDelay, func() { s.reinitAfterNetworkError(gen) })
	}
	s.mu.Unlock()

	s.setState(StateError)
	ev := s.logger.Warn().Str("code", code).Str("reason", string(rerr.Reason))
	if retry {
		ev = ev.Bool("reinit_scheduled", true)
	}
	ev.Msg("voice: recognition error")
	if rerr.UserVisible() && s.notifier != nil {
		s.notifier.Notify(notify.LevelError, rerr.Message())
	}
}

func (s *InputSession) reinitAfterNetworkError(gen int) {
	s.mu.Lock()
	s.cancelReinit = nil
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}
	if err := s.reinit(); err != nil {
		s.logger.Warn().Err(err).Msg("voice: reinitialize after network error failed")
		return
	}
	s.logger.Info().Msg("voice: recognizer reinitialized after network error")
	s.Reset()
}

// Reset returns a session in the error state to idle.
func (s *InputSession) Reset() {
	if s.State() == StateError {
		s.setState(StateIdle)
	}
}

func (s *InputSession) setState(st InputState) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed && s.onState != nil {
		s.onState(st)
	}
}

func (s *InputSession) emitInterim(v string) {
	if s.onInterim != nil {
		s.onInterim(v)
	}
}

func (s *InputSession) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	if s.notifier != nil {
		s.notifier.NotifyError(err)
	}
	return err
}

func joinSpace(prefix, text string) string {
	if prefix == "" {
		return text
	}
	return prefix + " " + text
}
