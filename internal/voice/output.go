package voice

import (
	"context"
	"io"
	"strings"
	"sync"

	"progenai/internal/domain"
	"progenai/internal/infra"
	"progenai/internal/notify"
)

// OutputState is the lifecycle state of an OutputSession.
type OutputState string

const (
	OutputIdle         OutputState = "idle"
	OutputSynthesizing OutputState = "synthesizing"
	OutputSpeaking     OutputState = "speaking"
)

// Synthesizer turns text into audio. target is a voice id for cloud voices
// and a language code for the local fallback.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, target string) ([]byte, error)
}

// Playback is one playing audio clip. Done yields nil when playback ends and
// an error when it fails.
type Playback interface {
	Done() <-chan error
	Stop()
	Release()
}

// Player starts playback of an audio clip.
type Player interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// SpeechSettings reports which synthesizer to use.
type SpeechSettings interface {
	CloudTTS(ctx context.Context) (enabled bool, voiceID string, err error)
	Language(ctx context.Context) (domain.Language, error)
}

type OutputOptions struct {
	Cloud    Synthesizer
	Local    Synthesizer
	Settings SpeechSettings
	Player   Player
	Notifier notify.Notifier
	Logger   *infra.Logger
	OnState  func(OutputState)
}

// OutputSession plays one utterance at a time. Speaking while an utterance
// is in flight cancels it instead of queueing.
type OutputSession struct {
	cloud    Synthesizer
	local    Synthesizer
	settings SpeechSettings
	player   Player
	notifier notify.Notifier
	logger   infra.Logger
	onState  func(OutputState)

	mu     sync.Mutex
	state  OutputState
	seq    int
	cancel context.CancelFunc
	active Playback
}

func NewOutputSession(opts OutputOptions) *OutputSession {
	return &OutputSession{
		cloud:    opts.Cloud,
		local:    opts.Local,
		settings: opts.Settings,
		player:   opts.Player,
		notifier: opts.Notifier,
		logger:   infra.OrNop(opts.Logger),
		onState:  opts.OnState,
		state:    OutputIdle,
	}
}

func (s *OutputSession) State() OutputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Speak synthesizes text and starts playback through player, or the
// session's default player when player is nil. It returns once playback has
// started. If an utterance is already in flight it is cancelled, the session
// returns to idle and Speak reports false.
func (s *OutputSession) Speak(ctx context.Context, text string, player Player) (bool, error) {
	s.mu.Lock()
	if s.state != OutputIdle {
		s.mu.Unlock()
		s.Cancel()
		return false, nil
	}
	s.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return false, domain.Validation("voice.speak", "text is empty")
	}
	if player == nil {
		player = s.player
	}
	if player == nil {
		return false, s.fail(domain.Environment("voice.speak", "no audio player available"))
	}

	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if s.state != OutputIdle {
		s.mu.Unlock()
		cancel()
		s.Cancel()
		return false, nil
	}
	s.seq++
	seq := s.seq
	s.cancel = cancel
	s.state = OutputSynthesizing
	s.mu.Unlock()
	s.emitState(OutputSynthesizing)

	synth, target, err := s.resolve(sctx)
	if err != nil {
		s.finish(seq, nil)
		return false, s.fail(err)
	}
	audio, err := synth.Synthesize(sctx, text, target)
	if err != nil {
		current := s.finish(seq, nil)
		if !current || sctx.Err() != nil {
			return false, nil
		}
		return false, s.fail(err)
	}
	pb, err := player.Play(sctx, audio)
	if err != nil {
		current := s.finish(seq, nil)
		if !current || sctx.Err() != nil {
			return false, nil
		}
		return false, s.fail(domain.Device("voice.play", err))
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		pb.Stop()
		pb.Release()
		return false, nil
	}
	s.active = pb
	s.state = OutputSpeaking
	s.mu.Unlock()
	s.emitState(OutputSpeaking)

	go s.watch(sctx, seq, pb)
	return true, nil
}

// Cancel stops any in-flight utterance and reports whether there was one.
func (s *OutputSession) Cancel() bool {
	s.mu.Lock()
	if s.state == OutputIdle {
		s.mu.Unlock()
		return false
	}
	s.seq++
	cancel, pb := s.cancel, s.active
	s.cancel, s.active = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if pb != nil {
		pb.Stop()
		pb.Release()
	}
	s.setState(OutputIdle)
	return true
}

func (s *OutputSession) watch(ctx context.Context, seq int, pb Playback) {
	select {
	case err := <-pb.Done():
		if err != nil && s.current(seq) {
			s.logger.Warn().Err(err).Msg("voice: playback failed")
			if s.notifier != nil {
				s.notifier.Notify(notify.LevelError, "Failed to play audio. Please try again.")
			}
		}
		s.finish(seq, pb)
	case <-ctx.Done():
	}
}

func (s *OutputSession) current(seq int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

// finish returns the session to idle and releases pb if seq is still the
// current utterance.
func (s *OutputSession) finish(seq int, pb Playback) bool {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return false
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel, s.active = nil, nil
	s.mu.Unlock()

	if pb != nil {
		pb.Release()
	}
	s.setState(OutputIdle)
	return true
}

func (s *OutputSession) resolve(ctx context.Context) (Synthesizer, string, error) {
	lang := domain.DefaultLanguage
	cloud, voiceID := false, ""
	if s.settings != nil {
		l, err := s.settings.Language(ctx)
		if err != nil {
			return nil, "", err
		}
		lang = l
		if cloud, voiceID, err = s.settings.CloudTTS(ctx); err != nil {
			return nil, "", err
		}
	}
	if cloud {
		if s.cloud == nil {
			return nil, "", domain.Configuration("voice.speak", "cloud speech is not configured")
		}
		if strings.TrimSpace(voiceID) == "" {
			return nil, "", domain.Configuration("voice.speak", "cloud voice id is not configured")
		}
		return s.cloud, voiceID, nil
	}
	if s.local == nil {
		return nil, "", domain.Environment("voice.speak", "speech synthesis is not available")
	}
	return s.local, lang.SpeechCode(), nil
}

func (s *OutputSession) setState(st OutputState) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.emitState(st)
	}
}

func (s *OutputSession) emitState(st OutputState) {
	if s.onState != nil {
		s.onState(st)
	}
}

func (s *OutputSession) fail(err error) error {
	if s.notifier != nil {
		s.notifier.NotifyError(err)
	}
	return err
}

// WriterPlayer hands audio to an io.Writer, such as an HTTP response that
// relays speech to a browser. Playback completes once the write returns.
type WriterPlayer struct {
	W io.Writer
}

func (p WriterPlayer) Play(ctx context.Context, audio []byte) (Playback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	_, err := p.W.Write(audio)
	if err != nil {
		return nil, err
	}
	done <- nil
	return finishedPlayback{done: done}, nil
}

type finishedPlayback struct {
	done chan error
}

func (f finishedPlayback) Done() <-chan error { return f.done }
func (f finishedPlayback) Stop()              {}
func (f finishedPlayback) Release()           {}
