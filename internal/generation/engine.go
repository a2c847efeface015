// Package generation orchestrates one generation cycle: plugin transforms,
// prompt optimization, refinement questions and the image or code artifact,
// plus the single refinement pass that follows.
//
// Generation and refinement calls are not cancelled when a newer cycle
// starts. The earlier call runs to completion and returns to its caller, but
// its result never replaces the one published by a later cycle.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"progenai/internal/domain"
	"progenai/internal/infra"
	"progenai/internal/notify"
	"progenai/internal/providers/llm"
)

// ImageGenerator produces an image artifact from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (*domain.ImageArtifact, error)
}

// Transformer rewrites raw input before optimization.
type Transformer interface {
	Apply(ctx context.Context, text string) string
}

type Options struct {
	LLM      llm.Client
	Images   ImageGenerator
	Plugins  Transformer
	Session  *Session
	Notifier notify.Notifier
	Logger   *infra.Logger
}

type Engine struct {
	llm      llm.Client
	images   ImageGenerator
	plugins  Transformer
	session  *Session
	notifier notify.Notifier
	logger   infra.Logger
	now      func() time.Time
}

func NewEngine(opts Options) *Engine {
	session := opts.Session
	if session == nil {
		session = NewSession()
	}
	return &Engine{
		llm:      opts.LLM,
		images:   opts.Images,
		plugins:  opts.Plugins,
		session:  session,
		notifier: opts.Notifier,
		logger:   infra.OrNop(opts.Logger),
		now:      time.Now,
	}
}

func (e *Engine) Session() *Session {
	return e.session
}

// Generate runs a full cycle for req. Only a failed optimization call fails
// the cycle; question and artifact failures leave the optimized prompt in
// place. The current result is published after each step while the cycle is
// still the latest.
func (e *Engine) Generate(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.llm == nil {
		return nil, domain.Configuration("generate", "no language model configured")
	}
	if !req.Language.Valid() {
		req.Language = domain.DefaultLanguage
	}

	cycle := e.session.begin()
	defer e.session.end(cycle)
	log := e.logger.With().
		Uint64("cycle", cycle).
		Str("modality", string(req.Modality)).
		Str("style", string(req.Style)).
		Logger()

	processed := req.RawInput
	if e.plugins != nil {
		processed = e.plugins.Apply(ctx, req.RawInput)
	}

	instruction := SystemInstruction(req.Modality, req.Style, req.Language)
	optimized, err := e.llm.GenerateContent(ctx, OptimizePrompt(instruction, processed))
	if err != nil {
		err = fmt.Errorf("generation: optimize: %w", err)
		if e.session.fail(cycle, err) {
			e.notifyError(err)
		} else {
			log.Warn().Err(err).Msg("stale generation failed")
		}
		return nil, err
	}

	result := &domain.GenerationResult{
		ID:                  uuid.NewString(),
		Request:             req,
		OptimizedPrompt:     optimized,
		RefinementQuestions: []string{},
		CreatedAt:           e.now().UTC(),
	}
	e.session.appendChat(domain.RoleUser, req.RawInput)
	e.session.appendChat(domain.RoleAssistant, "Generated prompt: "+optimized)
	e.publish(cycle, result, log)

	questions, err := e.llm.GenerateContent(ctx, QuestionPrompt(req.RawInput, optimized, req.Language, req.Modality))
	if err != nil {
		log.Warn().Err(err).Msg("refinement questions failed")
	} else {
		result.RefinementQuestions = ParseQuestions(questions)
		e.publish(cycle, result, log)
	}

	if e.attachArtifact(ctx, cycle, result, false, log) {
		e.publish(cycle, result, log)
	}
	log.Info().Int("questions", len(result.RefinementQuestions)).Bool("artifact", result.HasArtifact()).Msg("generation complete")
	return result.Clone(), nil
}

// Refine folds the answered questions into a new optimized prompt that
// supersedes the current result. Answers passed in are merged over the
// pending ones. Without any non-blank answer it returns ErrNoAnswers and
// calls nothing. A failed refinement call leaves the current result as is.
func (e *Engine) Refine(ctx context.Context, answers domain.AnswerSet) (*domain.GenerationResult, error) {
	merged := e.session.Answers()
	for q, a := range answers {
		merged[q] = a
	}
	answered := merged.Answered()
	if len(answered) == 0 {
		return nil, domain.ErrNoAnswers
	}
	base := e.session.Current()
	if base == nil {
		return nil, domain.Validation("refine", "nothing to refine yet")
	}
	if e.llm == nil {
		return nil, domain.Configuration("refine", "no language model configured")
	}

	cycle := e.session.begin()
	defer e.session.end(cycle)
	log := e.logger.With().
		Uint64("cycle", cycle).
		Str("modality", string(base.Request.Modality)).
		Int("answers", len(answered)).
		Logger()

	prompt := RefinementPrompt(base.Request.RawInput, answered, base.RefinementQuestions, base.Request.Modality)
	refined, err := e.llm.GenerateContent(ctx, prompt)
	if err != nil {
		err = fmt.Errorf("generation: refine: %w", err)
		if e.session.isCurrent(cycle) {
			e.notifyError(err)
		} else {
			log.Warn().Err(err).Msg("stale refinement failed")
		}
		return nil, err
	}

	result := &domain.GenerationResult{
		ID:                  uuid.NewString(),
		Request:             base.Request,
		OptimizedPrompt:     refined,
		RefinementQuestions: []string{},
		Refined:             true,
		CreatedAt:           e.now().UTC(),
	}
	e.session.appendChat(domain.RoleAssistant, "Refined prompt: "+refined)
	e.publish(cycle, result, log)

	if e.attachArtifact(ctx, cycle, result, true, log) {
		e.publish(cycle, result, log)
	}
	log.Info().Bool("artifact", result.HasArtifact()).Msg("refinement complete")
	return result.Clone(), nil
}

// attachArtifact runs the modality's artifact step and reports whether the
// result changed.
func (e *Engine) attachArtifact(ctx context.Context, cycle uint64, result *domain.GenerationResult, refined bool, log zerolog.Logger) bool {
	var err error
	switch result.Request.Modality {
	case domain.ModalityImage:
		if e.images == nil {
			err = domain.Configuration("generate image", "no image service configured")
			break
		}
		var img *domain.ImageArtifact
		img, err = e.images.GenerateImage(ctx, result.OptimizedPrompt)
		if err == nil {
			result.Image = img
		}
	case domain.ModalityCode:
		var src string
		src, err = e.llm.GenerateContent(ctx, CodePrompt(result.OptimizedPrompt, refined))
		if err == nil {
			result.Code = &domain.CodeArtifact{Source: src}
		}
	default:
		return false
	}
	if err != nil {
		result.ArtifactError = artifactMessage(err)
		log.Warn().Err(err).Msg("artifact generation failed")
		if e.session.isCurrent(cycle) {
			e.notifyError(err)
		}
	}
	return true
}

func (e *Engine) publish(cycle uint64, result *domain.GenerationResult, log zerolog.Logger) {
	if !e.session.publish(cycle, result) {
		log.Warn().Str("result", result.ID).Msg("discarding stale completion")
	}
}

func (e *Engine) notifyError(err error) {
	if e.notifier != nil {
		e.notifier.NotifyError(err)
	}
}

func artifactMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
