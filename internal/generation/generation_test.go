package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"progenai/internal/domain"
	"progenai/internal/notify"
)

type llmFunc func(ctx context.Context, prompt string) (string, error)

func (f llmFunc) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type imageFunc func(ctx context.Context, prompt string) (*domain.ImageArtifact, error)

func (f imageFunc) GenerateImage(ctx context.Context, prompt string) (*domain.ImageArtifact, error) {
	return f(ctx, prompt)
}

type upperPlugins struct{}

func (upperPlugins) Apply(_ context.Context, text string) string {
	return strings.ToUpper(text)
}

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Notify(notify.Level, string) {}

func (n *recordingNotifier) NotifyError(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

type callLog struct {
	mu      sync.Mutex
	prompts []string
}

func (c *callLog) record(p string) {
	c.mu.Lock()
	c.prompts = append(c.prompts, p)
	c.mu.Unlock()
}

func (c *callLog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// scriptedLLM answers by recognising the prompt template.
func scriptedLLM(calls *callLog, optimized, questions, code string) llmFunc {
	return func(_ context.Context, prompt string) (string, error) {
		calls.record(prompt)
		switch {
		case strings.HasPrefix(prompt, "Based on the user's original input"):
			return questions, nil
		case strings.HasPrefix(prompt, "Generate high-quality"):
			return code, nil
		case strings.HasPrefix(prompt, "Original user input"):
			return "refined: " + optimized, nil
		default:
			return optimized, nil
		}
	}
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"1. A?\n2. B?\n3. C?\nExtra line", []string{"A?", "B?", "C?"}},
		{"Intro\n 1.  What size?\n2.\n10. Which era?", []string{"What size?", "Which era?"}},
		{"1. a\n2. b\n3. c\n4. d", []string{"a", "b", "c"}},
		{"no numbers here", []string{}},
	}
	for _, tc := range tests {
		got := ParseQuestions(tc.in)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") || len(got) != len(tc.want) {
			t.Fatalf("ParseQuestions(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSystemInstructionAddsLanguageDirective(t *testing.T) {
	got := SystemInstruction(domain.ModalityText, domain.StyleSimple, domain.LanguageHindi)
	if !strings.HasPrefix(got, "Transform the user's idea into a clear, straightforward prompt") {
		t.Fatalf("unexpected instruction: %q", got)
	}
	if !strings.Contains(got, "nothing else.\n\nImportant: Output the optimized prompt in Hindi.") {
		t.Fatalf("missing language directive: %q", got)
	}
	for _, m := range domain.Modalities {
		for _, s := range domain.Styles {
			if instructions[m][s] == "" {
				t.Fatalf("missing instruction for %s/%s", m, s)
			}
		}
	}
}

func TestRefinementPromptOrdersAnswers(t *testing.T) {
	got := RefinementPrompt("a cat", domain.AnswerSet{"B?": "two", "A?": "one", "Z?": "extra"}, []string{"A?", "B?"}, domain.ModalityImage)
	want := "Q: A?\nA: one\n\nQ: B?\nA: two\n\nQ: Z?\nA: extra"
	if !strings.Contains(got, want) {
		t.Fatalf("answers block out of order:\n%s", got)
	}
	if !strings.HasPrefix(got, "Original user input: \"a cat\"") {
		t.Fatalf("unexpected prefix: %q", got)
	}
}

func TestGenerateImageEndToEnd(t *testing.T) {
	calls := &callLog{}
	var imagePrompt string
	engine := NewEngine(Options{
		LLM: scriptedLLM(calls, "A fluffy cat, photorealistic", "1. Color?\n2. Pose?\n3. Lighting?", ""),
		Images: imageFunc(func(_ context.Context, prompt string) (*domain.ImageArtifact, error) {
			imagePrompt = prompt
			return &domain.ImageArtifact{MIME: "image/png", Width: 1024, Height: 1024, Data: []byte{1, 2, 3}}, nil
		}),
	})

	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a cat", Modality: domain.ModalityImage, Style: domain.StyleDetailed, Language: domain.LanguageEnglish,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.OptimizedPrompt != "A fluffy cat, photorealistic" {
		t.Fatalf("optimized prompt = %q", res.OptimizedPrompt)
	}
	if res.Image == nil || res.Code != nil {
		t.Fatalf("expected image artifact only: %+v", res)
	}
	if imagePrompt != res.OptimizedPrompt {
		t.Fatalf("image prompt = %q", imagePrompt)
	}
	if len(res.RefinementQuestions) != 3 || res.RefinementQuestions[1] != "Pose?" {
		t.Fatalf("questions = %q", res.RefinementQuestions)
	}
	if calls.count() != 2 {
		t.Fatalf("expected 2 language model calls, got %d", calls.count())
	}
	if !strings.HasSuffix(calls.prompts[0], "User Input: \"a cat\"") {
		t.Fatalf("unexpected optimize prompt: %q", calls.prompts[0])
	}

	snap := engine.Session().Snapshot()
	if snap.Result == nil || snap.Result.ID != res.ID || snap.Busy {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Chat) != 2 || snap.Chat[0].Content != "a cat" || snap.Chat[1].Content != "Generated prompt: A fluffy cat, photorealistic" {
		t.Fatalf("unexpected chat: %+v", snap.Chat)
	}
}

func TestGenerateAppliesPluginsBeforeOptimizing(t *testing.T) {
	calls := &callLog{}
	engine := NewEngine(Options{
		LLM:     scriptedLLM(calls, "story", "", ""),
		Plugins: upperPlugins{},
	})
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a dragon", Modality: domain.ModalityText, Style: domain.StyleCreative,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasSuffix(calls.prompts[0], "User Input: \"A DRAGON\"") {
		t.Fatalf("plugins not applied: %q", calls.prompts[0])
	}
	if res.Request.Language != domain.LanguageEnglish {
		t.Fatalf("language not defaulted: %q", res.Request.Language)
	}
	if res.HasArtifact() || len(res.RefinementQuestions) != 0 {
		t.Fatalf("text modality should have no artifact: %+v", res)
	}
	if engine.Session().History()[0].Content != "a dragon" {
		t.Fatalf("chat must record the raw input")
	}
}

func TestGenerateCodeArtifactIsVerbatim(t *testing.T) {
	calls := &callLog{}
	src := "```go\nfunc main() {}\n```"
	engine := NewEngine(Options{LLM: scriptedLLM(calls, "a CLI", "1. Language?", src)})
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "cli", Modality: domain.ModalityCode, Style: domain.StyleTechnical,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Code == nil || res.Code.Source != src {
		t.Fatalf("code artifact = %+v", res.Code)
	}
	if !strings.Contains(calls.prompts[2], "based on this prompt: \"a CLI\"") {
		t.Fatalf("unexpected code prompt: %q", calls.prompts[2])
	}
}

func TestGenerateOptimizeFailureSetsMarker(t *testing.T) {
	notifier := &recordingNotifier{}
	upstream := domain.Upstream("gemini", 503, "overloaded")
	engine := NewEngine(Options{
		LLM: llmFunc(func(context.Context, string) (string, error) {
			return "", upstream
		}),
		Notifier: notifier,
	})
	_, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "x", Modality: domain.ModalityImage, Style: domain.StyleSimple,
	})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	snap := engine.Session().Snapshot()
	if snap.Result != nil || snap.Failure == nil || snap.Failure.Kind != domain.KindUpstream {
		t.Fatalf("expected failure marker: %+v", snap)
	}
	if len(snap.Chat) != 0 {
		t.Fatalf("failed cycle must not append chat entries")
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.errs))
	}
}

func TestGenerateIsolatesQuestionAndArtifactFailures(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := NewEngine(Options{
		LLM: llmFunc(func(_ context.Context, prompt string) (string, error) {
			if strings.HasPrefix(prompt, "Based on") {
				return "", errors.New("boom")
			}
			return "A fluffy cat", nil
		}),
		Images: imageFunc(func(context.Context, string) (*domain.ImageArtifact, error) {
			return nil, domain.Generation("stability", 400, "invalid prompt")
		}),
		Notifier: notifier,
	})
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a cat", Modality: domain.ModalityImage, Style: domain.StyleDetailed,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.OptimizedPrompt != "A fluffy cat" || res.Image != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.RefinementQuestions) != 0 || res.ArtifactError != "invalid prompt" {
		t.Fatalf("unexpected degradation: %+v", res)
	}
	if len(notifier.errs) != 1 || !errors.Is(notifier.errs[0], domain.ErrGeneration) {
		t.Fatalf("expected only the artifact failure to be notified: %v", notifier.errs)
	}
	if cur := engine.Session().Current(); cur == nil || cur.ArtifactError == "" {
		t.Fatalf("current result should carry the artifact error")
	}
}

func TestGenerateImageWithoutService(t *testing.T) {
	engine := NewEngine(Options{LLM: scriptedLLM(&callLog{}, "p", "", "")})
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a cat", Modality: domain.ModalityImage, Style: domain.StyleSimple,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.ArtifactError == "" || res.Image != nil {
		t.Fatalf("expected configuration degradation: %+v", res)
	}
}

func TestGenerateValidatesBeforeCalling(t *testing.T) {
	calls := &callLog{}
	engine := NewEngine(Options{LLM: scriptedLLM(calls, "p", "", "")})
	_, err := engine.Generate(context.Background(), domain.GenerationRequest{RawInput: "  ", Modality: domain.ModalityText, Style: domain.StyleSimple})
	if !errors.Is(err, domain.ErrEmptyInput) {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if calls.count() != 0 {
		t.Fatalf("no collaborator may be called")
	}
}

func generateCat(t *testing.T, engine *Engine) *domain.GenerationResult {
	t.Helper()
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a cat", Modality: domain.ModalityImage, Style: domain.StyleDetailed,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func TestRefineWithoutAnswersIsNoop(t *testing.T) {
	calls := &callLog{}
	engine := NewEngine(Options{
		LLM: scriptedLLM(calls, "A fluffy cat", "1. Color?", ""),
		Images: imageFunc(func(context.Context, string) (*domain.ImageArtifact, error) {
			return &domain.ImageArtifact{Data: []byte{1}}, nil
		}),
	})
	before := generateCat(t, engine)
	n := calls.count()

	_, err := engine.Refine(context.Background(), domain.AnswerSet{"Color?": "   "})
	if !errors.Is(err, domain.ErrNoAnswers) {
		t.Fatalf("expected ErrNoAnswers, got %v", err)
	}
	if calls.count() != n {
		t.Fatalf("refine without answers must not call the model")
	}
	if cur := engine.Session().Current(); cur.ID != before.ID || cur.OptimizedPrompt != before.OptimizedPrompt {
		t.Fatalf("current result changed: %+v", cur)
	}
}

func TestRefineReplacesResultAndClearsAnswers(t *testing.T) {
	calls := &callLog{}
	images := 0
	engine := NewEngine(Options{
		LLM: scriptedLLM(calls, "A fluffy cat", "1. Color?\n2. Pose?", ""),
		Images: imageFunc(func(context.Context, string) (*domain.ImageArtifact, error) {
			images++
			return &domain.ImageArtifact{Data: []byte{1}}, nil
		}),
	})
	generateCat(t, engine)
	if err := engine.Session().SetAnswer("Pose?", "sitting"); err != nil {
		t.Fatalf("SetAnswer: %v", err)
	}
	if err := engine.Session().SetAnswer("Unknown?", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown question, got %v", err)
	}

	res, err := engine.Refine(context.Background(), domain.AnswerSet{"Color?": "orange"})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if res.OptimizedPrompt != "refined: A fluffy cat" || !res.Refined || len(res.RefinementQuestions) != 0 {
		t.Fatalf("unexpected refined result: %+v", res)
	}
	refinePrompt := calls.prompts[len(calls.prompts)-1]
	if !strings.Contains(refinePrompt, "Q: Color?\nA: orange\n\nQ: Pose?\nA: sitting") {
		t.Fatalf("refine prompt missing answers: %q", refinePrompt)
	}
	if images != 2 || res.Image == nil {
		t.Fatalf("image should be regenerated for the refined prompt")
	}
	snap := engine.Session().Snapshot()
	if len(snap.Answers) != 0 {
		t.Fatalf("answers should be cleared: %v", snap.Answers)
	}
	last := snap.Chat[len(snap.Chat)-1]
	if len(snap.Chat) != 3 || last.Role != domain.RoleAssistant || last.Content != "Refined prompt: refined: A fluffy cat" {
		t.Fatalf("unexpected chat after refine: %+v", snap.Chat)
	}
}

func TestRefineFailureKeepsPreviousResult(t *testing.T) {
	notifier := &recordingNotifier{}
	fail := false
	engine := NewEngine(Options{
		LLM: llmFunc(func(_ context.Context, prompt string) (string, error) {
			if fail {
				return "", domain.Network("gemini", errors.New("offline"))
			}
			if strings.HasPrefix(prompt, "Based on") {
				return "1. Color?", nil
			}
			return "A fluffy cat", nil
		}),
		Notifier: notifier,
	})
	res, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "a cat", Modality: domain.ModalityText, Style: domain.StyleDetailed,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fail = true
	if _, err := engine.Refine(context.Background(), domain.AnswerSet{"Color?": "orange"}); !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	snap := engine.Session().Snapshot()
	if snap.Result == nil || snap.Result.ID != res.ID || snap.Failure != nil {
		t.Fatalf("previous result must stay: %+v", snap)
	}
	if len(snap.Result.RefinementQuestions) != 1 || len(snap.Chat) != 2 {
		t.Fatalf("unexpected state after failed refine: %+v", snap)
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("refine failure should be notified")
	}
}

func TestStaleCycleDoesNotReplaceCurrent(t *testing.T) {
	blocked := make(chan struct{})
	release := make(chan struct{})
	engine := NewEngine(Options{
		LLM: llmFunc(func(_ context.Context, prompt string) (string, error) {
			if strings.HasSuffix(prompt, "User Input: \"first\"") {
				close(blocked)
				<-release
				return "first prompt", nil
			}
			if strings.HasPrefix(prompt, "Based on") {
				return "1. Q?", nil
			}
			return "second prompt", nil
		}),
	})

	done := make(chan *domain.GenerationResult)
	go func() {
		res, err := engine.Generate(context.Background(), domain.GenerationRequest{
			RawInput: "first", Modality: domain.ModalityText, Style: domain.StyleSimple,
		})
		if err != nil {
			t.Errorf("first Generate: %v", err)
		}
		done <- res
	}()
	<-blocked

	second, err := engine.Generate(context.Background(), domain.GenerationRequest{
		RawInput: "second", Modality: domain.ModalityText, Style: domain.StyleSimple,
	})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	close(release)
	first := <-done

	if first == nil || first.OptimizedPrompt != "first prompt" {
		t.Fatalf("stale cycle should still return its result: %+v", first)
	}
	cur := engine.Session().Current()
	if cur.ID != second.ID || cur.OptimizedPrompt != "second prompt" {
		t.Fatalf("stale completion replaced the current result: %+v", cur)
	}
	if n := len(engine.Session().History()); n != 4 {
		t.Fatalf("both cycles should be in the chat, got %d entries", n)
	}
}
