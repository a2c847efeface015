package plugins

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Sandbox compiles and runs plugin transforms as expr expressions. A
// transform sees only `prompt` (the running text) and `config` (the
// plugin's own settings) and must evaluate to a string.
type Sandbox struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

func NewSandbox() *Sandbox {
	return &Sandbox{programs: make(map[string]*vm.Program)}
}

func sandboxEnv(prompt string, config map[string]any) map[string]any {
	if config == nil {
		config = map[string]any{}
	}
	return map[string]any{
		"prompt": prompt,
		"config": config,
	}
}

// Compile checks that code is a valid transform. Compiled programs are cached
// by source text.
func (s *Sandbox) Compile(code string) (*vm.Program, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("plugins: transform code is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.programs[code]; ok {
		return p, nil
	}
	program, err := expr.Compile(code,
		expr.Env(sandboxEnv("", nil)),
		expr.AsKind(reflect.String),
	)
	if err != nil {
		return nil, fmt.Errorf("plugins: compile transform: %w", err)
	}
	s.programs[code] = program
	return program, nil
}

// Run evaluates code against text and config and returns the new text.
func (s *Sandbox) Run(code, text string, config map[string]any) (out string, err error) {
	program, err := s.Compile(code)
	if err != nil {
		return "", err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugins: transform panicked: %v", r)
		}
	}()
	result, err := expr.Run(program, sandboxEnv(text, config))
	if err != nil {
		return "", fmt.Errorf("plugins: run transform: %w", err)
	}
	str, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("plugins: transform returned %T, want string", result)
	}
	return str, nil
}
