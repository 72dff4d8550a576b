package llms

import (
	"context"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// ScriptedLLM is a deterministic core.LLM for tests: it returns a
// pre-defined sequence of responses in order and fails loudly when the
// queue is exhausted, so a test that issues more completion calls than it
// scripted cannot pass silently.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	callCount int
	prompts   []string
	*core.BaseLLM
}

// NewScriptedLLM creates a scripted backend that replies with the given
// responses in order.
func NewScriptedLLM(responses ...string) *ScriptedLLM {
	return &ScriptedLLM{
		responses: responses,
		BaseLLM:   core.NewBaseLLM("scripted", "scripted", nil),
	}
}

// Generate pops the next scripted response or returns the configured error.
func (s *ScriptedLLM) Generate(ctx context.Context, prompt string, options ...core.GenerateOption) (*core.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	s.prompts = append(s.prompts, prompt)

	if s.err != nil {
		return nil, s.err
	}

	if len(s.responses) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.LLMGenerationFailed, "scripted backend: response queue exhausted"),
			errors.Fields{"calls": s.callCount})
	}

	content := s.responses[0]
	s.responses = s.responses[1:]

	return &core.LLMResponse{
		Content: content,
		Usage: &core.TokenInfo{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	}, nil
}

// AddResponse appends a response to the queue.
func (s *ScriptedLLM) AddResponse(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, response)
}

// FailWith makes every subsequent call return err, simulating a provider
// outage.
func (s *ScriptedLLM) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// CallCount reports how many times Generate has been called.
func (s *ScriptedLLM) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// Prompts returns a copy of every prompt seen so far.
func (s *ScriptedLLM) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}
