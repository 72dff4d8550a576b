// Package roles implements the three model roles of the adaptation loop
// (attempt generation, reflection, delta curation) on top of a shared
// structured-generation protocol: render a template, ask the completion
// backend for a JSON object, retry with a corrective suffix when the output
// does not parse, and fail terminally with the offending text once the
// retry ceiling is spent.
package roles

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/core"
)

// Attempt is the model's answer to one task sample.
type Attempt struct {
	Reasoning   string   `json:"reasoning"`
	FinalAnswer string   `json:"final_answer"`
	UsedBullets []string `json:"used_bullets,omitempty"`
}

// GenerateInput carries everything the attempt prompt needs.
type GenerateInput struct {
	Question    string
	Context     string
	Playbook    string   // current rendered playbook
	Reflections []string // rolling window of recent serialized reflections
}

// Generator produces attempts using the current playbook.
type Generator struct {
	llm         core.LLM
	maxAttempts int
	genOpts     []core.GenerateOption
}

// NewGenerator creates an attempt generator. maxAttempts <= 0 selects the
// default retry ceiling.
func NewGenerator(llm core.LLM, maxAttempts int, opts ...core.GenerateOption) *Generator {
	return &Generator{llm: llm, maxAttempts: maxAttempts, genOpts: opts}
}

// Generate renders the attempt prompt and extracts the attempt fields from
// the model's JSON reply. Any JSON object satisfies the protocol; missing
// fields yield zero values, only JSON-syntax failures are retried.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) (*Attempt, error) {
	prompt := RenderTemplate(generatorTemplate, map[string]string{
		"playbook":    in.Playbook,
		"reflections": joinLines(in.Reflections),
		"question":    in.Question,
		"context":     in.Context,
	})

	obj, _, err := newStructuredCall(g.llm, prompt, g.maxAttempts).run(ctx, g.genOpts...)
	if err != nil {
		return nil, err
	}

	return &Attempt{
		Reasoning:   fieldString(obj, "reasoning"),
		FinalAnswer: fieldString(obj, "final_answer"),
		UsedBullets: asStringSlice(obj["used_bullets"]),
	}, nil
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
