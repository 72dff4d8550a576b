package roles

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/XiaoConstantine/ace-go/pkg/playbook"
)

// CurateInput carries everything the curation prompt needs.
type CurateInput struct {
	Playbook   string // current rendered playbook
	Stats      string // aggregate playbook stats line
	Context    string // question-context annotation for this step
	Reflection string // serialized reflection
	Progress   string // "epoch {e}/{E} · sample {s}/{S}"
}

// Curator converts reflections into playbook delta batches.
type Curator struct {
	llm         core.LLM
	maxAttempts int
	genOpts     []core.GenerateOption
}

// NewCurator creates a curator. maxAttempts <= 0 selects the default retry
// ceiling.
func NewCurator(llm core.LLM, maxAttempts int, opts ...core.GenerateOption) *Curator {
	return &Curator{llm: llm, maxAttempts: maxAttempts, genOpts: opts}
}

// Curate renders the curation prompt and decodes a delta batch from the
// model's JSON reply using the tolerant delta decode; malformed list
// entries are dropped and logged, never fatal.
func (c *Curator) Curate(ctx context.Context, in CurateInput) (playbook.DeltaBatch, error) {
	prompt := RenderTemplate(curatorTemplate, map[string]string{
		"playbook":   in.Playbook,
		"stats":      in.Stats,
		"context":    in.Context,
		"reflection": in.Reflection,
		"progress":   in.Progress,
	})

	obj, _, err := newStructuredCall(c.llm, prompt, c.maxAttempts).run(ctx, c.genOpts...)
	if err != nil {
		return playbook.DeltaBatch{}, err
	}

	batch, dropped := playbook.ParseDeltaBatch(obj)
	if dropped > 0 {
		logging.GetLogger().Warn(ctx, "curation dropped %d malformed delta operations", dropped)
	}
	return batch, nil
}
