package adapt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	"github.com/XiaoConstantine/ace-go/pkg/playbook"
	"github.com/XiaoConstantine/ace-go/pkg/roles"
)

// DefaultReflectionWindow bounds how many recent serialized reflections are
// carried into future attempt prompts.
const DefaultReflectionWindow = 3

// Option tunes an Adapter.
type Option func(*Adapter)

// WithMaxAttempts sets the structured-output retry ceiling for all three
// roles.
func WithMaxAttempts(n int) Option {
	return func(a *Adapter) { a.maxAttempts = n }
}

// WithRefinementRounds sets how many reflection rounds run per step.
func WithRefinementRounds(n int) Option {
	return func(a *Adapter) { a.rounds = n }
}

// WithReflectionWindow sets the rolling reflection window size. Zero keeps
// no reflection context between steps.
func WithReflectionWindow(n int) Option {
	return func(a *Adapter) { a.windowSize = n }
}

// WithGenerateOptions forwards completion options to every role call.
func WithGenerateOptions(opts ...core.GenerateOption) Option {
	return func(a *Adapter) { a.genOpts = opts }
}

// Adapter runs adaptation steps against a single playbook. Steps execute
// strictly sequentially; the playbook is mutated only between role calls by
// the calling goroutine. Sharing one Adapter or its playbook across
// concurrent loops is unsupported.
type Adapter struct {
	playbook  *playbook.Playbook
	evaluator Evaluator

	generator *roles.Generator
	reflector *roles.Reflector
	curator   *roles.Curator

	maxAttempts int
	rounds      int
	genOpts     []core.GenerateOption

	windowSize int
	window     []string
}

// New creates an adapter that drives the three roles over llm and judges
// attempts with evaluator.
func New(pb *playbook.Playbook, llm core.LLM, evaluator Evaluator, opts ...Option) *Adapter {
	a := &Adapter{
		playbook:   pb,
		evaluator:  evaluator,
		windowSize: DefaultReflectionWindow,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.generator = roles.NewGenerator(llm, a.maxAttempts, a.genOpts...)
	a.reflector = roles.NewReflector(llm, a.maxAttempts, a.rounds, a.genOpts...)
	a.curator = roles.NewCurator(llm, a.maxAttempts, a.genOpts...)
	return a
}

// Playbook returns the store this adapter mutates.
func (a *Adapter) Playbook() *playbook.Playbook {
	return a.playbook
}

// runStep executes one full adaptation step. A terminal failure from any
// role or the evaluator aborts the step with no partial record.
func (a *Adapter) runStep(ctx context.Context, sample Sample, epoch, totalEpochs, sampleIndex, totalSamples int) (*StepRecord, error) {
	logger := logging.GetLogger()

	attempt, err := a.generator.Generate(ctx, roles.GenerateInput{
		Question:    sample.Question,
		Context:     sample.Context,
		Playbook:    a.playbook.Render(),
		Reflections: a.window,
	})
	if err != nil {
		return nil, err
	}

	evaluation, err := a.evaluator.Evaluate(ctx, sample, attempt)
	if err != nil {
		return nil, err
	}

	reflection, err := a.reflector.Reflect(ctx, roles.ReflectInput{
		Question:    sample.Question,
		Context:     sample.Context,
		Attempt:     formatAttempt(attempt),
		Feedback:    evaluation.Feedback,
		GroundTruth: evaluation.GroundTruth,
		Playbook:    a.playbook.Render(),
	})
	if err != nil {
		return nil, err
	}
	if reflection.Degraded {
		logger.Warn(ctx, "reflection for sample %d/%d carried no tags or insight; curating anyway", sampleIndex, totalSamples)
	}

	for _, tag := range reflection.BulletTags {
		if _, err := a.playbook.Tag(tag.BulletID, tag.Tag, 1); err != nil {
			logger.Debug(ctx, "skipping reflection tag %s on %s: %v", tag.Tag, tag.BulletID, err)
		}
	}

	a.pushReflection(reflection.Serialize())

	batch, err := a.curator.Curate(ctx, roles.CurateInput{
		Playbook:   a.playbook.Render(),
		Stats:      a.playbook.Stats().String(),
		Context:    buildQuestionContext(sample, evaluation),
		Reflection: reflection.Serialize(),
		Progress:   fmt.Sprintf("epoch %d/%d · sample %d/%d", epoch, totalEpochs, sampleIndex, totalSamples),
	})
	if err != nil {
		return nil, err
	}

	report := a.playbook.ApplyDelta(batch)
	if report.Skipped > 0 {
		logger.Debug(ctx, "delta application skipped %d of %d operations", report.Skipped, len(batch.Operations))
	}

	return &StepRecord{
		ID:            uuid.NewString(),
		Epoch:         epoch,
		TotalEpochs:   totalEpochs,
		SampleIndex:   sampleIndex,
		TotalSamples:  totalSamples,
		Sample:        sample,
		Attempt:       *attempt,
		Evaluation:    evaluation,
		Reflection:    *reflection,
		Delta:         batch,
		Applied:       report,
		PlaybookAfter: a.playbook.Render(),
	}, nil
}

func (a *Adapter) pushReflection(serialized string) {
	if a.windowSize <= 0 {
		return
	}
	a.window = append(a.window, serialized)
	if len(a.window) > a.windowSize {
		a.window = a.window[len(a.window)-a.windowSize:]
	}
}

func formatAttempt(attempt *roles.Attempt) string {
	return "final answer: " + attempt.FinalAnswer + "\nreasoning: " + attempt.Reasoning
}

// buildQuestionContext renders the fixed key: value annotation fed to the
// curation prompt. The ground truth line appears only when one exists.
func buildQuestionContext(sample Sample, evaluation Evaluation) string {
	metadata := sample.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	encoded, _ := json.Marshal(metadata)

	out := "question: " + sample.Question +
		"\ncontext: " + sample.Context +
		"\nmetadata: " + string(encoded) +
		"\nfeedback: " + evaluation.Feedback
	if evaluation.GroundTruth != "" {
		out += "\nground truth: " + evaluation.GroundTruth
	}
	return out
}
