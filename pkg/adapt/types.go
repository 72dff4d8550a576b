// Package adapt orchestrates the adaptation loop: for each task sample it
// generates an attempt against the current playbook, has an evaluator judge
// the attempt, reflects on the verdict, and curates the reflection into a
// playbook delta. An offline driver repeats the sample sequence over epochs;
// an online driver consumes each sample exactly once.
package adapt

import (
	"context"

	"github.com/XiaoConstantine/ace-go/pkg/playbook"
	"github.com/XiaoConstantine/ace-go/pkg/roles"
)

// Sample is one task instance fed to the loop.
type Sample struct {
	Question string                 `json:"question"`
	Context  string                 `json:"context,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Evaluation is the evaluator's verdict on one attempt.
type Evaluation struct {
	Feedback    string             `json:"feedback"`
	GroundTruth string             `json:"ground_truth,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Evaluator scores an attempt against its sample. One call per step. The
// loop propagates evaluator errors unchanged and aborts the current step.
type Evaluator interface {
	Evaluate(ctx context.Context, sample Sample, attempt *roles.Attempt) (Evaluation, error)
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, sample Sample, attempt *roles.Attempt) (Evaluation, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, sample Sample, attempt *roles.Attempt) (Evaluation, error) {
	return f(ctx, sample, attempt)
}

// StepRecord captures everything one completed step produced: the inputs,
// all three role outputs, what the delta did, and the playbook's rendering
// after the step.
type StepRecord struct {
	ID string `json:"id"`

	Epoch        int `json:"epoch"`
	TotalEpochs  int `json:"total_epochs"`
	SampleIndex  int `json:"sample_index"`
	TotalSamples int `json:"total_samples"`

	Sample     Sample               `json:"sample"`
	Attempt    roles.Attempt        `json:"attempt"`
	Evaluation Evaluation           `json:"evaluation"`
	Reflection roles.Reflection     `json:"reflection"`
	Delta      playbook.DeltaBatch  `json:"delta"`
	Applied    playbook.ApplyReport `json:"applied"`

	PlaybookAfter string `json:"playbook_after"`
}
