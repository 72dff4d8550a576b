package roles

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
)

// DefaultRefinementRounds is how many reflection rounds run before the
// best candidate so far is accepted.
const DefaultRefinementRounds = 1

// BulletTag is one credit-assignment judgment: a bullet identity plus the
// counter it should receive.
type BulletTag struct {
	BulletID string `json:"bullet_id"`
	Tag      string `json:"tag"`
}

// Reflection is the structured analysis of one attempt.
type Reflection struct {
	Analysis   string      `json:"analysis"`
	KeyInsight string      `json:"key_insight"`
	BulletTags []BulletTag `json:"bullet_tags,omitempty"`

	// Degraded marks a reflection accepted without meeting the bar of a
	// non-empty tag list or key insight: every round parsed but none
	// qualified, and the last candidate was returned anyway.
	Degraded bool `json:"-"`
}

// Serialize renders the reflection as the compact JSON kept in the
// rolling window for future prompting context.
func (r *Reflection) Serialize() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// ReflectInput carries everything the reflection prompt needs.
type ReflectInput struct {
	Question    string
	Context     string
	Attempt     string // the attempt's final answer plus reasoning
	Feedback    string // evaluator feedback
	GroundTruth string
	Playbook    string
}

// Reflector analyzes evaluated attempts over one or more refinement rounds.
type Reflector struct {
	llm         core.LLM
	maxAttempts int
	rounds      int
	genOpts     []core.GenerateOption
}

// NewReflector creates a reflector. Non-positive maxAttempts or rounds
// select the defaults.
func NewReflector(llm core.LLM, maxAttempts, rounds int, opts ...core.GenerateOption) *Reflector {
	if rounds <= 0 {
		rounds = DefaultRefinementRounds
	}
	return &Reflector{llm: llm, maxAttempts: maxAttempts, rounds: rounds, genOpts: opts}
}

// Reflect runs up to the configured number of refinement rounds, each with
// the standard parse-retry cycle. A round's result is final once it carries
// bullet tags or a key insight. When no round meets that bar the last
// successfully parsed candidate is returned marked Degraded; when every
// round fails to parse the reflection fails terminally.
func (r *Reflector) Reflect(ctx context.Context, in ReflectInput) (*Reflection, error) {
	logger := logging.GetLogger()

	prompt := RenderTemplate(reflectorTemplate, map[string]string{
		"playbook":     in.Playbook,
		"question":     in.Question,
		"context":      in.Context,
		"attempt":      in.Attempt,
		"feedback":     in.Feedback,
		"ground_truth": in.GroundTruth,
	})

	var last *Reflection
	var lastErr error

	for round := 1; round <= r.rounds; round++ {
		obj, _, err := newStructuredCall(r.llm, prompt, r.maxAttempts).run(ctx, r.genOpts...)
		if err != nil {
			if errors.CodeOf(err) != errors.RetryExhausted {
				// Provider failure, not malformed output.
				return nil, err
			}
			lastErr = err
			logger.Debug(ctx, "reflection round %d/%d failed to parse", round, r.rounds)
			continue
		}

		candidate := extractReflection(obj)
		if len(candidate.BulletTags) > 0 || candidate.KeyInsight != "" {
			return candidate, nil
		}
		last = candidate
	}

	if last != nil {
		last.Degraded = true
		return last, nil
	}
	return nil, lastErr
}

func extractReflection(obj map[string]interface{}) *Reflection {
	refl := &Reflection{
		Analysis:   fieldString(obj, "analysis"),
		KeyInsight: fieldString(obj, "key_insight"),
	}

	tags, _ := obj["bullet_tags"].([]interface{})
	for _, entry := range tags {
		tagObj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		id := fieldString(tagObj, "bullet_id")
		if id == "" {
			id = fieldString(tagObj, "id")
		}
		tag := strings.ToLower(fieldString(tagObj, "tag"))
		if id == "" || tag == "" {
			continue
		}
		refl.BulletTags = append(refl.BulletTags, BulletTag{BulletID: id, Tag: tag})
	}

	return refl
}
