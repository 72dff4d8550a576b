package adapt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/llms"
	"github.com/XiaoConstantine/ace-go/pkg/playbook"
	"github.com/XiaoConstantine/ace-go/pkg/roles"
)

// exactMatchEvaluator marks an attempt correct when its final answer equals
// the expected string, which it also reports as ground truth.
func exactMatchEvaluator(expected string) Evaluator {
	return EvaluatorFunc(func(ctx context.Context, sample Sample, attempt *roles.Attempt) (Evaluation, error) {
		feedback := "incorrect"
		if attempt.FinalAnswer == expected {
			feedback = "correct"
		}
		return Evaluation{Feedback: feedback, GroundTruth: expected}, nil
	})
}

// scriptStep queues one clean step's worth of responses: an attempt, a
// reflection, and a curation delta.
func scriptStep(llm *llms.ScriptedLLM, answer, insight string, ops ...map[string]interface{}) {
	llm.AddResponse(fmt.Sprintf(`{"reasoning": "thinking", "final_answer": %q}`, answer))
	llm.AddResponse(fmt.Sprintf(`{"analysis": "reviewed", "key_insight": %q}`, insight))

	curation := map[string]interface{}{"reasoning": "curated", "operations": ops}
	data, _ := json.Marshal(curation)
	llm.AddResponse(string(data))
}

func TestSingleStepGrowsPlaybook(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM()
	scriptStep(llm, "42", "default to 42 when the question is universal",
		map[string]interface{}{
			"type":    "ADD",
			"section": "default_answers",
			"content": "default to 42 when the question is universal",
		})

	pb := playbook.New()
	adapter := New(pb, llm, exactMatchEvaluator("42"))

	records, err := adapter.RunOffline(ctx, []Sample{{Question: "what is the answer to everything?"}}, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	stats := pb.Stats()
	assert.Equal(t, 1, stats.Bullets)
	assert.Equal(t, 1, stats.Sections)
	assert.Contains(t, pb.Render(), "default to 42 when the question is universal")
	assert.Contains(t, pb.Render(), "## default_answers")

	record := records[0]
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, 1, record.Epoch)
	assert.Equal(t, 1, record.TotalEpochs)
	assert.Equal(t, 1, record.SampleIndex)
	assert.Equal(t, 1, record.TotalSamples)
	assert.Equal(t, "42", record.Attempt.FinalAnswer)
	assert.Equal(t, "correct", record.Evaluation.Feedback)
	assert.Equal(t, "default to 42 when the question is universal", record.Reflection.KeyInsight)
	assert.Equal(t, 1, record.Applied.Applied)
	assert.Equal(t, pb.Render(), record.PlaybookAfter)
}

func TestCurationPromptCarriesProgressAndAnnotation(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM()
	scriptStep(llm, "yes", "insight")

	adapter := New(playbook.New(), llm, exactMatchEvaluator("yes"))

	samples := []Sample{{
		Question: "is water wet?",
		Context:  "physics trivia",
		Metadata: map[string]interface{}{"difficulty": "easy"},
	}}
	_, err := adapter.RunOffline(ctx, samples, 1)
	require.NoError(t, err)

	prompts := llm.Prompts()
	require.Len(t, prompts, 3)

	curationPrompt := prompts[2]
	assert.Contains(t, curationPrompt, "epoch 1/1 · sample 1/1")
	assert.Contains(t, curationPrompt,
		"question: is water wet?\n"+
			"context: physics trivia\n"+
			"metadata: {\"difficulty\":\"easy\"}\n"+
			"feedback: correct\n"+
			"ground truth: yes")
	assert.Contains(t, curationPrompt, "sections=0 bullets=0")
}

func TestReflectionTagsApplyBeforeCuration(t *testing.T) {
	ctx := context.Background()

	pb := playbook.New()
	seeded := pb.Add("math", "check your units")

	llm := llms.NewScriptedLLM(
		`{"reasoning": "r", "final_answer": "41"}`,
		fmt.Sprintf(`{
			"analysis": "the units bullet was ignored",
			"key_insight": "",
			"bullet_tags": [
				{"bullet_id": %q, "tag": "harmful"},
				{"bullet_id": "no-such-bullet", "tag": "helpful"},
				{"bullet_id": %q, "tag": "bogus"}
			]
		}`, seeded.ID, seeded.ID),
		`{"operations": []}`,
	)

	adapter := New(pb, llm, exactMatchEvaluator("42"))
	records, err := adapter.RunOffline(ctx, []Sample{{Question: "q"}}, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The valid tag landed; the unknown bullet and unknown tag name were
	// skipped without failing the step.
	bullet, ok := pb.Get(seeded.ID)
	require.True(t, ok)
	assert.Equal(t, 1, bullet.Harmful)
	assert.Equal(t, 0, bullet.Helpful)

	// The curation prompt sees the post-tag playbook.
	assert.Contains(t, llm.Prompts()[2], "harmful=1")
}

func TestReflectionWindowEvictsOldest(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM()
	for i := 1; i <= 5; i++ {
		scriptStep(llm, "a", fmt.Sprintf("insight-%d", i))
	}

	adapter := New(playbook.New(), llm, exactMatchEvaluator("a"),
		WithReflectionWindow(3))

	samples := make([]Sample, 5)
	for i := range samples {
		samples[i] = Sample{Question: fmt.Sprintf("q%d", i+1)}
	}
	_, err := adapter.RunOnline(ctx, samples)
	require.NoError(t, err)

	// The 5th attempt prompt carries reflections 2..4 only.
	prompts := llm.Prompts()
	require.Len(t, prompts, 15)
	fifthAttempt := prompts[12]
	assert.NotContains(t, fifthAttempt, "insight-1")
	assert.Contains(t, fifthAttempt, "insight-2")
	assert.Contains(t, fifthAttempt, "insight-3")
	assert.Contains(t, fifthAttempt, "insight-4")
}

func TestOfflineEpochMajorOrdering(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM()
	for i := 0; i < 6; i++ {
		scriptStep(llm, "a", "k")
	}

	adapter := New(playbook.New(), llm, exactMatchEvaluator("a"))

	samples := []Sample{{Question: "q1"}, {Question: "q2"}, {Question: "q3"}}
	records, err := adapter.RunOffline(ctx, samples, 2)
	require.NoError(t, err)
	require.Len(t, records, 6)

	for i, record := range records {
		assert.Equal(t, i/3+1, record.Epoch)
		assert.Equal(t, 2, record.TotalEpochs)
		assert.Equal(t, i%3+1, record.SampleIndex)
		assert.Equal(t, 3, record.TotalSamples)
		assert.Equal(t, samples[i%3].Question, record.Sample.Question)
	}
}

func TestOnlinePositionValuedFields(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM()
	for i := 0; i < 3; i++ {
		scriptStep(llm, "a", "k")
	}

	adapter := New(playbook.New(), llm, exactMatchEvaluator("a"))

	samples := []Sample{{Question: "q1"}, {Question: "q2"}, {Question: "q3"}}
	records, err := adapter.RunOnline(ctx, samples)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, record := range records {
		position := i + 1
		assert.Equal(t, position, record.Epoch)
		assert.Equal(t, position, record.TotalEpochs)
		assert.Equal(t, position, record.SampleIndex)
		assert.Equal(t, position, record.TotalSamples)
	}

	// Progress annotations follow the positions.
	prompts := llm.Prompts()
	assert.Contains(t, prompts[2], "epoch 1/1 · sample 1/1")
	assert.Contains(t, prompts[5], "epoch 2/2 · sample 2/2")
	assert.Contains(t, prompts[8], "epoch 3/3 · sample 3/3")
}

func TestTerminalFailureAbortsWithoutPartialRecord(t *testing.T) {
	ctx := context.Background()

	// First step is clean; the second step's attempt never parses.
	llm := llms.NewScriptedLLM()
	scriptStep(llm, "a", "k")
	llm.AddResponse("not json")
	llm.AddResponse("not json")
	llm.AddResponse("not json")

	adapter := New(playbook.New(), llm, exactMatchEvaluator("a"))

	records, err := adapter.RunOffline(ctx, []Sample{{Question: "q1"}, {Question: "q2"}}, 1)
	require.Error(t, err)
	assert.Equal(t, errors.RetryExhausted, errors.CodeOf(err))
	require.Len(t, records, 1)
	assert.Equal(t, "q1", records[0].Sample.Question)
}

func TestEvaluatorErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	llm := llms.NewScriptedLLM(`{"final_answer": "a"}`)
	failing := EvaluatorFunc(func(ctx context.Context, sample Sample, attempt *roles.Attempt) (Evaluation, error) {
		return Evaluation{}, fmt.Errorf("scoring service down")
	})

	adapter := New(playbook.New(), llm, failing)
	records, err := adapter.RunOffline(ctx, []Sample{{Question: "q"}}, 1)
	assert.EqualError(t, err, "scoring service down")
	assert.Empty(t, records)
}

func TestCancellationAtSampleBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := New(playbook.New(), llms.NewScriptedLLM(), exactMatchEvaluator("a"))
	records, err := adapter.RunOffline(ctx, []Sample{{Question: "q"}}, 1)
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
	assert.Empty(t, records)
}
