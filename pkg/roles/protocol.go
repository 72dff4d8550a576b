package roles

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/core"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
)

// DefaultMaxAttempts bounds how many times a role asks for structured
// output before failing terminally. Only malformed output is retried;
// provider errors propagate immediately.
const DefaultMaxAttempts = 3

const correctiveSuffix = "\n\nYour previous reply was not a single valid JSON object. " +
	"Respond with ONLY one valid JSON object. No prose, no code fences, no trailing text."

// structuredCall is the retry state machine shared by all three roles: a
// base prompt, an attempt counter, and the corrective suffix accumulated
// across failed parses.
type structuredCall struct {
	llm         core.LLM
	prompt      string
	maxAttempts int

	attempts int
	suffix   string
	lastRaw  string
	lastErr  error
}

func newStructuredCall(llm core.LLM, prompt string, maxAttempts int) *structuredCall {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &structuredCall{llm: llm, prompt: prompt, maxAttempts: maxAttempts}
}

// run drives the generate-parse-retry cycle until a JSON object parses or
// the attempt ceiling is exhausted. It returns the parsed object together
// with the raw text that produced it.
func (c *structuredCall) run(ctx context.Context, opts ...core.GenerateOption) (map[string]interface{}, string, error) {
	logger := logging.GetLogger()

	for c.attempts < c.maxAttempts {
		resp, err := c.llm.Generate(ctx, c.prompt+c.suffix, opts...)
		if err != nil {
			// Upstream capability failure: not ours to retry.
			return nil, "", err
		}
		c.attempts++

		obj, perr := parseJSONObject(resp.Content)
		if perr == nil {
			return obj, resp.Content, nil
		}

		c.lastRaw = resp.Content
		c.lastErr = perr
		c.suffix += correctiveSuffix
		logger.Debug(ctx, "structured output attempt %d/%d failed to parse: %v",
			c.attempts, c.maxAttempts, perr)
	}

	return nil, "", errors.WithFields(
		errors.Wrap(c.lastErr, errors.RetryExhausted, "structured output did not parse within the retry ceiling"),
		errors.Fields{
			"attempts":      c.attempts,
			"last_response": c.lastRaw,
		})
}

// parseJSONObject decodes text as a single JSON object. Markdown code
// fences around the object are tolerated; anything else must parse as-is.
func parseJSONObject(text string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(text)
	trimmed = stripCodeFence(trimmed)

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := strings.TrimPrefix(s, "```")
	if i := strings.Index(rest, "\n"); i >= 0 {
		rest = rest[i+1:] // drop the language hint line
	}
	rest = strings.TrimSpace(rest)
	return strings.TrimSpace(strings.TrimSuffix(rest, "```"))
}

// asStringSlice coerces an untyped JSON list to strings, stringifying
// non-string members instead of dropping them.
func asStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, stringify(item))
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		data, _ := json.Marshal(t)
		return string(data)
	default:
		data, _ := json.Marshal(t)
		return string(data)
	}
}

func fieldString(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}
