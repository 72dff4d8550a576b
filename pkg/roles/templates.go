package roles

import "strings"

// Prompt templates for the three roles. Placeholders use {name} syntax and
// are substituted by RenderTemplate; a placeholder with no runtime value is
// filled with an explicit marker rather than left blank, so the model never
// sees a dangling label.

const generatorTemplate = `You are an expert problem solver. You have access to a playbook of advice
accumulated from earlier attempts at similar tasks.

PLAYBOOK:
{playbook}

RECENT REFLECTIONS:
{reflections}

QUESTION:
{question}

ADDITIONAL CONTEXT:
{context}

Consult the playbook before answering and cite the IDs of any bullets you
rely on. Respond with ONLY a JSON object of the form:
{"reasoning": "<your step-by-step reasoning>", "final_answer": "<the answer>", "used_bullets": ["<bullet id>", ...]}`

const reflectorTemplate = `You are reviewing an attempt at a task to extract what should be learned
from it.

PLAYBOOK:
{playbook}

QUESTION:
{question}

ADDITIONAL CONTEXT:
{context}

ATTEMPT:
{attempt}

EVALUATOR FEEDBACK:
{feedback}

GROUND TRUTH:
{ground_truth}

Judge which playbook bullets helped, hurt, or were irrelevant, and state
the single most important insight this attempt reveals. Respond with ONLY a
JSON object of the form:
{"analysis": "<what went right or wrong and why>", "key_insight": "<the one lesson to retain>", "bullet_tags": [{"bullet_id": "<id>", "tag": "helpful|harmful|neutral"}, ...]}`

const curatorTemplate = `You maintain a playbook of task advice. Convert the reflection below into a
small batch of edits to the playbook.

CURRENT PLAYBOOK ({stats}):
{playbook}

TASK RECORD:
{context}

REFLECTION:
{reflection}

PROGRESS: {progress}

Prefer updating or tagging existing bullets over adding near-duplicates.
Respond with ONLY a JSON object of the form:
{"reasoning": "<why these edits>", "operations": [{"type": "ADD|UPDATE|TAG|REMOVE", "section": "<section name>", "content": "<bullet text>", "bullet_id": "<id when required>", "metadata": {"helpful": 0, "harmful": 0, "neutral": 0}}, ...]}`

// Markers substituted for placeholders that have no runtime value.
const (
	markerNone          = "(none)"
	markerEmptyPlaybook = "(empty playbook)"
)

// RenderTemplate substitutes {name} placeholders with the given values.
// Empty values render as the marker paired with the placeholder, so the
// prompt keeps an explicit "(none)" instead of a blank hole.
func RenderTemplate(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		if value == "" {
			value = markerFor(name)
		}
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}

func markerFor(name string) string {
	if name == "playbook" {
		return markerEmptyPlaybook
	}
	return markerNone
}
