// Package ace is a Go implementation of an agentic context-engineering loop:
// a shared playbook of textual advice is grown and revised by observing an
// agent's attempts at tasks, judging the outcomes, and converting those
// judgments into structured playbook edits.
//
// Key components:
//
//   - Playbook: The knowledge store. Bullets (advice plus usage counters)
//     grouped into named sections, mutated through a small operation set and
//     batch delta application, rendered deterministically for prompt
//     injection, and snapshotted losslessly for persistence.
//
//   - Roles: The structured-generation protocol shared by the three model
//     roles (attempt generation, reflection, delta curation). Each role
//     renders a prompt template, asks a completion backend for a JSON
//     object, and retries with a corrective suffix when the output does
//     not parse, up to a bounded ceiling.
//
//   - Adapt: The adaptation loop. One step generates an attempt with the
//     current playbook, evaluates it, reflects on the outcome, applies the
//     reflection's bullet tags, curates a delta, and applies it. Offline
//     and online drivers differ only in iteration policy.
//
//   - LLMs: Completion backends. An Anthropic client, a local Ollama
//     client, and a scripted client for deterministic tests, all behind a
//     single capability interface selected by configuration.
//
// The loop is strictly sequential: each step's curation depends
// on that step's own reflection and on the playbook state the previous
// step left behind. A playbook instance assumes a single writer.
package ace
