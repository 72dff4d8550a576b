package playbook

import (
	"fmt"
	"strings"
)

// Operation types a DeltaOp may carry. Matching is case-insensitive at
// application time; decode does not validate against this set.
const (
	OpAdd    = "ADD"
	OpUpdate = "UPDATE"
	OpTag    = "TAG"
	OpRemove = "REMOVE"
)

// DeltaOp is one typed edit against the playbook. Metadata holds named
// numeric adjustments, interpreted per type: initial counters for ADD,
// counter overwrites for UPDATE, counter increments for TAG.
type DeltaOp struct {
	Type     string             `json:"type"`
	Section  string             `json:"section"`
	Content  string             `json:"content,omitempty"`
	BulletID string             `json:"bullet_id,omitempty"`
	Metadata map[string]float64 `json:"metadata,omitempty"`
}

// DeltaBatch is an ordered sequence of edits plus the curator's rationale.
// Operations apply strictly in order; later operations may reference
// bullets created by earlier ones in the same batch.
type DeltaBatch struct {
	Reasoning  string    `json:"reasoning,omitempty"`
	Operations []DeltaOp `json:"operations"`
}

// Empty reports whether the batch carries no operations.
func (b DeltaBatch) Empty() bool {
	return len(b.Operations) == 0
}

// ParseDeltaBatch decodes a batch from an untyped JSON payload. Missing
// optional fields take documented defaults (empty reasoning, empty
// metadata, empty section); list entries that are not objects with a
// string type are dropped, not fatal. The second return value counts the
// dropped entries so callers can observe them.
func ParseDeltaBatch(raw map[string]interface{}) (DeltaBatch, int) {
	batch := DeltaBatch{
		Reasoning:  asString(raw["reasoning"]),
		Operations: []DeltaOp{},
	}

	dropped := 0
	ops, _ := raw["operations"].([]interface{})
	for _, entry := range ops {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			dropped++
			continue
		}
		opType, ok := obj["type"].(string)
		if !ok || opType == "" {
			dropped++
			continue
		}

		batch.Operations = append(batch.Operations, DeltaOp{
			Type:     opType,
			Section:  asString(obj["section"]),
			Content:  asString(obj["content"]),
			BulletID: asString(obj["bullet_id"]),
			Metadata: asNumberMap(obj["metadata"]),
		})
	}

	return batch, dropped
}

// ApplyReport makes delta application observable: how many operations were
// applied, how many were skipped, and why.
type ApplyReport struct {
	Applied int
	Skipped int
	Reasons []string
}

func (r *ApplyReport) skip(reason string) {
	r.Skipped++
	r.Reasons = append(r.Reasons, reason)
}

// ApplyDelta applies each operation in sequence. Unrecognized types and
// structurally incomplete operations (a missing required identity) are
// skipped rather than raising; the batch as a whole never aborts on a
// single bad operation.
func (p *Playbook) ApplyDelta(batch DeltaBatch) ApplyReport {
	var report ApplyReport

	for i, op := range batch.Operations {
		switch strings.ToUpper(op.Type) {
		case OpAdd:
			opts := []AddOption{WithCounters(op.Metadata)}
			if op.BulletID != "" {
				opts = append(opts, WithID(op.BulletID))
			}
			p.Add(op.Section, op.Content, opts...)
			report.Applied++

		case OpUpdate:
			if op.BulletID == "" {
				report.skip(fmt.Sprintf("op %d: UPDATE without bullet_id", i))
				continue
			}
			if _, err := p.Update(op.BulletID, op.Content, op.Metadata); err != nil {
				report.skip(fmt.Sprintf("op %d: UPDATE %s: unknown bullet", i, op.BulletID))
				continue
			}
			report.Applied++

		case OpTag:
			if op.BulletID == "" {
				report.skip(fmt.Sprintf("op %d: TAG without bullet_id", i))
				continue
			}
			if _, ok := p.Get(op.BulletID); !ok {
				report.skip(fmt.Sprintf("op %d: TAG %s: unknown bullet", i, op.BulletID))
				continue
			}
			applied := false
			for name, delta := range op.Metadata {
				// Unknown counter names are a no-op on this path;
				// only direct Tag calls surface invalid-tag errors.
				if _, err := p.Tag(op.BulletID, strings.ToLower(name), int(delta)); err == nil {
					applied = true
				}
			}
			if applied {
				report.Applied++
			} else {
				report.skip(fmt.Sprintf("op %d: TAG %s: no applicable counters", i, op.BulletID))
			}

		case OpRemove:
			if op.BulletID == "" {
				report.skip(fmt.Sprintf("op %d: REMOVE without bullet_id", i))
				continue
			}
			p.Remove(op.BulletID)
			report.Applied++

		default:
			report.skip(fmt.Sprintf("op %d: unrecognized type %q", i, op.Type))
		}
	}

	return report
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asNumberMap(v interface{}) map[string]float64 {
	out := map[string]float64{}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return out
	}
	for k, raw := range obj {
		switch n := raw.(type) {
		case float64:
			out[k] = n
		case int:
			out[k] = float64(n)
		}
	}
	return out
}
