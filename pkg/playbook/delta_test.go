package playbook

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeltaBatch(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		raw := map[string]interface{}{
			"reasoning": "add advice",
			"operations": []interface{}{
				map[string]interface{}{
					"type":     "ADD",
					"section":  "design",
					"content":  "Prefer small interfaces",
					"metadata": map[string]interface{}{"helpful": 1.0},
				},
				map[string]interface{}{
					"type":      "TAG",
					"bullet_id": "design-00001",
					"metadata":  map[string]interface{}{"harmful": 2.0},
				},
			},
		}

		batch, dropped := ParseDeltaBatch(raw)
		assert.Zero(t, dropped)
		assert.Equal(t, "add advice", batch.Reasoning)
		require.Len(t, batch.Operations, 2)
		assert.Equal(t, "ADD", batch.Operations[0].Type)
		assert.Equal(t, map[string]float64{"helpful": 1}, batch.Operations[0].Metadata)
		assert.Equal(t, "design-00001", batch.Operations[1].BulletID)
	})

	t.Run("defaults for missing optionals", func(t *testing.T) {
		batch, dropped := ParseDeltaBatch(map[string]interface{}{
			"operations": []interface{}{
				map[string]interface{}{"type": "remove", "bullet_id": "x-1"},
			},
		})

		assert.Zero(t, dropped)
		assert.Equal(t, "", batch.Reasoning)
		require.Len(t, batch.Operations, 1)
		assert.Equal(t, "", batch.Operations[0].Section)
		assert.NotNil(t, batch.Operations[0].Metadata)
		assert.Empty(t, batch.Operations[0].Metadata)
	})

	t.Run("drops malformed entries, keeps the rest", func(t *testing.T) {
		batch, dropped := ParseDeltaBatch(map[string]interface{}{
			"operations": []interface{}{
				"not an object",
				map[string]interface{}{"section": "typeless"},
				map[string]interface{}{"type": "ADD", "section": "ok", "content": "kept"},
			},
		})

		assert.Equal(t, 2, dropped)
		require.Len(t, batch.Operations, 1)
		assert.Equal(t, "kept", batch.Operations[0].Content)
	})

	t.Run("no type validation at decode time", func(t *testing.T) {
		batch, dropped := ParseDeltaBatch(map[string]interface{}{
			"operations": []interface{}{
				map[string]interface{}{"type": "COMPACT"},
			},
		})
		assert.Zero(t, dropped)
		require.Len(t, batch.Operations, 1)
		assert.Equal(t, "COMPACT", batch.Operations[0].Type)
	})

	t.Run("empty payload", func(t *testing.T) {
		batch, dropped := ParseDeltaBatch(map[string]interface{}{})
		assert.Zero(t, dropped)
		assert.True(t, batch.Empty())
	})
}

func TestDeltaWireFormat(t *testing.T) {
	t.Run("optional fields omitted when absent", func(t *testing.T) {
		batch := DeltaBatch{
			Operations: []DeltaOp{{Type: "REMOVE", Section: "design", BulletID: "design-00001"}},
		}

		data, err := json.Marshal(batch)
		require.NoError(t, err)

		text := string(data)
		assert.NotContains(t, text, "reasoning")
		assert.NotContains(t, text, "content")
		assert.NotContains(t, text, "metadata")
		assert.Contains(t, text, `"bullet_id":"design-00001"`)
	})

	t.Run("round trips through JSON", func(t *testing.T) {
		batch := DeltaBatch{
			Reasoning: "why",
			Operations: []DeltaOp{{
				Type:     "ADD",
				Section:  "design",
				Content:  "c",
				Metadata: map[string]float64{"helpful": 1},
			}},
		}

		data, err := json.Marshal(batch)
		require.NoError(t, err)

		var decoded DeltaBatch
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, batch, decoded)
	})
}

func TestApplyDelta(t *testing.T) {
	t.Run("applies in order within one batch", func(t *testing.T) {
		pb := New()
		report := pb.ApplyDelta(DeltaBatch{Operations: []DeltaOp{
			{Type: "ADD", Section: "design", Content: "first", BulletID: "design-1"},
			{Type: "TAG", BulletID: "design-1", Metadata: map[string]float64{"helpful": 3}},
			{Type: "UPDATE", BulletID: "design-1", Content: "revised"},
		}})

		assert.Equal(t, 3, report.Applied)
		assert.Zero(t, report.Skipped)

		b, ok := pb.Get("design-1")
		require.True(t, ok)
		assert.Equal(t, "revised", b.Content)
		assert.Equal(t, 3, b.Helpful)
	})

	t.Run("case-insensitive type matching", func(t *testing.T) {
		pb := New()
		report := pb.ApplyDelta(DeltaBatch{Operations: []DeltaOp{
			{Type: "add", Section: "design", Content: "lower-cased"},
		}})
		assert.Equal(t, 1, report.Applied)
		assert.Equal(t, 1, pb.Stats().Bullets)
	})

	t.Run("skips incomplete and unknown ops without aborting", func(t *testing.T) {
		pb := New()
		report := pb.ApplyDelta(DeltaBatch{Operations: []DeltaOp{
			{Type: "UPDATE", Content: "no id"},
			{Type: "TAG", BulletID: "ghost-1", Metadata: map[string]float64{"helpful": 1}},
			{Type: "COMPACT"},
			{Type: "ADD", Section: "design", Content: "still applied"},
		}})

		assert.Equal(t, 1, report.Applied)
		assert.Equal(t, 3, report.Skipped)
		assert.Len(t, report.Reasons, 3)
		assert.Equal(t, 1, pb.Stats().Bullets)
	})

	t.Run("tag with only unknown counters is skipped", func(t *testing.T) {
		pb := New()
		pb.Add("design", "advice", WithID("design-1"))

		report := pb.ApplyDelta(DeltaBatch{Operations: []DeltaOp{
			{Type: "TAG", BulletID: "design-1", Metadata: map[string]float64{"bogus": 1}},
		}})

		assert.Zero(t, report.Applied)
		assert.Equal(t, 1, report.Skipped)
	})

	t.Run("explicit-identity ADD applied twice overwrites", func(t *testing.T) {
		pb := New()
		batch := DeltaBatch{Operations: []DeltaOp{
			{Type: "ADD", Section: "design", Content: "same", BulletID: "design-1"},
		}}

		pb.ApplyDelta(batch)
		pb.ApplyDelta(batch)

		assert.Equal(t, 1, pb.Stats().Bullets)
	})

	t.Run("auto-minted ADD applied twice duplicates", func(t *testing.T) {
		pb := New()
		batch := DeltaBatch{Operations: []DeltaOp{
			{Type: "ADD", Section: "design", Content: "same"},
		}}

		pb.ApplyDelta(batch)
		pb.ApplyDelta(batch)

		assert.Equal(t, 2, pb.Stats().Bullets)
	})

	t.Run("remove is idempotent through deltas", func(t *testing.T) {
		pb := New()
		pb.Add("design", "gone soon", WithID("design-1"))

		batch := DeltaBatch{Operations: []DeltaOp{{Type: "REMOVE", BulletID: "design-1"}}}
		assert.Equal(t, 1, pb.ApplyDelta(batch).Applied)
		assert.Equal(t, 1, pb.ApplyDelta(batch).Applied)
		assert.Zero(t, pb.Stats().Bullets)
	})
}
