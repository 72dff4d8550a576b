package playbook

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

func seedPlaybook(t *testing.T) *Playbook {
	t.Helper()
	pb := New()
	var tick int64
	pb.now = func() time.Time {
		tick++
		return time.Unix(0, tick).UTC()
	}
	pb.Add("design", "Prefer small interfaces", WithCounters(map[string]float64{"helpful": 2}))
	pb.Add("mistakes", "Off by one")
	pb.Add("design", "Return structs")
	return pb
}

func TestFileStore(t *testing.T) {
	t.Run("load before save returns nil", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "playbook.json"))
		snap, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		pb := seedPlaybook(t)
		store := NewFileStore(filepath.Join(t.TempDir(), "nested", "playbook.json"))

		require.NoError(t, store.Save(pb.Snapshot()))

		snap, err := store.Load()
		require.NoError(t, err)
		require.NotNil(t, snap)

		restored := New()
		restored.Restore(*snap)
		assert.Equal(t, pb.Render(), restored.Render())
		assert.Equal(t, pb.Stats(), restored.Stats())
	})

	t.Run("corrupt file surfaces a storage error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "playbook.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

		_, err := NewFileStore(path).Load()
		require.Error(t, err)
		assert.Equal(t, errors.StorageFailed, errors.CodeOf(err))
	})
}

func TestSQLiteStore(t *testing.T) {
	t.Run("load before save returns nil", func(t *testing.T) {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "playbook.db"))
		require.NoError(t, err)
		defer store.Close()

		snap, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		pb := seedPlaybook(t)
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "playbook.db"))
		require.NoError(t, err)
		defer store.Close()

		require.NoError(t, store.Save(pb.Snapshot()))

		snap, err := store.Load()
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, pb.Snapshot().NextID, snap.NextID)

		restored := New()
		restored.Restore(*snap)
		assert.Equal(t, pb.Render(), restored.Render())
		assert.Equal(t, pb.Stats(), restored.Stats())
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "playbook.db"))
		require.NoError(t, err)
		defer store.Close()

		pb := seedPlaybook(t)
		require.NoError(t, store.Save(pb.Snapshot()))

		pb.Remove("design-00001")
		pb.Remove("design-00003")
		require.NoError(t, store.Save(pb.Snapshot()))

		snap, err := store.Load()
		require.NoError(t, err)
		assert.Len(t, snap.Bullets, 1)
		assert.NotContains(t, snap.Sections, "design")
	})
}
