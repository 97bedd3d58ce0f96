package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest(t *testing.T) {
	t.Run("missing file yields empty manifest", func(t *testing.T) {
		m, err := LoadManifest(t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, m.Stages)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("{broken"), 0o644))

		_, err := LoadManifest(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse manifest")
	})

	t.Run("record then reload", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "cleaned_trips.csv")
		require.NoError(t, os.WriteFile(out, []byte("header\n"), 0o644))

		m, err := LoadManifest(dir)
		require.NoError(t, err)
		completed := time.Date(2019, 6, 10, 12, 0, 0, 0, time.UTC)
		require.NoError(t, m.Record("clean_trips", "fp-1", out, "run-a", completed))

		reloaded, err := LoadManifest(dir)
		require.NoError(t, err)
		entry, ok := reloaded.Stages["clean_trips"]
		require.True(t, ok)
		assert.Equal(t, "fp-1", entry.InputFingerprint)
		assert.Equal(t, "run-a", entry.RunID)
		assert.Equal(t, completed, entry.CompletedAt)
	})

	t.Run("invalidate drops the entry durably", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "cleaned_trips.csv")
		require.NoError(t, os.WriteFile(out, []byte("header\n"), 0o644))

		m, err := LoadManifest(dir)
		require.NoError(t, err)
		require.NoError(t, m.Record("feature_engineering", "fp-1", out, "run-a", time.Now().UTC()))
		require.True(t, m.Done("feature_engineering", "fp-1"))

		require.NoError(t, m.Invalidate("feature_engineering"))
		assert.False(t, m.Done("feature_engineering", "fp-1"))

		reloaded, err := LoadManifest(dir)
		require.NoError(t, err)
		_, ok := reloaded.Stages["feature_engineering"]
		assert.False(t, ok)

		require.NoError(t, m.Invalidate("never_recorded"))
	})

	t.Run("Done requires fingerprint match and artifact presence", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "artifact.csv")
		require.NoError(t, os.WriteFile(out, []byte("x"), 0o644))

		m, err := LoadManifest(dir)
		require.NoError(t, err)
		require.NoError(t, m.Record("stage", "fp-1", out, "run-a", time.Now().UTC()))

		assert.True(t, m.Done("stage", "fp-1"))
		assert.False(t, m.Done("stage", "fp-2"), "changed inputs invalidate the entry")
		assert.False(t, m.Done("other", "fp-1"))

		require.NoError(t, os.Remove(out))
		assert.False(t, m.Done("stage", "fp-1"), "lost artifact invalidates the entry")
	})
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0o644))

	t.Run("stable for same contents", func(t *testing.T) {
		fp1, err := Fingerprint(a, b)
		require.NoError(t, err)
		fp2, err := Fingerprint(a, b)
		require.NoError(t, err)
		assert.Equal(t, fp1, fp2)
	})

	t.Run("order and contents matter", func(t *testing.T) {
		ab, err := Fingerprint(a, b)
		require.NoError(t, err)
		ba, err := Fingerprint(b, a)
		require.NoError(t, err)
		assert.NotEqual(t, ab, ba)

		require.NoError(t, os.WriteFile(a, []byte("alpha2"), 0o644))
		changed, err := Fingerprint(a, b)
		require.NoError(t, err)
		assert.NotEqual(t, ab, changed)
	})

	t.Run("missing input is an error", func(t *testing.T) {
		_, err := Fingerprint(filepath.Join(dir, "absent.csv"))
		require.Error(t, err)
	})
}
