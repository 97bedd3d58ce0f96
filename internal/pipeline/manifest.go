package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ManifestName is the completion-marker file kept next to the artifacts.
const ManifestName = "manifest.json"

// StageEntry records a completed stage: which inputs (by content
// fingerprint) produced which output, and when. "Already done" is
// verified by fingerprint match plus artifact existence, not by path
// presence alone.
type StageEntry struct {
	Stage            string    `json:"stage"`
	InputFingerprint string    `json:"input_fingerprint"`
	Output           string    `json:"output"`
	CompletedAt      time.Time `json:"completed_at"`
	RunID            string    `json:"run_id"`
}

// Manifest is the durable record of stage completion for one output
// directory. It is loaded at orchestrator start and saved after every
// recorded stage.
type Manifest struct {
	path   string
	Stages map[string]StageEntry `json:"stages"`
}

// LoadManifest reads the manifest from the output directory. A missing
// file yields an empty manifest; a corrupt one is an error so a damaged
// marker can never silently skip work.
func LoadManifest(dir string) (*Manifest, error) {
	m := &Manifest{
		path:   filepath.Join(dir, ManifestName),
		Stages: make(map[string]StageEntry),
	}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", m.path, err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", m.path, err)
	}
	if m.Stages == nil {
		m.Stages = make(map[string]StageEntry)
	}
	return m, nil
}

// Done reports whether a stage can be skipped: a recorded entry whose
// input fingerprint matches and whose output artifact still exists.
func (m *Manifest) Done(stage, fingerprint string) bool {
	e, ok := m.Stages[stage]
	if !ok || e.InputFingerprint != fingerprint {
		return false
	}
	if _, err := os.Stat(e.Output); err != nil {
		return false
	}
	return true
}

// Invalidate drops a stage entry and persists the manifest, so a later
// Done check cannot skip the stage. A stage that was never recorded is
// a no-op.
func (m *Manifest) Invalidate(stage string) error {
	if _, ok := m.Stages[stage]; !ok {
		return nil
	}
	delete(m.Stages, stage)
	return m.save()
}

// Record marks a stage complete and persists the manifest.
func (m *Manifest) Record(stage, fingerprint, output, runID string, completedAt time.Time) error {
	m.Stages[stage] = StageEntry{
		Stage:            stage,
		InputFingerprint: fingerprint,
		Output:           output,
		CompletedAt:      completedAt,
		RunID:            runID,
	}
	return m.save()
}

func (m *Manifest) save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", m.path, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename manifest %s into place: %w", m.path, err)
	}
	return nil
}

// Fingerprint hashes the contents of the given files, in order, into
// one content fingerprint. Same bytes in, same fingerprint out.
func Fingerprint(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("fingerprint %s: %w", p, err)
		}
		if _, err := io.Copy(h, f); err != nil {
			f.Close()
			return "", fmt.Errorf("fingerprint %s: %w", p, err)
		}
		f.Close()
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
