package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the serialized form of a trained model: the forest, the
// scaler it was fitted with, and provenance for audit.
type Artifact struct {
	Version      string      `json:"version"`
	TrainedAt    time.Time   `json:"trained_at"`
	FeatureNames []string    `json:"feature_names"`
	Scaler       *Scaler     `json:"scaler"`
	Forest       *Forest     `json:"forest"`
	Metrics      EvalMetrics `json:"metrics"`
}

// ArtifactStore persists trained models between process runs.
type ArtifactStore interface {
	Save(artifact *Artifact) error
	Load() (*Artifact, error)
}

// FileStore keeps the artifact as a single JSON file on disk.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Save(artifact *Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("encoding model artifact: %w", err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating model directory: %w", err)
		}
	}
	// Write-then-rename keeps readers from ever seeing a partial file.
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing model artifact: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("replacing model artifact: %w", err)
	}
	return nil
}

func (s *FileStore) Load() (*Artifact, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}
	return &artifact, nil
}

// versionStamp derives a model version from the training time.
func versionStamp(t time.Time) string {
	return "rf-" + t.UTC().Format("20060102-150405")
}
