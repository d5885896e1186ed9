package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// SidecarFileName is the fixed name consumers look for in a batch directory
const SidecarFileName = "metadata.json"

// SidecarEntry is one downloaded sound in the sidecar
type SidecarEntry struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"original_name"`
	Author       string `json:"author"`
	License      string `json:"license"`
	FreesoundID  string `json:"freesound_id"`
	PadIndex     int    `json:"pad_index"`
}

// Sidecar is the persisted attribution record for a batch
type Sidecar struct {
	BatchID   string         `json:"batch_id"`
	Query     string         `json:"query,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Samples   []SidecarEntry `json:"samples"`
}

// SidecarFromBatch builds a sidecar from succeeded, non-abandoned tasks in index order
func SidecarFromBatch(snap domain.BatchSnapshot) *Sidecar {
	sidecar := &Sidecar{
		BatchID:   snap.ID,
		Query:     snap.Query,
		CreatedAt: time.Now().UTC(),
		Samples:   make([]SidecarEntry, 0, len(snap.Tasks)),
	}
	for _, t := range snap.Tasks {
		if t.State != domain.TaskSucceeded || t.Abandoned {
			continue
		}
		sidecar.Samples = append(sidecar.Samples, SidecarEntry{
			FileName:     filepath.Base(t.DestinationPath),
			OriginalName: t.Descriptor.Name,
			Author:       t.Descriptor.Author,
			License:      t.Descriptor.License,
			FreesoundID:  t.Descriptor.ID,
			PadIndex:     t.Index,
		})
	}
	return sidecar
}

// WriteSidecar atomically replaces the sidecar in dir
func WriteSidecar(dir string, sidecar *Sidecar) error {
	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".metadata-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create sidecar temp file: %v", domain.ErrWrite, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to write sidecar: %v", domain.ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: failed to sync sidecar: %v", domain.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close sidecar: %v", domain.ErrWrite, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: failed to chmod sidecar: %v", domain.ErrWrite, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, SidecarFileName)); err != nil {
		return fmt.Errorf("%w: failed to replace sidecar: %v", domain.ErrWrite, err)
	}
	committed = true
	return nil
}

// ReadSidecar loads the sidecar from dir, returning domain.ErrNoSidecar when absent
func ReadSidecar(dir string) (*Sidecar, error) {
	data, err := os.ReadFile(filepath.Join(dir, SidecarFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrNoSidecar
		}
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var sidecar Sidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("malformed sidecar: %w", err)
	}
	return &sidecar, nil
}
