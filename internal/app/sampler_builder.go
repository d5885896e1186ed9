package app

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"github.com/yourusername/freesound-sampler-go/internal/infrastructure"
)

// SnapshotProvider exposes the current batch
type SnapshotProvider interface {
	Snapshot() (domain.BatchSnapshot, error)
}

// SamplerBuilder turns a completed batch directory into playable pads. It is
// fed by the event fabric and never touches manager state directly.
type SamplerBuilder struct {
	config    *domain.SamplerConfig
	prefix    string
	snapshots SnapshotProvider
	logger    *zap.Logger

	mu     sync.RWMutex
	layout domain.PadLayout
}

// NewSamplerBuilder creates a new sampler builder
func NewSamplerBuilder(config *domain.SamplerConfig, filePrefix string, snapshots SnapshotProvider, logger *zap.Logger) *SamplerBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if filePrefix == "" {
		filePrefix = domain.DefaultFilePrefix
	}
	return &SamplerBuilder{
		config:    config,
		prefix:    filePrefix,
		snapshots: snapshots,
		logger:    logger,
		layout:    domain.PadLayout{Pads: []domain.Pad{}},
	}
}

// OnEvent implements events.Listener
func (b *SamplerBuilder) OnEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.BatchStarted:
		b.setLayout(domain.PadLayout{BatchID: e.BatchID, Pads: []domain.Pad{}})
	case domain.BatchCompleted:
		if !e.Success {
			b.setLayout(domain.PadLayout{BatchID: e.BatchID, Pads: []domain.Pad{}})
			return
		}
		var descriptors []domain.SoundDescriptor
		if b.snapshots != nil {
			if snap, err := b.snapshots.Snapshot(); err == nil && snap.ID == e.BatchID {
				descriptors = snap.Descriptors()
			}
		}
		layout := b.Build(e.Directory, descriptors)
		layout.BatchID = e.BatchID
		b.setLayout(layout)
		b.logger.Info("Sampler pads ready",
			zap.String("batch_id", e.BatchID),
			zap.String("source", string(layout.Source)),
			zap.Int("pads", len(layout.Pads)))
	}
}

// Build reads the sidecar in dir, falling back to descriptor order and the
// file naming convention when there is none. Only files that exist become pads.
func (b *SamplerBuilder) Build(dir string, descriptors []domain.SoundDescriptor) domain.PadLayout {
	sidecar, err := infrastructure.ReadSidecar(dir)
	switch {
	case err == nil:
		return domain.PadLayout{BatchID: sidecar.BatchID, Source: domain.PadSourceSidecar, Pads: b.fromSidecar(dir, sidecar)}
	case !errors.Is(err, domain.ErrNoSidecar):
		b.logger.Warn("Unreadable sidecar, using fallback naming", zap.String("dir", dir), zap.Error(err))
	}
	return domain.PadLayout{Source: domain.PadSourceFallback, Pads: b.fromDescriptors(dir, descriptors)}
}

func (b *SamplerBuilder) fromSidecar(dir string, sidecar *infrastructure.Sidecar) []domain.Pad {
	pads := []domain.Pad{}
	for _, entry := range sidecar.Samples {
		if entry.FileName == "" || entry.PadIndex < 0 || entry.PadIndex >= b.config.Pads {
			continue
		}
		path := filepath.Join(dir, filepath.Base(entry.FileName))
		pad, ok := b.newPad(entry.PadIndex, path)
		if !ok {
			continue
		}
		pad.Name = entry.OriginalName
		pad.Author = entry.Author
		pad.License = entry.License
		pad.LicenseShort = domain.LicenseShortName(entry.License)
		pad.FreesoundID = entry.FreesoundID
		pads = append(pads, pad)
	}
	return pads
}

func (b *SamplerBuilder) fromDescriptors(dir string, descriptors []domain.SoundDescriptor) []domain.Pad {
	pads := []domain.Pad{}
	for i, desc := range descriptors {
		if i >= b.config.Pads {
			break
		}
		pad, ok := b.newPad(i, filepath.Join(dir, desc.FileName(b.prefix)))
		if !ok {
			continue
		}
		pad.Name = desc.Name
		pad.Author = desc.Author
		pad.License = desc.License
		pad.LicenseShort = domain.LicenseShortName(desc.License)
		pad.FreesoundID = desc.ID
		pads = append(pads, pad)
	}
	return pads
}

func (b *SamplerBuilder) newPad(index int, path string) (domain.Pad, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return domain.Pad{}, false
	}
	low, high, ok := b.config.NoteRange(index)
	if !ok {
		return domain.Pad{}, false
	}
	return domain.Pad{
		Index:    index,
		File:     path,
		RootNote: low,
		LowNote:  low,
		HighNote: high,
	}, true
}

func (b *SamplerBuilder) setLayout(layout domain.PadLayout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.layout = layout
}

// Layout returns a copy of the current pad layout
func (b *SamplerBuilder) Layout() domain.PadLayout {
	b.mu.RLock()
	defer b.mu.RUnlock()

	layout := b.layout
	layout.Pads = append([]domain.Pad(nil), b.layout.Pads...)
	if layout.Pads == nil {
		layout.Pads = []domain.Pad{}
	}
	return layout
}

// PadForNote returns the pad triggered by a MIDI note
func (b *SamplerBuilder) PadForNote(note int) (domain.Pad, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, pad := range b.layout.Pads {
		if pad.Contains(note) {
			return pad, true
		}
	}
	return domain.Pad{}, false
}
