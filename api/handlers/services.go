package handlers

import (
	"context"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// BatchController is the part of the download manager driven over HTTP
type BatchController interface {
	CancelBatch(ctx context.Context) (domain.BatchSnapshot, error)
	Snapshot() (domain.BatchSnapshot, error)
}

// Searcher finds sounds and starts batches from them
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.SoundDescriptor, error)
	SearchAndStart(ctx context.Context, query string) (domain.BatchSnapshot, error)
	Start(ctx context.Context, descriptors []domain.SoundDescriptor, query string) (domain.BatchSnapshot, error)
}

// BookmarkService manages bookmarks and batches built from them
type BookmarkService interface {
	AddBookmark(sound domain.SoundDescriptor, query string) (*domain.Bookmark, error)
	RemoveBookmark(id string) error
	ListBookmarks() ([]*domain.Bookmark, error)
	LoadBookmarks(ctx context.Context, ids []string) (domain.BatchSnapshot, error)
}

// PadProvider exposes the sampler pads of the latest batch
type PadProvider interface {
	Layout() domain.PadLayout
	PadForNote(note int) (domain.Pad, bool)
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
