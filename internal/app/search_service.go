package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// BatchStarter starts download batches
type BatchStarter interface {
	StartBatch(ctx context.Context, descriptors []domain.SoundDescriptor, dir string, opts domain.BatchOptions) (domain.BatchSnapshot, error)
}

// SearchService turns text queries and bookmarks into download batches
type SearchService struct {
	source    domain.SoundSource
	starter   BatchStarter
	bookmarks domain.BookmarkRepository
	config    *domain.FreesoundConfig
	dir       string
	logger    *zap.Logger
	shuffle   func(n int, swap func(i, j int))
}

// NewSearchService creates a new search service that downloads into dir
func NewSearchService(
	source domain.SoundSource,
	starter BatchStarter,
	bookmarks domain.BookmarkRepository,
	config *domain.FreesoundConfig,
	dir string,
	logger *zap.Logger,
) *SearchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		source:    source,
		starter:   starter,
		bookmarks: bookmarks,
		config:    config,
		dir:       dir,
		logger:    logger,
		shuffle:   rand.Shuffle,
	}
}

// Search returns at most max_sounds descriptors for query, in random order
// when shuffling is enabled
func (s *SearchService) Search(ctx context.Context, query string) ([]domain.SoundDescriptor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	sounds, err := s.source.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(sounds) == 0 {
		return nil, fmt.Errorf("%w: no sounds for %q", domain.ErrEmptyResult, query)
	}

	if s.config.Shuffle {
		s.shuffle(len(sounds), func(i, j int) { sounds[i], sounds[j] = sounds[j], sounds[i] })
	}
	if limit := s.config.MaxSounds; limit > 0 && len(sounds) > limit {
		sounds = sounds[:limit]
	}

	s.logger.Info("Search completed",
		zap.String("query", query),
		zap.Int("sounds", len(sounds)))
	return sounds, nil
}

// SearchAndStart searches and downloads the selection as a new batch
func (s *SearchService) SearchAndStart(ctx context.Context, query string) (domain.BatchSnapshot, error) {
	sounds, err := s.Search(ctx, query)
	if err != nil {
		return domain.BatchSnapshot{}, err
	}
	return s.Start(ctx, sounds, strings.TrimSpace(query))
}

// Start downloads descriptors into the configured directory
func (s *SearchService) Start(ctx context.Context, descriptors []domain.SoundDescriptor, query string) (domain.BatchSnapshot, error) {
	for i, d := range descriptors {
		if d.ID == "" || d.PreviewURL == "" {
			return domain.BatchSnapshot{}, fmt.Errorf("%w: descriptor %d needs id and preview_url", domain.ErrInvalidInput, i)
		}
	}
	return s.starter.StartBatch(ctx, descriptors, s.dir, domain.BatchOptions{Query: query})
}

// AddBookmark stores a sound; bookmarking a known sound returns the stored one
func (s *SearchService) AddBookmark(sound domain.SoundDescriptor, query string) (*domain.Bookmark, error) {
	if sound.ID == "" || sound.PreviewURL == "" {
		return nil, fmt.Errorf("%w: bookmark needs id and preview_url", domain.ErrInvalidInput)
	}
	bookmark, err := s.bookmarks.AddBookmark(domain.NewBookmark(sound, query))
	if err != nil {
		return nil, fmt.Errorf("failed to add bookmark: %w", err)
	}
	return bookmark, nil
}

// RemoveBookmark deletes a bookmark
func (s *SearchService) RemoveBookmark(id string) error {
	if err := s.bookmarks.RemoveBookmark(id); err != nil {
		return fmt.Errorf("failed to remove bookmark %s: %w", id, err)
	}
	return nil
}

// ListBookmarks returns every bookmark, oldest first
func (s *SearchService) ListBookmarks() ([]*domain.Bookmark, error) {
	return s.bookmarks.ListBookmarks()
}

// LoadBookmarks starts a batch from the given bookmarks, or from all of them
// when ids is empty. The batch is capped at max_sounds.
func (s *SearchService) LoadBookmarks(ctx context.Context, ids []string) (domain.BatchSnapshot, error) {
	all, err := s.bookmarks.ListBookmarks()
	if err != nil {
		return domain.BatchSnapshot{}, fmt.Errorf("failed to list bookmarks: %w", err)
	}

	byID := make(map[string]*domain.Bookmark, len(all))
	for _, b := range all {
		byID[b.ID] = b
	}

	var selected []*domain.Bookmark
	if len(ids) == 0 {
		selected = all
	} else {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			b, ok := byID[id]
			if !ok {
				return domain.BatchSnapshot{}, fmt.Errorf("bookmark %s: %w", id, domain.ErrNotFound)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			selected = append(selected, b)
		}
	}
	if len(selected) == 0 {
		return domain.BatchSnapshot{}, fmt.Errorf("%w: no bookmarks", domain.ErrEmptyResult)
	}
	if limit := s.config.MaxSounds; limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}

	descriptors := make([]domain.SoundDescriptor, len(selected))
	for i, b := range selected {
		descriptors[i] = b.Descriptor()
	}
	return s.Start(ctx, descriptors, "bookmarks")
}
