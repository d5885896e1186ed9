package domain

import (
	"context"
	"io"
)

// ProgressFunc receives byte counts during a transfer. total is UnknownSize
// when the server did not announce a length.
type ProgressFunc func(written, total int64)

// Fetcher defines the transport used by download tasks
type Fetcher interface {
	// Fetch streams the body at url into w. Transport problems are wrapped in
	// ErrNetwork; errors returned by w are passed through unchanged.
	Fetch(ctx context.Context, url string, w io.Writer, onProgress ProgressFunc) error
}

// SoundSource returns candidate sounds for a text query
type SoundSource interface {
	// Search returns descriptors in result order; fails with ErrNetwork or ErrEmptyResult.
	Search(ctx context.Context, query string) ([]SoundDescriptor, error)
}

// Tagger embeds attribution into a downloaded file before it is published.
type Tagger interface {
	Tag(path string, sound SoundDescriptor) error
}
