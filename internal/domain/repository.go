package domain

// BatchRepository defines the interface for batch history persistence
type BatchRepository interface {
	// Create creates a new batch record
	Create(record *BatchRecord) error

	// Update updates an existing batch record
	Update(record *BatchRecord) error

	// FindByID finds a batch record by ID
	FindByID(id string) (*BatchRecord, error)

	// FindRecent returns the most recent batches, newest first
	FindRecent(limit int) ([]*BatchRecord, error)

	// GetStats returns batch statistics
	GetStats() (*BatchStats, error)
}

// BookmarkRepository defines the interface for bookmark persistence
type BookmarkRepository interface {
	// AddBookmark inserts a bookmark, returning the existing one for a known sound
	AddBookmark(bookmark *Bookmark) (*Bookmark, error)

	// RemoveBookmark deletes a bookmark by ID
	RemoveBookmark(id string) error

	// ListBookmarks returns all bookmarks, oldest first
	ListBookmarks() ([]*Bookmark, error)
}

// BatchStats represents batch statistics
type BatchStats struct {
	Total            int64 `json:"total"`
	Active           int64 `json:"active"`
	Completed        int64 `json:"completed"`
	Cancelled        int64 `json:"cancelled"`
	SoundsDownloaded int64 `json:"sounds_downloaded"`
	SoundsFailed     int64 `json:"sounds_failed"`
}
