package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRepository implements BatchRepository and BookmarkRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema for batch history and bookmarks
	if err := db.AutoMigrate(&domain.BatchRecord{}, &domain.Bookmark{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Create creates a new batch record
func (r *SQLiteRepository) Create(record *domain.BatchRecord) error {
	return r.db.Create(record).Error
}

// Update updates an existing batch record
func (r *SQLiteRepository) Update(record *domain.BatchRecord) error {
	return r.db.Save(record).Error
}

// FindByID finds a batch record by ID
func (r *SQLiteRepository) FindByID(id string) (*domain.BatchRecord, error) {
	var record domain.BatchRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindRecent returns the most recent batches, newest first
func (r *SQLiteRepository) FindRecent(limit int) ([]*domain.BatchRecord, error) {
	var records []*domain.BatchRecord
	query := r.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// GetStats returns batch statistics
func (r *SQLiteRepository) GetStats() (*domain.BatchStats, error) {
	stats := &domain.BatchStats{}

	if err := r.db.Model(&domain.BatchRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	// Get counts by state
	stateCounts := []struct {
		State domain.BatchState
		Count int64
	}{}

	if err := r.db.Model(&domain.BatchRecord{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		switch sc.State {
		case domain.BatchStateActive:
			stats.Active = sc.Count
		case domain.BatchStateCompleted:
			stats.Completed = sc.Count
		case domain.BatchStateCancelled:
			stats.Cancelled = sc.Count
		}
	}

	sums := struct {
		Downloaded int64
		Failed     int64
	}{}
	if err := r.db.Model(&domain.BatchRecord{}).
		Select("COALESCE(SUM(completed_count), 0) as downloaded, COALESCE(SUM(failed_count), 0) as failed").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	stats.SoundsDownloaded = sums.Downloaded
	stats.SoundsFailed = sums.Failed

	return stats, nil
}

// AddBookmark inserts a bookmark, returning the existing one for a known sound
func (r *SQLiteRepository) AddBookmark(bookmark *domain.Bookmark) (*domain.Bookmark, error) {
	var existing domain.Bookmark
	err := r.db.Where("freesound_id = ?", bookmark.FreesoundID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.Create(bookmark).Error; err != nil {
		return nil, err
	}
	return bookmark, nil
}

// RemoveBookmark deletes a bookmark by ID
func (r *SQLiteRepository) RemoveBookmark(id string) error {
	result := r.db.Delete(&domain.Bookmark{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListBookmarks returns all bookmarks, oldest first
func (r *SQLiteRepository) ListBookmarks() ([]*domain.Bookmark, error) {
	var bookmarks []*domain.Bookmark
	err := r.db.Order("created_at ASC").Find(&bookmarks).Error
	return bookmarks, err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
