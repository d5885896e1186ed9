package domain

import (
	"time"

	"github.com/google/uuid"
)

// BatchRecord is the persisted history entry for a batch
type BatchRecord struct {
	ID             string     `json:"id" gorm:"primaryKey"`
	Query          string     `json:"query,omitempty"`
	Directory      string     `json:"directory" gorm:"not null"`
	State          BatchState `json:"state" gorm:"not null;index"`
	TotalCount     int        `json:"total_count"`
	CompletedCount int        `json:"completed_count"`
	FailedCount    int        `json:"failed_count"`
	FailedIDs      string     `json:"failed_ids,omitempty"` // comma separated descriptor IDs
	SidecarWritten bool       `json:"sidecar_written"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	StartedAt      time.Time  `json:"started_at" gorm:"index"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewBatchRecord creates a history record for a freshly started batch
func NewBatchRecord(snap BatchSnapshot) *BatchRecord {
	return &BatchRecord{
		ID:         snap.ID,
		Query:      snap.Query,
		Directory:  snap.Directory,
		State:      snap.State,
		TotalCount: snap.Progress.TotalCount,
		StartedAt:  snap.StartedAt,
	}
}

// MarkFinished copies the terminal outcome of a batch into the record
func (r *BatchRecord) MarkFinished(snap BatchSnapshot, sidecarErr error) {
	r.State = snap.State
	r.CompletedCount = snap.Progress.CompletedCount
	r.FailedCount = snap.Progress.FailedCount
	r.FinishedAt = snap.FinishedAt
	if r.FinishedAt == nil {
		now := time.Now()
		r.FinishedAt = &now
	}

	ids := ""
	for _, t := range snap.FailedTasks() {
		if ids != "" {
			ids += ","
		}
		ids += t.Descriptor.ID
	}
	r.FailedIDs = ids

	r.SidecarWritten = snap.State == BatchStateCompleted && sidecarErr == nil
	if sidecarErr != nil {
		r.ErrorMessage = sidecarErr.Error()
	}
}

// IsTerminal checks if the batch is finished
func (r *BatchRecord) IsTerminal() bool {
	return r.State == BatchStateCompleted || r.State == BatchStateCancelled
}

// Bookmark is a sound the user wants to keep across searches
type Bookmark struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	FreesoundID string    `json:"freesound_id" gorm:"not null;uniqueIndex"`
	Name        string    `json:"name"`
	Author      string    `json:"author"`
	License     string    `json:"license"`
	PreviewURL  string    `json:"preview_url" gorm:"not null"`
	Query       string    `json:"query,omitempty"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NewBookmark creates a bookmark for a sound
func NewBookmark(sound SoundDescriptor, query string) *Bookmark {
	return &Bookmark{
		ID:          uuid.New().String(),
		FreesoundID: sound.ID,
		Name:        sound.Name,
		Author:      sound.Author,
		License:     sound.License,
		PreviewURL:  sound.PreviewURL,
		Query:       query,
		CreatedAt:   time.Now(),
	}
}

// Descriptor converts the bookmark back into a downloadable descriptor
func (b *Bookmark) Descriptor() SoundDescriptor {
	return SoundDescriptor{
		ID:         b.FreesoundID,
		Name:       b.Name,
		Author:     b.Author,
		License:    b.License,
		PreviewURL: b.PreviewURL,
	}
}
