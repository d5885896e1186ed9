package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// BookmarkHandler handles bookmark requests
type BookmarkHandler struct {
	bookmarks BookmarkService
}

// NewBookmarkHandler creates a new bookmark handler
func NewBookmarkHandler(bookmarks BookmarkService) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks}
}

// AddBookmarkRequest bookmarks one sound
type AddBookmarkRequest struct {
	domain.SoundDescriptor
	Query string `json:"query,omitempty"`
}

// LoadBookmarksRequest selects bookmarks to download; empty means all
type LoadBookmarksRequest struct {
	IDs []string `json:"ids"`
}

// List handles GET /api/v1/bookmarks
func (h *BookmarkHandler) List(c *gin.Context) {
	bookmarks, err := h.bookmarks.ListBookmarks()
	if err != nil {
		respondError(c, err)
		return
	}
	if bookmarks == nil {
		bookmarks = []*domain.Bookmark{}
	}
	c.JSON(http.StatusOK, bookmarks)
}

// Add handles POST /api/v1/bookmarks
func (h *BookmarkHandler) Add(c *gin.Context) {
	var req AddBookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	bookmark, err := h.bookmarks.AddBookmark(req.SoundDescriptor, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bookmark)
}

// Remove handles DELETE /api/v1/bookmarks/:id
func (h *BookmarkHandler) Remove(c *gin.Context) {
	if err := h.bookmarks.RemoveBookmark(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bookmark removed"})
}

// Load handles POST /api/v1/bookmarks/load
func (h *BookmarkHandler) Load(c *gin.Context) {
	var req LoadBookmarksRequest
	// an empty body loads every bookmark
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}

	snap, err := h.bookmarks.LoadBookmarks(c.Request.Context(), req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, snap)
}
