package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// SamplerHandler exposes the pad layout built from the latest batch
type SamplerHandler struct {
	pads PadProvider
}

// NewSamplerHandler creates a new sampler handler
func NewSamplerHandler(pads PadProvider) *SamplerHandler {
	return &SamplerHandler{pads: pads}
}

// GetPads handles GET /api/v1/pads
func (h *SamplerHandler) GetPads(c *gin.Context) {
	c.JSON(http.StatusOK, h.pads.Layout())
}

// GetPadForNote handles GET /api/v1/pads/note/:note
func (h *SamplerHandler) GetPadForNote(c *gin.Context) {
	note, err := strconv.Atoi(c.Param("note"))
	if err != nil || note < 0 || note > domain.MaxMIDINote {
		respondError(c, fmt.Errorf("%w: note must be 0-%d", domain.ErrInvalidInput, domain.MaxMIDINote))
		return
	}

	pad, ok := h.pads.PadForNote(note)
	if !ok {
		respondError(c, fmt.Errorf("no pad for note %d: %w", note, domain.ErrNotFound))
		return
	}
	c.JSON(http.StatusOK, pad)
}
