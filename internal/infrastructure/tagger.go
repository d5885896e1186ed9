package infrastructure

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

// AttributionTagger writes name, author and license into ID3 tags of MP3
// previews. Other formats are left untouched.
type AttributionTagger struct{}

// NewAttributionTagger creates a new tagger
func NewAttributionTagger() *AttributionTagger {
	return &AttributionTagger{}
}

// Tag embeds attribution for sound into the file at path
func (t *AttributionTagger) Tag(path string, sound domain.SoundDescriptor) error {
	if !isMP3(path, sound) {
		return nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("failed to open tags: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(sound.Name)
	tag.SetArtist(sound.Author)
	tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    "eng",
		Description: "license",
		Text:        sound.License,
	})
	tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: "FREESOUND_ID",
		Value:       sound.ID,
	})

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}
	return nil
}

// isMP3 checks the final extension because tagging runs on the part file.
func isMP3(path string, sound domain.SoundDescriptor) bool {
	if sound.Extension() == "mp3" {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}
