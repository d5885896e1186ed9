package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/freesound-sampler-go/internal/domain"
)

func TestAttributionTagger_MP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FS_ID_5.mp3")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfb, 0x90, 0x00}, 0644))

	sound := domain.SoundDescriptor{ID: "5", Name: "clap", Author: "dora", License: "cc0", PreviewURL: "https://cdn/5.mp3"}
	require.NoError(t, NewAttributionTagger().Tag(path, sound))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, "clap", tag.Title())
	assert.Equal(t, "dora", tag.Artist())
}

func TestAttributionTagger_SkipsOgg(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FS_ID_6.ogg")
	content := []byte("OggS")
	require.NoError(t, os.WriteFile(path, content, 0644))

	sound := domain.SoundDescriptor{ID: "6", PreviewURL: "https://cdn/6.ogg"}
	require.NoError(t, NewAttributionTagger().Tag(path, sound))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, after)
}
