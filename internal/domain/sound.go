package domain

import (
	"net/url"
	"path"
	"strings"
)

// SoundDescriptor describes a remote audio preview before it is downloaded.
// Values are supplied by a SoundSource and never mutated by the core.
type SoundDescriptor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Author     string `json:"author"`
	License    string `json:"license"`
	PreviewURL string `json:"preview_url"`
}

// DefaultFilePrefix is the naming prefix for downloaded previews (FS_ID_1234.ogg).
const DefaultFilePrefix = "FS_ID_"

// DefaultPreviewExt is used when the preview URL carries no usable extension.
const DefaultPreviewExt = "ogg"

// Extension returns the audio extension of the preview URL without the dot.
func (s SoundDescriptor) Extension() string {
	u, err := url.Parse(s.PreviewURL)
	if err != nil {
		return DefaultPreviewExt
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
	switch ext {
	case "ogg", "mp3", "wav", "flac", "aif", "aiff":
		return ext
	default:
		return DefaultPreviewExt
	}
}

// FileName returns the deterministic file name for the descriptor.
func (s SoundDescriptor) FileName(prefix string) string {
	return prefix + sanitizeID(s.ID) + "." + s.Extension()
}

// sanitizeID keeps IDs usable as file names.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// LicenseShortName maps a Creative Commons license URL to the badge shown on pads.
// Sampling+ and anything unrecognised map to the most restrictive "by-nc".
func LicenseShortName(license string) string {
	l := strings.ToLower(license)
	switch {
	case strings.Contains(l, "publicdomain/zero"), strings.Contains(l, "cc0"):
		return "cc0"
	case strings.Contains(l, "by-nc"):
		return "by-nc"
	case strings.Contains(l, "creativecommons.org/licenses/by/"),
		strings.Contains(l, "creativecommons.org/licenses/by") && !strings.Contains(l, "-nc"):
		return "by"
	default:
		return "by-nc"
	}
}
