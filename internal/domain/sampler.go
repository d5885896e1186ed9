package domain

// Pad is one playable voice built from a downloaded sound
type Pad struct {
	Index        int    `json:"index"`
	File         string `json:"file"`
	Name         string `json:"name"`
	Author       string `json:"author"`
	License      string `json:"license"`
	LicenseShort string `json:"license_short"`
	FreesoundID  string `json:"freesound_id"`
	RootNote     int    `json:"root_note"`
	LowNote      int    `json:"low_note"`
	HighNote     int    `json:"high_note"`
}

// PadSource names where a pad layout came from
type PadSource string

const (
	PadSourceNone     PadSource = ""
	PadSourceSidecar  PadSource = "sidecar"
	PadSourceFallback PadSource = "fallback"
)

// PadLayout is the sampler voice set built for one batch
type PadLayout struct {
	BatchID string    `json:"batch_id"`
	Source  PadSource `json:"source"`
	Pads    []Pad     `json:"pads"`
}

// MaxMIDINote is the highest MIDI note number
const MaxMIDINote = 127

// NoteRange returns the MIDI notes a pad responds to. ok is false when the
// pad falls outside the MIDI range.
func (c SamplerConfig) NoteRange(index int) (low, high int, ok bool) {
	per := c.NotesPerPad
	if per < 1 {
		per = 1
	}
	low = c.BaseNote + index*per
	high = low + per - 1
	if low < 0 || low > MaxMIDINote {
		return 0, 0, false
	}
	if high > MaxMIDINote {
		high = MaxMIDINote
	}
	return low, high, true
}

// Contains reports whether note triggers the pad
func (p Pad) Contains(note int) bool {
	return note >= p.LowNote && note <= p.HighNote
}
