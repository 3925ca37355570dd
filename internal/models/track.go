package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Track represents a music file in the personal library.
// The library path is the identity of a track.
type Track struct {
	Path        string `gorm:"primaryKey" json:"path"`
	Title       string `gorm:"index" json:"title"`
	Artist      string `gorm:"index" json:"artist"`
	AlbumArtist string `json:"album_artist"`
	Album       string `json:"album"`
	TrackNumber string `json:"track_number"`
	Genre       string `json:"genre"`
	Date        string `json:"date"`

	// Tech Details (nil when the scanner could not read them)
	Duration *int `json:"duration"` // In seconds
	Bitrate  *int `json:"bitrate"`  // kbps
	BPM      *int `json:"bpm"`

	// Default rating assigned at import time
	Rating int `gorm:"not null;default:1" json:"rating"`

	// Free-text listener note
	Note string `json:"note"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the schema compatible with libraries created by the scanner.
func (Track) TableName() string {
	return "music_files"
}

// DisplayName renders "Artist - Title", falling back to the file stem.
func (t Track) DisplayName() string {
	artist := t.Artist
	if artist == "" {
		artist = "Unknown Artist"
	}
	title := t.Title
	if title == "" {
		base := filepath.Base(t.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return artist + " - " + title
}

// DurationValue returns the duration in seconds, or 0 when unknown.
func (t Track) DurationValue() time.Duration {
	if t.Duration == nil {
		return 0
	}
	return time.Duration(*t.Duration) * time.Second
}

// Feedback is one append-only listening feedback event.
// Every field that a listener supplies is optional so that partially written
// rows stay representable; such rows are ignored by station scoring.
type Feedback struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"` // Sequence id, newest is highest
	Path      string    `gorm:"index;not null" json:"path"`
	Pleasure  *int      `json:"pleasure"`
	Arousal   *int      `json:"arousal"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName overrides the default pluralization
func (Feedback) TableName() string {
	return "feedback"
}

// IntPtr is a small helper for the optional integer columns.
func IntPtr(v int) *int {
	return &v
}
