package metadata

import (
	"time"

	"github.com/nerijus-areska/aimu/internal/models"
)

// Track is what could be read from one audio file. Zero values mean unknown.
type Track struct {
	Artist      string        `json:"artist"`
	AlbumArtist string        `json:"album_artist"`
	Title       string        `json:"title"`
	Album       string        `json:"album"`
	TrackNumber string        `json:"track_number"`
	Genre       string        `json:"genre"`
	Date        string        `json:"date"`
	BPM         int           `json:"bpm"`
	Duration    time.Duration `json:"duration"`
	Bitrate     int           `json:"bitrate"` // kbps
}

// Apply copies the known fields onto a library track.
func (t Track) Apply(m *models.Track) {
	m.Artist = t.Artist
	m.AlbumArtist = t.AlbumArtist
	m.Title = t.Title
	m.Album = t.Album
	m.TrackNumber = t.TrackNumber
	m.Genre = t.Genre
	m.Date = t.Date
	if t.BPM > 0 {
		m.BPM = models.IntPtr(t.BPM)
	}
	if secs := int(t.Duration.Round(time.Second) / time.Second); secs > 0 {
		m.Duration = models.IntPtr(secs)
	}
	if t.Bitrate > 0 {
		m.Bitrate = models.IntPtr(t.Bitrate)
	}
}
