package audio

import (
	"path/filepath"
	"strings"
)

// KnownFormats is every extension the player can handle through ffplay.
var KnownFormats = []string{
	".mp3", ".flac", ".wav", ".ogg", ".m4a", ".aac", ".wma", ".aiff", ".alac", ".opus",
}

// IsSupportedFormat reports whether filename has one of the allowed
// extensions. An empty allow list means mp3 only.
func IsSupportedFormat(filename string, allowed []string) bool {
	if len(allowed) == 0 {
		allowed = []string{".mp3"}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

// IsKnownFormat reports whether ext (with or without the dot) is playable at all.
func IsKnownFormat(ext string) bool {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, k := range KnownFormats {
		if ext == k {
			return true
		}
	}
	return false
}
