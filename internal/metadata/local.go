package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/go-flac"
	"github.com/hajimehoshi/go-mp3"

	"github.com/nerijus-areska/aimu/internal/utils"
)

var ErrUnsupported = errors.New("unsupported audio format")

// ReadLocal reads tags, duration and bitrate of a file. Whatever could be
// read is returned even when err is non-nil.
func ReadLocal(path string) (Track, error) {
	t, tagErr := ReadTags(path)

	d, durErr := Duration(path)
	if durErr == nil && d > 0 {
		t.Duration = d
		if info, err := os.Stat(path); err == nil {
			t.Bitrate = int(float64(info.Size()*8) / d.Seconds() / 1000)
		}
	}

	return t, errors.Join(tagErr, durErr)
}

// ReadTags reads the text tags with dhowden/tag. MP3 BPM comes from the
// ID3 TBPM frame, FLAC BPM from the vorbis comment.
func ReadTags(path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return Track{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return Track{}, fmt.Errorf("read tags %s: %w", filepath.Base(path), err)
	}

	n, total := m.Track()
	t := Track{
		Artist:      utils.CleanTag(m.Artist()),
		AlbumArtist: utils.CleanTag(m.AlbumArtist()),
		Title:       utils.CleanTag(m.Title()),
		Album:       utils.CleanTag(m.Album()),
		Genre:       utils.CleanTag(m.Genre()),
		TrackNumber: utils.FormatTrackNumber(n, total),
		Date:        rawString(m.Raw(), "date", "TDRC", "TYER", "year"),
	}
	// keep the full date tag only when it starts with a year
	if utils.SanitizeYear(t.Date) == "" && m.Year() > 0 {
		t.Date = fmt.Sprint(m.Year())
	}

	switch m.FileType() {
	case tag.MP3:
		t.BPM = id3BPM(path)
	case tag.FLAC:
		t.BPM, _ = utils.ParseLeadingInt(rawString(m.Raw(), "bpm"))
	}
	return t, nil
}

func rawString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && utils.CleanTag(v) != "" {
			return utils.CleanTag(v)
		}
	}
	return ""
}

func id3BPM(path string) int {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return 0
	}
	defer t.Close()
	bpm, _ := utils.ParseLeadingInt(t.GetTextFrame("TBPM").Text)
	return bpm
}

// Duration measures the playing time of an MP3 or FLAC file.
func Duration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3Duration(path)
	case ".flac":
		return flacDuration(path)
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("decode mp3 %s: %w", filepath.Base(path), err)
	}
	// Decoded stream is 16-bit stereo: 4 bytes per sample frame
	samples := d.Length() / 4
	if samples <= 0 || d.SampleRate() <= 0 {
		return 0, fmt.Errorf("mp3 %s: unknown length", filepath.Base(path))
	}
	return time.Duration(float64(samples) / float64(d.SampleRate()) * float64(time.Second)), nil
}

func flacDuration(path string) (time.Duration, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("parse flac %s: %w", filepath.Base(path), err)
	}
	for _, m := range f.Meta {
		if m.Type != flac.StreamInfo {
			continue
		}
		rate, samples, err := parseStreamInfo(m.Data)
		if err != nil {
			return 0, err
		}
		if rate == 0 || samples == 0 {
			return 0, fmt.Errorf("flac %s: unknown length", filepath.Base(path))
		}
		return time.Duration(float64(samples) / float64(rate) * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("flac %s: no STREAMINFO block", filepath.Base(path))
}

// parseStreamInfo extracts the sample rate (20 bits) and total sample count
// (36 bits) packed at byte 10 of a STREAMINFO block.
func parseStreamInfo(b []byte) (rate uint32, samples uint64, err error) {
	if len(b) < 18 {
		return 0, 0, fmt.Errorf("STREAMINFO too short: %d bytes", len(b))
	}
	rate = uint32(b[10])<<12 | uint32(b[11])<<4 | uint32(b[12])>>4
	samples = uint64(b[13]&0x0F)<<32 | uint64(binary.BigEndian.Uint32(b[14:18]))
	return rate, samples, nil
}
