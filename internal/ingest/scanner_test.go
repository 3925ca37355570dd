package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerijus-areska/aimu/internal/metadata"
	"github.com/nerijus-areska/aimu/internal/models"
)

type memStore struct {
	tracks []models.Track
	known  map[string]bool
	err    error
}

func (m *memStore) AddTracks(_ context.Context, tracks []models.Track) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.known == nil {
		m.known = map[string]bool{}
	}
	var n int64
	for _, t := range tracks {
		if m.known[t.Path] {
			continue
		}
		m.known[t.Path] = true
		m.tracks = append(m.tracks, t)
		n++
	}
	return n, nil
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		p := filepath.Join(root, n)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestScanFindsSupportedFilesSorted(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "z.mp3", "sub/a.MP3", "b.flac", "notes.txt")

	store := &memStore{}
	s := New(store, Options{Rating: 2, ReadMetadata: false, Formats: []string{".mp3"}})
	s.read = func(string) (metadata.Track, error) {
		t.Fatal("metadata must not be read when disabled")
		return metadata.Track{}, nil
	}

	res, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Found != 2 || res.Added != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	want := []string{filepath.Join(root, "sub/a.MP3"), filepath.Join(root, "z.mp3")}
	for i, w := range want {
		if store.tracks[i].Path != w {
			t.Errorf("track %d = %s, want %s", i, store.tracks[i].Path, w)
		}
		if store.tracks[i].Rating != 2 {
			t.Errorf("rating not applied: %d", store.tracks[i].Rating)
		}
	}
}

func TestScanMetadataAndWarnings(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "good.mp3", "bad.mp3", "lossless.flac")

	store := &memStore{}
	s := New(store, Options{Rating: 1, ReadMetadata: true, Formats: []string{".mp3", ".flac"}})
	s.read = func(path string) (metadata.Track, error) {
		switch filepath.Base(path) {
		case "bad.mp3":
			return metadata.Track{}, errors.New("no tags")
		default:
			return metadata.Track{Artist: "Artist", Title: filepath.Base(path), Duration: 90 * time.Second}, nil
		}
	}

	res, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Found != 3 || res.Added != 3 || res.Warnings != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	for _, tr := range store.tracks {
		switch filepath.Base(tr.Path) {
		case "bad.mp3":
			if tr.Artist != "" || tr.Duration != nil {
				t.Errorf("bad.mp3 should be added bare: %+v", tr)
			}
		default:
			if tr.Artist != "Artist" || tr.Duration == nil || *tr.Duration != 90 {
				t.Errorf("metadata not applied: %+v", tr)
			}
		}
	}

	// Rescan adds nothing new
	res, err = s.Scan(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 {
		t.Errorf("rescan added %d", res.Added)
	}
}

func TestScanRejectsBadRating(t *testing.T) {
	s := New(&memStore{}, Options{Rating: 4})
	if _, err := s.Scan(context.Background(), t.TempDir()); err == nil {
		t.Error("rating 4 should be rejected")
	}
}

func TestScanStoreError(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.mp3")
	boom := errors.New("locked")

	s := New(&memStore{err: boom}, Options{Rating: 1})
	if _, err := s.Scan(context.Background(), root); !errors.Is(err, boom) {
		t.Errorf("expected store error, got %v", err)
	}
}
