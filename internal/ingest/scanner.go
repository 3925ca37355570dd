package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerijus-areska/aimu/internal/audio"
	"github.com/nerijus-areska/aimu/internal/metadata"
	"github.com/nerijus-areska/aimu/internal/models"
)

var (
	files = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aimu_scanner_files_total",
			Help: "Audio files seen by the scanner",
		},
		[]string{"status"},
	)
	duration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aimu_scanner_duration_seconds",
			Help:    "Time to scan one directory tree",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	prometheus.MustRegister(files, duration)
}

// Store receives the scanned tracks.
type Store interface {
	AddTracks(ctx context.Context, tracks []models.Track) (int64, error)
}

type Options struct {
	Rating       int      // default rating for new tracks, 1-3
	ReadMetadata bool     // false: add paths only
	Formats      []string // allowed extensions, e.g. ".mp3"
}

// Result summarises one scan.
type Result struct {
	Found    int
	Added    int64
	Warnings int
}

type Scanner struct {
	store Store
	opts  Options
	read  func(path string) (metadata.Track, error)
}

func New(store Store, opts Options) *Scanner {
	return &Scanner{store: store, opts: opts, read: metadata.ReadLocal}
}

// Scan walks root, reads every supported file and adds the ones not yet in
// the library. Files with unreadable metadata are still added.
func (s *Scanner) Scan(ctx context.Context, root string) (Result, error) {
	var res Result
	if s.opts.Rating < 1 || s.opts.Rating > 3 {
		return res, fmt.Errorf("rating must be 1-3, got %d", s.opts.Rating)
	}

	timer := prometheus.NewTimer(duration)
	defer timer.ObserveDuration()

	root, err := filepath.Abs(root)
	if err != nil {
		return res, err
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("⚠️ Cannot read %s: %v", path, err)
			return nil
		}
		if !d.IsDir() && audio.IsSupportedFormat(d.Name(), s.opts.Formats) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	res.Found = len(paths)
	log.Printf("🔍 Found %d audio files under %s", len(paths), root)

	tracks := make([]models.Track, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		t := models.Track{Path: path, Rating: s.opts.Rating}
		if s.opts.ReadMetadata {
			meta, err := s.read(path)
			if err != nil {
				log.Printf("   ⚠️ Metadata unreadable for %s: %v", filepath.Base(path), err)
				res.Warnings++
				files.WithLabelValues("warning").Inc()
			}
			meta.Apply(&t)
		}
		files.WithLabelValues("scanned").Inc()
		tracks = append(tracks, t)

		if (i+1)%500 == 0 {
			log.Printf("   ... %d/%d", i+1, len(paths))
		}
	}

	added, err := s.store.AddTracks(ctx, tracks)
	if err != nil {
		return res, err
	}
	res.Added = added
	files.WithLabelValues("added").Add(float64(added))

	log.Printf("✅ Scan complete: %d added, %d already known, %d warnings",
		added, int64(len(tracks))-added, res.Warnings)
	return res, nil
}
