package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nerijus-areska/aimu/internal/models"
)

var (
	ErrTrackNotFound   = errors.New("track not found")
	ErrInvalidFeedback = errors.New("invalid feedback")
)

const insertBatchSize = 200

// Repository is the gorm-backed store for tracks and their feedback history.
// Feedback is append-only: there is no update or delete for it.
type Repository struct {
	db  *gorm.DB
	tag language.Tag
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, tag: language.Und}
}

// WithLocale changes the collation used to order the library.
func (r *Repository) WithLocale(tag language.Tag) *Repository {
	r.tag = tag
	return r
}

// LibraryEntry is the display view of a track: the newest feedback event when
// there is one, otherwise the track's default rating and no mood.
type LibraryEntry struct {
	Track       models.Track `json:"track"`
	Name        string       `json:"name"`
	Pleasure    *int         `json:"pleasure"`
	Arousal     *int         `json:"arousal"`
	Rating      int          `json:"rating"`
	HasFeedback bool         `json:"has_feedback"`
}

// AllTracks returns the library ordered by artist, then title.
func (r *Repository) AllTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	if err := r.db.WithContext(ctx).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	r.sortTracks(tracks)
	return tracks, nil
}

// Track looks a single track up by its library path.
func (r *Repository) Track(ctx context.Context, path string) (models.Track, error) {
	var t models.Track
	err := r.db.WithContext(ctx).Where("path = ?", path).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, fmt.Errorf("%s: %w", path, ErrTrackNotFound)
	}
	if err != nil {
		return t, fmt.Errorf("load track %s: %w", path, err)
	}
	return t, nil
}

// FeedbackHistory returns every event for path, newest first.
func (r *Repository) FeedbackHistory(ctx context.Context, path string) ([]models.Feedback, error) {
	var events []models.Feedback
	err := r.db.WithContext(ctx).
		Where("path = ?", path).
		Order("id DESC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("load feedback for %s: %w", path, err)
	}
	return events, nil
}

// AppendFeedback records one listening event and returns it with its sequence id.
func (r *Repository) AppendFeedback(ctx context.Context, path string, pleasure, arousal, rating int) (models.Feedback, error) {
	switch {
	case pleasure < 1 || pleasure > 5:
		return models.Feedback{}, fmt.Errorf("%w: pleasure %d outside 1-5", ErrInvalidFeedback, pleasure)
	case arousal < 1 || arousal > 5:
		return models.Feedback{}, fmt.Errorf("%w: arousal %d outside 1-5", ErrInvalidFeedback, arousal)
	case rating < 1 || rating > 3:
		return models.Feedback{}, fmt.Errorf("%w: rating %d outside 1-3", ErrInvalidFeedback, rating)
	}

	if _, err := r.Track(ctx, path); err != nil {
		return models.Feedback{}, err
	}

	event := models.Feedback{
		Path:     path,
		Pleasure: models.IntPtr(pleasure),
		Arousal:  models.IntPtr(arousal),
		Rating:   models.IntPtr(rating),
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		return models.Feedback{}, fmt.Errorf("append feedback for %s: %w", path, err)
	}

	feedbackAppended.WithLabelValues(fmt.Sprint(rating)).Inc()
	return event, nil
}

// AddTracks inserts new tracks and silently skips paths already in the library.
// It returns how many rows were actually inserted.
func (r *Repository) AddTracks(ctx context.Context, tracks []models.Track) (int64, error) {
	if len(tracks) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(tracks, insertBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("insert tracks: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateNote replaces the free-text listener note of a track.
func (r *Repository) UpdateNote(ctx context.Context, path, note string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("path = ?", path).
		Update("note", note)
	if res.Error != nil {
		return fmt.Errorf("update note for %s: %w", path, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", path, ErrTrackNotFound)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Track{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}

// Entries builds the display view. An empty search returns the whole library;
// otherwise only tracks whose artist or title contains it (case-insensitive).
func (r *Repository) Entries(ctx context.Context, search string) ([]LibraryEntry, error) {
	db := r.db.WithContext(ctx)

	query := db.Model(&models.Track{})
	if search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(artist) LIKE ? OR LOWER(title) LIKE ?", term, term)
	}

	var tracks []models.Track
	if err := query.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("load tracks: %w", err)
	}
	r.sortTracks(tracks)

	// Newest event per path
	var latest []models.Feedback
	newest := db.Model(&models.Feedback{}).Select("MAX(id)").Group("path")
	if err := db.Where("id IN (?)", newest).Find(&latest).Error; err != nil {
		return nil, fmt.Errorf("load latest feedback: %w", err)
	}
	byPath := make(map[string]models.Feedback, len(latest))
	for _, f := range latest {
		byPath[f.Path] = f
	}

	entries := make([]LibraryEntry, 0, len(tracks))
	for _, t := range tracks {
		entries = append(entries, NewEntry(t, byPath[t.Path]))
	}
	return entries, nil
}

// NewEntry derives the display row of t from its newest feedback event.
// A zero-value event (or one without a rating) means "no feedback".
func NewEntry(t models.Track, newest models.Feedback) LibraryEntry {
	e := LibraryEntry{
		Track:  t,
		Name:   t.DisplayName(),
		Rating: t.Rating,
	}
	if newest.ID == 0 {
		return e
	}
	e.HasFeedback = true
	e.Pleasure = newest.Pleasure
	e.Arousal = newest.Arousal
	if newest.Rating != nil {
		e.Rating = *newest.Rating
	}
	return e
}

func (r *Repository) sortTracks(tracks []models.Track) {
	c := collate.New(r.tag, collate.IgnoreCase)
	sort.SliceStable(tracks, func(i, j int) bool {
		if cmp := c.CompareString(tracks[i].Artist, tracks[j].Artist); cmp != 0 {
			return cmp < 0
		}
		return c.CompareString(tracks[i].Title, tracks[j].Title) < 0
	})
}
