package gitdict

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// NoteRepository is the persistence side of the learning notes log
type NoteRepository interface {
	// InsertNote stores text and returns the note with its assigned id and timestamp.
	InsertNote(ctx context.Context, text string) (LearningNote, error)
	// ListNotes returns up to limit notes, newest first. limit <= 0 means all.
	ListNotes(ctx context.Context, limit int) ([]LearningNote, error)
}

// NotesStore is an append-only log of learning notes with a read-through
// list cache. Every successful Append invalidates the cache before returning.
type NotesStore struct {
	repo  NoteRepository
	cache *cache.Cache
	opts  *options

	mu         sync.Mutex // guards generation and orders cache fills against Invalidate
	generation uint64
}

// NewNotesStore wraps repo
func NewNotesStore(repo NoteRepository, opts ...Option) *NotesStore {
	return &NotesStore{
		repo:  repo,
		cache: cache.New(cache.NoExpiration, 0),
		opts:  applyOptions(opts),
	}
}

// Append validates and stores a note. Blank text is rejected with a
// *ValidationError without touching the store.
func (s *NotesStore) Append(ctx context.Context, text string) (LearningNote, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return LearningNote{}, &ValidationError{
			Fields:  []string{"note_text"},
			Message: "note is empty",
		}
	}

	start := time.Now()
	note, err := s.repo.InsertNote(ctx, trimmed)
	s.opts.metrics.observeStore("insert_note", start, err)
	if err != nil {
		s.opts.logger.Error("failed to append note", "error", err)
		return LearningNote{}, storeError("insert note", err)
	}

	s.Invalidate()
	s.opts.logger.Info("note appended", "note_id", note.ID)
	return note, nil
}

// List returns up to limit notes, newest first. It never returns a nil slice
// on success.
func (s *NotesStore) List(ctx context.Context, limit int) ([]LearningNote, error) {
	key := strconv.Itoa(limit)
	if cached, ok := s.cache.Get(key); ok {
		s.opts.metrics.observeCache(true)
		return cloneNotes(cached.([]LearningNote)), nil
	}
	s.opts.metrics.observeCache(false)

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	start := time.Now()
	notes, err := s.repo.ListNotes(ctx, limit)
	s.opts.metrics.observeStore("list_notes", start, err)
	if err != nil {
		s.opts.logger.Error("failed to list notes", "limit", limit, "error", err)
		return nil, storeError("list notes", err)
	}
	if notes == nil {
		notes = []LearningNote{}
	}

	// an Append that finished while we were reading makes this result stale
	s.mu.Lock()
	if s.generation == gen {
		s.cache.Set(key, cloneNotes(notes), cache.NoExpiration)
	}
	s.mu.Unlock()
	VerboseLog("listed %d notes (limit %d)", len(notes), limit)
	return notes, nil
}

// Invalidate drops every cached list result
func (s *NotesStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.Flush()
}

func cloneNotes(notes []LearningNote) []LearningNote {
	return append(make([]LearningNote, 0, len(notes)), notes...)
}
