package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tatianab/xianxia/internal/models"
)

// DefaultDebounce is how long a save request waits for a newer one.
const DefaultDebounce = 500 * time.Millisecond

const writeTimeout = 5 * time.Second

// Saver owns the save slot for one game. Save requests are coalesced: a
// request made while another is pending replaces it, and only the last one
// within the debounce window reaches the store.
type Saver struct {
	store  BlobStore
	key    string
	delay  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *models.Session
	gen     uint64
	closed  bool

	// writeMu orders store writes against Clear so a write that already
	// fired can never land after the slot was cleared.
	writeMu sync.Mutex
}

// NewSaver returns a saver for slot. A zero delay uses DefaultDebounce.
func NewSaver(store BlobStore, slot string, delay time.Duration, logger *slog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Saver{
		store:  store,
		key:    models.SaveKey(slot),
		delay:  delay,
		logger: logger,
	}
}

// Key is the store key this saver writes to.
func (s *Saver) Key() string { return s.key }

// Save schedules session to be written after the debounce delay. Busy and
// finished sessions are never written; requesting one still cancels whatever
// was pending.
func (s *Saver) Save(session models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cancelLocked()

	if session.Busy || session.IsGameOver {
		s.logger.Debug("Skipping save", "busy", session.Busy, "game_over", session.IsGameOver)
		return
	}

	snap := session.Clone()
	s.pending = &snap
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// Flush writes any pending snapshot now.
func (s *Saver) Flush(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	snap := s.pending
	s.cancelLocked()
	s.mu.Unlock()

	if snap == nil {
		return nil
	}
	return s.write(ctx, *snap)
}

// Load reads the slot. A blob that cannot be resumed is removed and reported
// as absent.
func (s *Saver) Load(ctx context.Context) (*models.Session, error) {
	blob, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	session, err := models.DecodeSession(blob)
	if err != nil {
		if errors.Is(err, models.ErrFinishedSave) {
			s.logger.Info("Discarding save of a finished game", "key", s.key)
		} else {
			s.logger.Warn("Discarding unreadable save", "key", s.key, "error", err)
		}
		if rmErr := s.store.Remove(ctx, s.key); rmErr != nil {
			s.logger.Error("Failed to remove discarded save", "key", s.key, "error", rmErr)
		}
		return nil, nil
	}
	return session, nil
}

// Clear cancels any pending write and removes the slot.
func (s *Saver) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.store.Remove(ctx, s.key)
}

// Close cancels any pending write without performing it and waits for an
// in-flight write to finish. Later Save calls are ignored.
func (s *Saver) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	s.writeMu.Lock()
	s.writeMu.Unlock()
}

func (s *Saver) cancelLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.gen++
}

func (s *Saver) fire(gen uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed || gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	snap := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.write(ctx, snap); err != nil {
		s.logger.Error("Failed to save session", "key", s.key, "error", err)
	}
}

func (s *Saver) write(ctx context.Context, session models.Session) error {
	blob, err := models.EncodeSession(session)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key, blob); err != nil {
		return err
	}
	s.logger.Debug("Session saved", "key", s.key, "turn", session.Turn)
	return nil
}
