// Package session keeps one transaction editor per browser session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"catatan/internal/cache"
	"catatan/internal/editor"
	"catatan/internal/reference"
)

// CookieName carries the session id.
const CookieName = "catatan_session"

// Session owns an editor. Callers must go through Do, which serialises access.
type Session struct {
	ID string

	mu     sync.Mutex
	editor *editor.Editor
}

// Do runs fn with exclusive access to the session's editor.
func (s *Session) Do(fn func(e *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

type Store struct {
	reader reference.Reader
	cache  *cache.LRUCache[*Session]
	clock  func() time.Time
	logger *slog.Logger

	// create serialises session creation so concurrent first requests with
	// the same id get one editor.
	create sync.Mutex
}

// Options configures a Store.
type Options struct {
	Reader  reference.Reader
	TTL     time.Duration
	MaxSize int
	Clock   func() time.Time
	Logger  *slog.Logger
}

func NewStore(opts Options) (*Store, error) {
	if opts.Reader == nil {
		return nil, errors.New("session: reference reader is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 1000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Store{reader: opts.Reader, clock: opts.Clock, logger: opts.Logger}
	s.cache = cache.NewLRUCache[*Session](opts.MaxSize, opts.TTL,
		cache.WithEvictHook(func(id string, _ *Session) {
			s.logger.Debug("Session evicted", "session_id", id)
		}))
	return s, nil
}

// Cache exposes the underlying cache so a cache.Manager can sweep it.
func (s *Store) Cache() cache.Cleaner { return s.cache }

// Get returns the session for id, creating a fresh editor when id is empty,
// unknown or expired. The returned session's ID may differ from id.
func (s *Store) Get(ctx context.Context, id string) (*Session, bool, error) {
	if sess, ok := s.lookup(id); ok {
		return sess, false, nil
	}

	s.create.Lock()
	defer s.create.Unlock()
	if sess, ok := s.lookup(id); ok {
		return sess, false, nil
	}

	ed, err := s.newEditor(ctx)
	if err != nil {
		return nil, false, err
	}
	sess := &Session{ID: uuid.NewString(), editor: ed}
	s.cache.Set(sess.ID, sess)
	s.logger.InfoContext(ctx, "Session created", "session_id", sess.ID, "rows", ed.Len())
	return sess, true, nil
}

func (s *Store) lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return s.cache.Get(id)
}

func (s *Store) newEditor(ctx context.Context) (*editor.Editor, error) {
	data, err := reference.Load(ctx, s.reader)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	return editor.New(editor.Options{
		Accounts:   data.Accounts,
		Categories: data.Categories,
		Seed:       data.Opening,
		Clock:      s.clock,
	})
}

// Len is the number of live sessions.
func (s *Store) Len() int { return s.cache.Size() }

// Ready reports whether the reference source can currently back a new session.
func (s *Store) Ready(ctx context.Context) error {
	_, err := reference.Load(ctx, s.reader)
	return err
}
