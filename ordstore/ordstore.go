// Package ordstore provides an embedded, transactional, ordered key/value
// store with a caller-supplied total order over keys.
//
// It is a thin session layer over pebble. A Session is a read-write
// transaction plus a cursor: reads observe the session's own uncommitted
// writes, and either every mutation of the session becomes visible on
// Commit or none does (Abort). Commits are written to the WAL without
// fsync — a process crash survives, a power loss may lose the tail.
//
// One store maps to one directory on disk. The directory is locked while
// open; a second Open of the same directory fails instead of racing.
//
// Usage:
//
//	env, err := ordstore.Open(dir, ordstore.Options{Comparer: cmp})
//	s, err := env.Begin()
//	defer s.Abort()
//	...
//	err = s.Commit()
package ordstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
)

// ErrClosed is returned when the environment has already been closed.
var ErrClosed = errors.New("ordstore: environment is closed")

// Options configures Open.
type Options struct {
	// Comparer defines the total order over keys. nil means bytewise.
	Comparer *pebble.Comparer
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Env is an open store environment bound to one directory.
type Env struct {
	path   string
	db     *pebble.DB
	logger *slog.Logger

	// writer serialises sessions: at most one write transaction may be
	// live per environment.
	writer sync.Mutex

	mu     sync.Mutex
	closed bool
}

// Open opens (creating if absent) the store directory at path. The
// comparator in opts is bound for the lifetime of the environment, so
// every transaction observes the same order — it cannot be forgotten on
// a per-transaction basis.
func Open(path string, opts Options) (*Env, error) {
	opts.defaults()

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("ordstore: creating directory %s: %w", path, err)
	}

	popts := &pebble.Options{
		Comparer: opts.Comparer,
	}
	db, err := pebble.Open(path, popts)
	if err != nil {
		return nil, fmt.Errorf("ordstore: opening environment %s: %w", path, err)
	}

	return &Env{
		path:   path,
		db:     db,
		logger: opts.Logger,
	}, nil
}

// Path returns the directory the environment is bound to.
func (e *Env) Path() string { return e.path }

// EnsureCapacity asks the store to accommodate at least n additional
// bytes. Pebble grows on demand, so this is a no-op kept for callers
// that follow a pre-size-then-load protocol against stores that need it.
func (e *Env) EnsureCapacity(n int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.logger.Debug("ordstore: capacity request", "path", e.path, "bytes", n)
	return nil
}

// Begin starts a read-write session. It blocks until the environment's
// single writer slot is free. The caller must finish the session with
// exactly one Commit or Abort.
func (e *Env) Begin() (*Session, error) {
	e.writer.Lock()

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		e.writer.Unlock()
		return nil, ErrClosed
	}

	return &Session{env: e, batch: e.db.NewIndexedBatch()}, nil
}

// Close closes the environment. Any further Begin fails with ErrClosed.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("ordstore: closing environment %s: %w", e.path, err)
	}
	return nil
}

// RemoveFiles deletes the store directory and everything in it. Only
// valid after Close.
func (e *Env) RemoveFiles() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		return errors.New("ordstore: remove files on open environment")
	}
	if err := os.RemoveAll(e.path); err != nil {
		return fmt.Errorf("ordstore: removing %s: %w", e.path, err)
	}
	return nil
}

// Session is a read-write transaction with cursor access. Reads see the
// session's own writes. Not safe for concurrent use.
type Session struct {
	env   *Env
	batch *pebble.Batch
	done  bool
}

// First returns a copy of the smallest key and its value under the
// environment's comparator. ok is false on an empty table. The returned
// slices are owned by the caller and stay valid across later mutations.
func (s *Session) First() (key, val []byte, ok bool, err error) {
	iter, err := s.batch.NewIter(nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("ordstore: opening iterator: %w", err)
	}
	defer iter.Close()

	if !iter.First() {
		if err := iter.Error(); err != nil {
			return nil, nil, false, fmt.Errorf("ordstore: positioning on first key: %w", err)
		}
		return nil, nil, false, nil
	}

	key = append([]byte(nil), iter.Key()...)
	v, err := iter.ValueAndErr()
	if err != nil {
		return nil, nil, false, fmt.Errorf("ordstore: reading value: %w", err)
	}
	val = append([]byte(nil), v...)
	return key, val, true, nil
}

// Put inserts or replaces key with val inside the session.
func (s *Session) Put(key, val []byte) error {
	if err := s.batch.Set(key, val, nil); err != nil {
		return fmt.Errorf("ordstore: put: %w", err)
	}
	return nil
}

// Delete removes key inside the session. Deleting an absent key is not
// an error.
func (s *Session) Delete(key []byte) error {
	if err := s.batch.Delete(key, nil); err != nil {
		return fmt.Errorf("ordstore: delete: %w", err)
	}
	return nil
}

// Scan calls fn for every entry in key order, including the session's
// own uncommitted writes. The slices passed to fn are only valid for the
// duration of the call. fn returning an error stops the scan.
func (s *Session) Scan(fn func(key, val []byte) error) error {
	iter, err := s.batch.NewIter(nil)
	if err != nil {
		return fmt.Errorf("ordstore: opening iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		v, err := iter.ValueAndErr()
		if err != nil {
			return fmt.Errorf("ordstore: reading value: %w", err)
		}
		if err := fn(iter.Key(), v); err != nil {
			return err
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("ordstore: iterating: %w", err)
	}
	return nil
}

// Commit atomically applies every mutation of the session and releases
// the writer slot. On failure the session is aborted.
func (s *Session) Commit() error {
	if s == nil || s.done {
		return nil
	}
	s.done = true
	defer s.env.writer.Unlock()

	if err := s.batch.Commit(pebble.NoSync); err != nil {
		s.batch.Close()
		return fmt.Errorf("ordstore: committing session: %w", err)
	}
	if err := s.batch.Close(); err != nil {
		return fmt.Errorf("ordstore: closing batch: %w", err)
	}
	return nil
}

// Abort discards the session's mutations and releases the writer slot.
// Safe to call on a nil or already finished session, so it can sit in a
// defer next to Commit.
func (s *Session) Abort() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if err := s.batch.Close(); err != nil {
		s.env.logger.Warn("ordstore: aborting session", "error", err)
	}
	s.env.writer.Unlock()
}
