// Package freqsched schedules page recrawls by frequency.
//
// Every known page carries a desired crawl frequency (crawls per
// second). The scheduler keeps a persistent ordered table from
// {score, hash} to freq, where score is a virtual clock: the entry with
// the smallest (score, hash) is the most urgent page. Dequeuing a page
// rotates its entry in place — delete the head, advance the score by
// 1/freq, reinsert — so over virtual time each page is visited at
// approximately its requested rate.
//
// The table lives in an ordstore environment in its own directory and
// is mutated only inside cursor sessions, so a request batch is atomic:
// an observer sees the schedule before or after a batch, never halfway.
package freqsched

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/recrawl/idgen"
	"github.com/hazyhaar/recrawl/ordstore"
	"github.com/hazyhaar/recrawl/pagedb"
)

// Scheduler hands out the next URLs to crawl so that each page is
// revisited at its requested frequency.
type Scheduler struct {
	db        *pagedb.DB
	env       *ordstore.Env
	path      string
	persist   bool
	margin    float32 // negative = backpressure disabled
	maxCrawls uint64  // 0 = unlimited
	logger    *slog.Logger
	newID     idgen.Generator
	closed    bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPersist controls whether the schedule directory is kept on Close.
// Default: true. With false, Close removes the directory and its files.
func WithPersist(persist bool) Option {
	return func(s *Scheduler) { s.persist = persist }
}

// WithMargin enables backpressure: a page whose last crawl is within
// 1/(freq·(1+margin)) seconds of now is not handed out, and the request
// batch stops there. margin must be >= 0; a negative value disables the
// check (the default).
func WithMargin(margin float32) Option {
	return func(s *Scheduler) { s.margin = margin }
}

// WithMaxCrawls caps the number of times a page is crawled over its
// lifetime. When a page at the head of the schedule has reached the
// cap, its entry is retired instead of rotated. 0 means unlimited.
func WithMaxCrawls(n uint64) Option {
	return func(s *Scheduler) { s.maxCrawls = n }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// New opens (creating if absent) a scheduler over the given page store.
// path is the schedule directory; empty derives "<pagedb path>_freqs".
// The directory is locked while open — a second scheduler on the same
// directory fails instead of racing the first.
func New(db *pagedb.DB, path string, opts ...Option) (*Scheduler, error) {
	if path == "" {
		path = db.Path() + "_freqs"
	}
	s := &Scheduler{
		db:      db,
		path:    path,
		persist: true,
		margin:  -1,
		logger:  slog.Default(),
		newID:   idgen.Prefixed("req_", idgen.Default),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrInvalidPath, path, err)
	}

	env, err := ordstore.Open(path, ordstore.Options{
		Comparer: ScheduleComparer,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening schedule store %s: %w", ErrInvalidPath, path, err)
	}
	s.env = env
	return s, nil
}

// Path returns the schedule directory.
func (s *Scheduler) Path() string { return s.path }

// cursorOpen begins a read-write session positioned on the schedule
// table. The caller must finish it with exactly one cursorCommit or
// cursorAbort.
func (s *Scheduler) cursorOpen() (*ordstore.Session, error) {
	if s.closed {
		return nil, ErrClosed
	}
	sess, err := s.env.Begin()
	if err != nil {
		return nil, fmt.Errorf("freqsched: starting schedule transaction: %w", err)
	}
	return sess, nil
}

// cursorCommit commits the session's mutations.
func (s *Scheduler) cursorCommit(sess *ordstore.Session) error {
	if err := sess.Commit(); err != nil {
		return fmt.Errorf("freqsched: committing schedule transaction: %w", err)
	}
	return nil
}

// cursorAbort discards the session. Safe on nil.
func (s *Scheduler) cursorAbort(sess *ordstore.Session) {
	sess.Abort()
}

// writeEntry inserts one schedule entry through an open session.
// Entries with freq <= 0 are skipped: every stored entry has a positive
// frequency.
func (s *Scheduler) writeEntry(sess *ordstore.Session, sk ScheduleKey, freq float32) error {
	if freq <= 0 {
		return nil
	}
	if err := sess.Put(encodeKey(sk), encodeFreq(freq)); err != nil {
		return fmt.Errorf("freqsched: adding page to schedule: %w", err)
	}
	return nil
}

// Add records a completed fetch in the page store. The schedule is not
// touched here: scores only advance in Request.
func (s *Scheduler) Add(ctx context.Context, page *pagedb.CrawledPage) error {
	if err := s.db.Add(ctx, page); err != nil {
		return fmt.Errorf("freqsched: adding crawled page: %w", err)
	}
	return nil
}

// Close closes the schedule environment. When the scheduler was opened
// with WithPersist(false), the schedule directory and its files are
// removed. Close is idempotent.
func (s *Scheduler) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.env.Close(); err != nil {
		return fmt.Errorf("freqsched: closing schedule store: %w", err)
	}
	if !s.persist {
		if err := s.env.RemoveFiles(); err != nil {
			return fmt.Errorf("freqsched: removing schedule files: %w", err)
		}
	}
	return nil
}
