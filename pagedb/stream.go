package pagedb

import (
	"context"
	"database/sql"
	"fmt"
)

// InfoStream lazily iterates every (hash, PageInfo) pair in the store.
//
//	st, err := db.Stream(ctx)
//	defer st.Close()
//	for st.Next() {
//	    use(st.Hash(), st.Info())
//	}
//	if err := st.Err(); err != nil { ... }
type InfoStream struct {
	rows *sql.Rows
	hash uint64
	info *PageInfo
	err  error
}

// Stream starts an iteration over all known pages.
func (d *DB) Stream(ctx context.Context) (*InfoStream, error) {
	rows, err := d.DB.QueryContext(ctx,
		`SELECT hash, url, first_crawl, last_crawl, n_crawls, n_changes, is_seed
		 FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("pagedb: stream: %w", err)
	}
	return &InfoStream{rows: rows}, nil
}

// Next advances to the next page. It returns false at the end of the
// stream or on error; the two cases are told apart by Err.
func (st *InfoStream) Next() bool {
	if st.err != nil {
		return false
	}
	if !st.rows.Next() {
		st.err = st.rows.Err()
		return false
	}
	pi := &PageInfo{}
	var hash int64
	var seed int
	if err := st.rows.Scan(&hash, &pi.URL, &pi.FirstCrawl, &pi.LastCrawl, &pi.NCrawls, &pi.NChanges, &seed); err != nil {
		st.err = fmt.Errorf("pagedb: stream scan: %w", err)
		return false
	}
	pi.IsSeed = seed != 0
	st.hash = uint64(hash)
	st.info = pi
	return true
}

// Hash returns the hash of the current page.
func (st *InfoStream) Hash() uint64 { return st.hash }

// Info returns the metadata of the current page. The value is owned by
// the caller; the stream never reuses it.
func (st *InfoStream) Info() *PageInfo { return st.info }

// Err reports whether the stream terminated abnormally.
func (st *InfoStream) Err() error { return st.err }

// Close releases the underlying rows. Safe to call more than once.
func (st *InfoStream) Close() error { return st.rows.Close() }
