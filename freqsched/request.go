package freqsched

import (
	"context"
	"fmt"
	"time"
)

// PageRequest is one batch of URLs to crawl, in dequeue order.
type PageRequest struct {
	ID   string   `json:"id"`
	URLs []string `json:"urls"`
}

// Request dequeues up to maxRequests URLs from the head of the
// schedule. Each dequeued entry is rotated in place: deleted and
// reinserted with its score advanced by 1/freq. Entries whose page has
// vanished from the page store are dropped silently; entries whose page
// has reached the crawl cap are retired. With a margin configured, the
// batch stops early at the first page that was crawled too recently,
// leaving that entry untouched.
//
// The whole batch commits atomically; on error nothing is mutated.
func (s *Scheduler) Request(ctx context.Context, maxRequests int) (*PageRequest, error) {
	sess, err := s.cursorOpen()
	if err != nil {
		return nil, err
	}

	req := &PageRequest{ID: s.newID(), URLs: make([]string, 0, max(maxRequests, 0))}

	interrupt := false
	for len(req.URLs) < maxRequests && !interrupt {
		kb, vb, ok, err := sess.First()
		if err != nil {
			s.cursorAbort(sess)
			return nil, fmt.Errorf("freqsched: getting head of schedule: %w", err)
		}
		if !ok {
			// No more pages left.
			interrupt = true
			continue
		}

		// kb and vb are copies owned by this loop; mutating the
		// session below cannot invalidate them.
		sk, err := decodeKey(kb)
		if err != nil {
			s.cursorAbort(sess)
			return nil, err
		}
		freq, err := decodeFreq(vb)
		if err != nil {
			s.cursorAbort(sess)
			return nil, err
		}

		pi, err := s.db.GetInfo(ctx, sk.Hash)
		if err != nil {
			s.cursorAbort(sess)
			return nil, fmt.Errorf("freqsched: retrieving page info: %w", err)
		}

		crawl := false
		if pi != nil {
			if s.margin >= 0 {
				elapsed := float64(time.Now().Unix()) - float64(pi.LastCrawl)
				if elapsed < 1.0/(float64(freq)*(1.0+float64(s.margin))) {
					interrupt = true
				}
			}
			crawl = s.maxCrawls == 0 || pi.NCrawls < s.maxCrawls
		}

		if !interrupt {
			if err := sess.Delete(kb); err != nil {
				s.cursorAbort(sess)
				return nil, fmt.Errorf("freqsched: deleting head of schedule: %w", err)
			}
			if crawl {
				req.URLs = append(req.URLs, pi.URL)
				sk.Score += 1.0 / freq
				if err := sess.Put(encodeKey(sk), encodeFreq(freq)); err != nil {
					s.cursorAbort(sess)
					return nil, fmt.Errorf("freqsched: moving element inside schedule: %w", err)
				}
			}
		}
	}

	if err := s.cursorCommit(sess); err != nil {
		return nil, err
	}
	return req, nil
}
