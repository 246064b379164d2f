package freqsched

import (
	"context"
	"fmt"
)

// LoadSimple populates the schedule by streaming every page known to
// the page store. A page is scheduled when it has been crawled at least
// once, is below the crawl cap, and is not a seed. Its frequency is
// freqScale times the observed change rate when both are positive,
// otherwise freqDefault. All pages enter with score 0 and the whole
// load commits atomically; a stream that terminates abnormally aborts
// the load.
func (s *Scheduler) LoadSimple(ctx context.Context, freqDefault, freqScale float32) error {
	st, err := s.db.Stream(ctx)
	if err != nil {
		return fmt.Errorf("freqsched: creating page stream: %w", err)
	}
	defer st.Close()

	sess, err := s.cursorOpen()
	if err != nil {
		return err
	}

	for st.Next() {
		pi := st.Info()
		if pi.NCrawls == 0 || pi.IsSeed {
			continue
		}
		if s.maxCrawls != 0 && pi.NCrawls >= s.maxCrawls {
			continue
		}

		freq := freqDefault
		if freqScale > 0 {
			if rate := pi.Rate(); rate > 0 {
				freq = freqScale * rate
			}
		}
		if err := s.writeEntry(sess, ScheduleKey{Score: 0, Hash: st.Hash()}, freq); err != nil {
			s.cursorAbort(sess)
			return err
		}
	}
	if err := st.Err(); err != nil {
		s.cursorAbort(sess)
		return fmt.Errorf("freqsched: page stream ended abnormally: %w", err)
	}

	return s.cursorCommit(sess)
}

// LoadTable populates the schedule from a flat frequency table. Each
// record enters with score 1/freq, so pages with higher requested
// frequencies come up for their first visit sooner. Records with
// freq <= 0 are skipped. The store is asked to accommodate the incoming
// volume before writing; the whole load commits atomically.
func (s *Scheduler) LoadTable(ctx context.Context, tbl *FreqTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.env.EnsureCapacity(2 * int64(tbl.Len()) * RecordSize); err != nil {
		return fmt.Errorf("freqsched: resizing schedule store: %w", err)
	}

	sess, err := s.cursorOpen()
	if err != nil {
		return err
	}

	for _, rec := range tbl.Records() {
		if rec.Freq <= 0 {
			continue
		}
		sk := ScheduleKey{Score: 1.0 / rec.Freq, Hash: rec.Hash}
		if err := s.writeEntry(sess, sk, rec.Freq); err != nil {
			s.cursorAbort(sess)
			return err
		}
	}

	return s.cursorCommit(sess)
}
