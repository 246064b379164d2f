package freqsched

import (
	"fmt"
	"io"
)

// Dump writes the schedule to w in sorted order, one entry per line:
// score, hash, freq as "%.2e %016x %.2e". Read-only: the underlying
// session is aborted when the scan finishes.
func (s *Scheduler) Dump(w io.Writer) error {
	sess, err := s.cursorOpen()
	if err != nil {
		return err
	}
	defer s.cursorAbort(sess)

	err = sess.Scan(func(key, val []byte) error {
		sk, err := decodeKey(key)
		if err != nil {
			return err
		}
		freq, err := decodeFreq(val)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%.2e %016x %.2e\n", sk.Score, sk.Hash, freq)
		return err
	})
	if err != nil {
		return fmt.Errorf("freqsched: iterating over schedule: %w", err)
	}
	return nil
}
