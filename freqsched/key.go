package freqsched

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/pebble"
)

// ScheduleKey is the sort key of the schedule table. Score is a virtual
// clock value — smaller means more urgent — and Hash breaks ties and
// doubles as the pagedb lookup key.
type ScheduleKey struct {
	Score float32
	Hash  uint64
}

const keySize = 12

func encodeKey(sk ScheduleKey) []byte {
	b := make([]byte, keySize)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(sk.Score))
	binary.LittleEndian.PutUint64(b[4:12], sk.Hash)
	return b
}

func decodeKey(b []byte) (ScheduleKey, error) {
	if len(b) != keySize {
		return ScheduleKey{}, fmt.Errorf("freqsched: schedule key is %d bytes, want %d", len(b), keySize)
	}
	return ScheduleKey{
		Score: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Hash:  binary.LittleEndian.Uint64(b[4:12]),
	}, nil
}

func encodeFreq(freq float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(freq))
	return b
}

func decodeFreq(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("freqsched: schedule value is %d bytes, want 4", len(b))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func compareKeys(a, b []byte) int {
	sa, err := decodeKey(a)
	if err != nil {
		// Malformed keys cannot appear through this package; fall back
		// to a stable order rather than panic inside the store.
		return lexicalCompare(a, b)
	}
	sb, err := decodeKey(b)
	if err != nil {
		return lexicalCompare(a, b)
	}
	switch {
	case sa.Score < sb.Score:
		return -1
	case sa.Score > sb.Score:
		return 1
	case sa.Hash < sb.Hash:
		return -1
	case sa.Hash > sb.Hash:
		return 1
	}
	return 0
}

func lexicalCompare(a, b []byte) int {
	return pebble.DefaultComparer.Compare(a, b)
}

// orderedScoreBits maps a float32 to a uint32 whose unsigned order
// matches the float order (sign bit flipped for positives, all bits
// flipped for negatives).
func orderedScoreBits(score float32) uint32 {
	if score == 0 {
		// Normalise -0 so equal scores abbreviate equally.
		score = 0
	}
	b := math.Float32bits(score)
	if b&0x8000_0000 != 0 {
		return ^b
	}
	return b | 0x8000_0000
}

// ScheduleComparer orders schedule keys by (score ascending, hash
// ascending). It is bound to the store environment at open time, so
// every transaction on the schedule table observes this order.
var ScheduleComparer = newScheduleComparer()

func newScheduleComparer() *pebble.Comparer {
	cmp := *pebble.DefaultComparer
	cmp.Name = "recrawl.schedule.v1"
	cmp.Compare = compareKeys
	cmp.Equal = func(a, b []byte) bool { return compareKeys(a, b) == 0 }
	cmp.AbbreviatedKey = func(key []byte) uint64 {
		sk, err := decodeKey(key)
		if err != nil {
			return 0
		}
		return uint64(orderedScoreBits(sk.Score))<<32 | sk.Hash>>32
	}
	// The default prefix-shortening separators assume bytewise order;
	// under the struct order they could emit keys that sort outside
	// [a, b). Identity keeps index separators valid.
	cmp.Separator = func(dst, a, b []byte) []byte { return append(dst, a...) }
	cmp.Successor = func(dst, a []byte) []byte { return append(dst, a...) }
	return &cmp
}
