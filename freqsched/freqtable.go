package freqsched

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// PageFreq is one desired-frequency record: crawl the page identified
// by Hash approximately Freq times per second.
type PageFreq struct {
	Hash uint64
	Freq float32
}

// RecordSize is the on-disk size of one PageFreq record.
const RecordSize = 12

// FreqTable is a flat array of PageFreq records, typically produced by
// an offline job and shipped to the scheduler as a file.
type FreqTable struct {
	records []PageFreq
}

// NewFreqTable wraps records in a table. The slice is not copied.
func NewFreqTable(records []PageFreq) *FreqTable {
	return &FreqTable{records: records}
}

// Len returns the number of records.
func (t *FreqTable) Len() int { return len(t.records) }

// Records returns the underlying records.
func (t *FreqTable) Records() []PageFreq { return t.records }

// LoadFreqTable reads a table from its flat binary file form: RecordSize
// bytes per record, hash then frequency, little-endian.
func LoadFreqTable(path string) (*FreqTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("freqsched: reading frequency table: %w", err)
	}
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("freqsched: frequency table %s: %d bytes is not a multiple of %d", path, len(data), RecordSize)
	}

	records := make([]PageFreq, 0, len(data)/RecordSize)
	for off := 0; off < len(data); off += RecordSize {
		records = append(records, PageFreq{
			Hash: binary.LittleEndian.Uint64(data[off : off+8]),
			Freq: math.Float32frombits(binary.LittleEndian.Uint32(data[off+8 : off+12])),
		})
	}
	return &FreqTable{records: records}, nil
}

// Save writes the table in its flat binary file form.
func (t *FreqTable) Save(path string) error {
	buf := make([]byte, 0, len(t.records)*RecordSize)
	var rec [RecordSize]byte
	for _, r := range t.records {
		binary.LittleEndian.PutUint64(rec[0:8], r.Hash)
		binary.LittleEndian.PutUint32(rec[8:12], math.Float32bits(r.Freq))
		buf = append(buf, rec[:]...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("freqsched: writing frequency table: %w", err)
	}
	return nil
}
