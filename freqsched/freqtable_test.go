package freqsched

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFreqTable_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freqs.bin")
	records := []PageFreq{
		{Hash: 0x1, Freq: 2},
		{Hash: 0xdeadbeef, Freq: 0.25},
		{Hash: 1 << 60, Freq: 10},
	}
	if err := NewFreqTable(records).Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFreqTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Len() != len(records) {
		t.Fatalf("len: got %d, want %d", loaded.Len(), len(records))
	}
	for i, rec := range loaded.Records() {
		if rec != records[i] {
			t.Fatalf("record %d: got %+v, want %+v", i, rec, records[i])
		}
	}
}

func TestLoadFreqTable_RejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "freqs.bin")
	if err := os.WriteFile(path, make([]byte, RecordSize+5), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFreqTable(path); err == nil {
		t.Fatal("truncated file should fail to load")
	}
}
