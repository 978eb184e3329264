package chunkfmt

import (
	"bytes"
	"io"
	"testing"
)

func TestBuildRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewBuildWriter(&buf)
	records := []BuildRecord{{Key: 1, Taxid: 2}, {Key: 0xffffffffff, Taxid: 99}}
	for _, r := range records {
		if err := w.Write(r); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewBuildReader(&buf)
	for i, want := range records {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read record %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("record %d: got %+v, want %+v", i, got, want)
		}
	}
	if _, err := r.Read(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSplitRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewSplitWriter(&buf)
	records := []SplitRecord{
		{ReadSerial: 1, KmerIndex: 0, Key: 123},
		{ReadSerial: 1, KmerIndex: PairedSeparatorIndex, Key: 0},
		{ReadSerial: 1, KmerIndex: 1, Key: 456},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	w.Flush()

	r := NewSplitReader(&buf)
	for i, want := range records {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read record %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("record %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestStagingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewStagingWriter(&buf)
	records := []ReadStaging{
		{ReadSerial: 0, ReadID: "read/1", Length1: 150, TotalKmers: 116},
		{ReadSerial: 1, ReadID: "read/2", Length1: 150, Length2: 150, TotalKmers: 232},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	w.Flush()

	r := NewStagingReader(&buf)
	for i, want := range records {
		got, err := r.Read()
		if err != nil {
			t.Fatalf("Read record %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("record %d: got %+v, want %+v", i, got, want)
		}
		if got.Paired() != (want.Length2 > 0) {
			t.Fatalf("record %d: Paired() mismatch", i)
		}
	}
}
