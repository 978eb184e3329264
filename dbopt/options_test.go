package dbopt

import (
	"bytes"
	"testing"
)

func TestOptionsRoundTrip(t *testing.T) {
	o := Options{
		K:                 35,
		L:                 31,
		Spaces:            7,
		ToggleMask:        DefaultToggleMask,
		ValueBits:         24,
		MinClearHashValue: 0,
		Flags:             DNADBFlag,
	}

	var buf bytes.Buffer
	if err := o.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got != o {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, o)
	}
	if !got.DNADB() {
		t.Fatalf("expected DNADB flag to survive round trip")
	}
}

func TestReadFromRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, 60))
	if _, err := ReadFrom(buf); err != ErrInvalidFileFormat {
		t.Fatalf("expected ErrInvalidFileFormat, got %v", err)
	}
}
