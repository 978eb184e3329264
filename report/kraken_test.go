package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eric9n/Kun-peng/classify"
)

func TestWriteCallUnpaired(t *testing.T) {
	var buf bytes.Buffer
	kw := NewKrakenWriter(&buf)
	call := classify.Call{
		ReadID:      "r1",
		Classified:  true,
		CalledTaxid: 100,
		Length1:     100,
		RunLength:   []classify.RunToken{{Taxid: 100, Count: 66}},
	}
	if err := kw.WriteCall(call); err != nil {
		t.Fatalf("WriteCall: %v", err)
	}
	kw.Flush()

	want := "C\tr1\t100\t100\t100:66\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteCallUnclassified(t *testing.T) {
	var buf bytes.Buffer
	kw := NewKrakenWriter(&buf)
	call := classify.Call{ReadID: "r2", Classified: false, Length1: 50, RunLength: []classify.RunToken{{Miss: true, Count: 16}}}
	if err := kw.WriteCall(call); err != nil {
		t.Fatalf("WriteCall: %v", err)
	}
	kw.Flush()
	if !strings.HasPrefix(buf.String(), "U\tr2\t0\t50\t0:16") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteCallPairedLength(t *testing.T) {
	var buf bytes.Buffer
	kw := NewKrakenWriter(&buf)
	call := classify.Call{
		ReadID: "p1", Classified: true, CalledTaxid: 2, Length1: 30, Length2: 30,
		RunLength: []classify.RunToken{{Taxid: 2, Count: 10}, {Separator: true, Count: 1}, {Taxid: 2, Count: 10}},
	}
	if err := kw.WriteCall(call); err != nil {
		t.Fatalf("WriteCall: %v", err)
	}
	kw.Flush()
	want := "C\tp1\t2\t30|30\t2:10 |:| 2:10\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestFormatRunLengthAllTokenKinds(t *testing.T) {
	tokens := []classify.RunToken{
		{Taxid: 9, Count: 3},
		{Ambiguous: true, Count: 5},
		{Miss: true, Count: 2},
		{Separator: true, Count: 1},
	}
	got := FormatRunLength(tokens)
	want := "9:3 A:5 0:2 |:|"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
