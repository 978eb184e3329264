package kmer

import "testing"

func TestScannerEmitsOnePerWindow(t *testing.T) {
	seq := []byte("ACGTACGTACGTACGTACGTACGTACGTACGTACGT")
	spec := &Spec{K: 20, L: 15, S: 3, T: 0xe37e28c4271b5a2d}
	sc, err := NewScanner(seq, spec)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	count := 0
	for {
		_, ok := sc.Next()
		if !ok {
			break
		}
		count++
	}
	want := len(seq) - spec.K + 1
	if count != want {
		t.Fatalf("got %d minimizer calls, want %d", count, want)
	}
}

func TestScannerBreaksOnAmbiguousBase(t *testing.T) {
	seq := []byte("ACGTACGTACNNNNNNNNNNNNNNNNNNNNNNACGTACGTAC")
	spec := &Spec{K: 10, L: 8, S: 2, T: 0x1234}
	sc, err := NewScanner(seq, spec)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	for {
		_, ok := sc.Next()
		if !ok {
			break
		}
	}
	// merely must not panic and must terminate; the exact count depends on
	// the lengths of the valid-base runs on either side of the Ns.
}

func TestScannerShortSequenceYieldsNothing(t *testing.T) {
	seq := []byte("ACGT")
	spec := &Spec{K: 20, L: 15, S: 3, T: 0}
	sc, err := NewScanner(seq, spec)
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	if _, ok := sc.Next(); ok {
		t.Fatalf("expected no minimizer from a sequence shorter than k")
	}
}

func TestSpacesMaskCapsAtLMinusOne(t *testing.T) {
	m := spacesMask(4, 100)
	// with l=4, s is capped at l-1 = 3, so s=100 clears the same pairs as s=3
	want := spacesMask(4, 3)
	if m != want {
		t.Fatalf("spacesMask did not cap s at l-1: got %x want %x", m, want)
	}
}

func TestScrambleIsDeterministic(t *testing.T) {
	spec := &Spec{K: 20, L: 15, S: 4, T: 0xabcdef}
	lmer, _ := Encode([]byte("ACGTACGTACGTACG"))
	a := Scramble(lmer, spec)
	b := Scramble(lmer, spec)
	if a != b {
		t.Fatalf("Scramble is not deterministic: %d != %d", a, b)
	}
}
