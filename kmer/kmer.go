// Copyright © 2018 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package kmer implements 2-bit nucleotide encoding and canonical k-mer
// arithmetic shared by the build and classify pipelines.
package kmer

import (
	"bytes"
	"errors"
)

// ErrIllegalBase means that a base beyond the IUPAC symbols was detected.
var ErrIllegalBase = errors.New("kmer: illegal base")

// ErrKOverflow means K is outside the supported 1-32 range.
var ErrKOverflow = errors.New("kmer: K (1-32) overflow")

// ErrKMismatch means two k-mers being compared have different K.
var ErrKMismatch = errors.New("kmer: K mismatch")

// ErrNotConsecutiveKmers means the two k-mers are not adjacent in a sequence.
var ErrNotConsecutiveKmers = errors.New("kmer: not consecutive k-mers")

// Encode converts a nucleotide byte slice to its 2-bit packed representation.
//
// Codes:
//
//	  A    00
//	  C    01
//	  G    10
//	  T    11
//
// Degenerate IUPAC bases are folded onto one of the four codes, the same way
// Kraken 2's MinimizerScanner treats ambiguity codes: only classification
// behavior for unambiguous bases is guaranteed, the rest is a best-effort
// fallback so that a stray ambiguous base does not abort an otherwise usable
// window.
//
//	M       AC     A
//	V       ACG    A
//	H       ACT    A
//	R       AG     A
//	D       AGT    A
//	W       AT     A
//	S       CG     C
//	B       CGT    C
//	Y       CT     C
//	K       GT     G
//	N       ACGT   A
func Encode(kmer []byte) (code uint64, err error) {
	k := len(kmer)
	if k == 0 || k > 32 {
		return 0, ErrKOverflow
	}

	for i := range kmer {
		switch kmer[k-1-i] {
		case 'G', 'g', 'K', 'k':
			code |= 2 << uint64(i*2)
		case 'T', 't', 'U', 'u':
			code |= 3 << uint64(i*2)
		case 'C', 'c', 'S', 's', 'B', 'b', 'Y', 'y':
			code |= 1 << uint64(i*2)
		case 'A', 'a', 'N', 'n', 'M', 'm', 'V', 'v', 'H', 'h', 'R', 'r', 'D', 'd', 'W', 'w':
			code |= 0 << uint64(i*2)
		default:
			return code, ErrIllegalBase
		}
	}
	return code, nil
}

// MustEncodeFromFormerKmer encodes the next k-mer given the previous one,
// assuming both windows are free of illegal bases. This is the rolling
// update used by the sliding-window scanner to avoid re-encoding the whole
// window on every shift.
func MustEncodeFromFormerKmer(kmer []byte, leftKmer []byte, leftCode uint64) (uint64, error) {
	leftCode = leftCode & ((1 << (uint(len(kmer)-1) << 1)) - 1) << 2
	switch kmer[len(kmer)-1] {
	case 'G', 'g', 'K', 'k':
		leftCode |= 2
	case 'T', 't', 'U', 'u':
		leftCode |= 3
	case 'C', 'c', 'S', 's', 'B', 'b', 'Y', 'y':
		leftCode |= 1
	case 'A', 'a', 'N', 'n', 'M', 'm', 'V', 'v', 'H', 'h', 'R', 'r', 'D', 'd', 'W', 'w':
		// leftCode |= 0
	default:
		return leftCode, ErrIllegalBase
	}
	return leftCode, nil
}

// EncodeFromFormerKmer is MustEncodeFromFormerKmer with an adjacency check.
func EncodeFromFormerKmer(kmer []byte, leftKmer []byte, leftCode uint64) (uint64, error) {
	if len(kmer) == 0 {
		return 0, ErrKOverflow
	}
	if len(kmer) != len(leftKmer) {
		return 0, ErrKMismatch
	}
	if !bytes.Equal(kmer[0:len(kmer)-1], leftKmer[1:len(leftKmer)]) {
		return 0, ErrNotConsecutiveKmers
	}
	return MustEncodeFromFormerKmer(kmer, leftKmer, leftCode)
}

// Reverse returns the code of the reversed (not complemented) sequence.
func Reverse(code uint64, k int) (c uint64) {
	if k <= 0 || k > 32 {
		panic(ErrKOverflow)
	}
	for i := 0; i < k; i++ {
		c <<= 2
		c |= code & 3
		code >>= 2
	}
	return
}

// Complement returns the code of the complement sequence.
func Complement(code uint64, k int) (c uint64) {
	if k <= 0 || k > 32 {
		panic(ErrKOverflow)
	}
	for i := 0; i < k; i++ {
		c |= (code&3 ^ 3) << uint(i<<1)
		code >>= 2
	}
	return
}

// RevComp returns the code of the reverse complement sequence.
func RevComp(code uint64, k int) (c uint64) {
	if k <= 0 || k > 32 {
		panic(ErrKOverflow)
	}
	for i := 0; i < k; i++ {
		c <<= 2
		c |= code&3 ^ 3
		code >>= 2
	}
	return
}

var bit2base = [4]byte{'A', 'C', 'G', 'T'}

// Decode converts a packed code back to its nucleotide representation.
func Decode(code uint64, k int) []byte {
	if k <= 0 || k > 32 {
		panic(ErrKOverflow)
	}
	kmer := make([]byte, k)
	for i := 0; i < k; i++ {
		kmer[k-1-i] = bit2base[code&3]
		code >>= 2
	}
	return kmer
}

// Code is a k-mer packed into the low 2*K bits of a uint64, paired with its K.
type Code struct {
	Value uint64
	K     int
}

// NewCode builds a Code from a raw nucleotide slice.
func NewCode(kmer []byte) (Code, error) {
	code, err := Encode(kmer)
	if err != nil {
		return Code{}, err
	}
	return Code{code, len(kmer)}, nil
}

// NewCodeFromFormerOne rolls a Code forward from its predecessor.
func NewCodeFromFormerOne(kmer []byte, leftKmer []byte, prev Code) (Code, error) {
	code, err := EncodeFromFormerKmer(kmer, leftKmer, prev.Value)
	if err != nil {
		return Code{}, err
	}
	return Code{code, len(kmer)}, nil
}

// Equal reports whether two Codes represent the same k-mer.
func (c Code) Equal(o Code) bool {
	return c.K == o.K && c.Value == o.Value
}

// Rev returns the Code of the reversed sequence.
func (c Code) Rev() Code { return Code{Reverse(c.Value, c.K), c.K} }

// Comp returns the Code of the complement sequence.
func (c Code) Comp() Code { return Code{Complement(c.Value, c.K), c.K} }

// RevComp returns the Code of the reverse complement sequence.
func (c Code) RevComp() Code { return Code{RevComp(c.Value, c.K), c.K} }

// Canonical returns whichever of c and its reverse complement sorts lower,
// mirroring Kraken 2's canonical k-mer selection.
func (c Code) Canonical() Code {
	rc := c.RevComp()
	if rc.Value < c.Value {
		return rc
	}
	return c
}

// Canonical is the free-function form of Code.Canonical, operating directly
// on a packed code (used on the hot path where boxing into a Code is
// wasteful).
func Canonical(code uint64, k int) uint64 {
	rc := RevComp(code, k)
	if rc < code {
		return rc
	}
	return code
}

// Bytes returns the k-mer as a nucleotide byte slice.
func (c Code) Bytes() []byte { return Decode(c.Value, c.K) }

// String returns the k-mer as a nucleotide string.
func (c Code) String() string { return string(Decode(c.Value, c.K)) }
