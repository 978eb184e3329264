// Copyright © 2018-2020 Wei Shen <shenwei356@gmail.com>
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

package kmer

import "fmt"

// ErrInvalidParams is returned when k, l or spaces are out of range.
var ErrInvalidParams = fmt.Errorf("kmer: invalid scanner parameters")

// Spec bundles the process-wide minimizer parameters. An index and every
// read classified against it must share the same Spec.
type Spec struct {
	K int // k-mer (window) length, 1..31
	L int // minimizer (l-mer) length, 1..31, L <= K
	S int // number of spaced-seed don't-care bit-pairs
	T uint64 // toggle mask XORed in after spacing
	MinClearHashValue uint64 // minimizers scoring below this are dropped; 0 disables
}

// spacesMask clears bit-pairs at positions {1,3,5,...,2s-1} counted from the
// least-significant bit-pair inward, one mask per l-mer, capped at l-1 pairs.
// This is a fixed, deterministic function of s: it does not depend on the
// base content of the l-mer, only its length.
func spacesMask(l, s int) uint64 {
	if s > l-1 {
		s = l - 1
	}
	if s < 0 {
		s = 0
	}
	var clear uint64
	for i := 0; i < s; i++ {
		pos := uint(2 * (2*i + 1)) // bit offset of bit-pair 2i+1
		clear |= 3 << pos
	}
	return clear
}

// maskSpaces clears the spaced-seed bit-pairs of an l-mer.
func maskSpaces(lmer uint64, l, s int) uint64 {
	return lmer &^ spacesMask(l, s)
}

// Scramble computes the ordering key for an l-mer: mask the spaced-seed
// bit-pairs, then XOR with the toggle mask. The result, not the raw l-mer,
// is what the monotonic queue compares and what becomes the minimizer key.
func Scramble(lmer uint64, spec *Spec) uint64 {
	return maskSpaces(lmer, spec.L, spec.S) ^ spec.T
}

// Minimizer is one minimizer call emitted by the Scanner: the 0-based
// position of the k-window it was extracted from, and its scrambled key.
type Minimizer struct {
	Pos int
	Key uint64
}

// window is one live candidate in the monotonic queue: its scrambled
// scramble value and the absolute l-mer index that produced it.
type window struct {
	idx  int
	scr  uint64
}

// Scanner extracts the canonical, spaced-seed-scrambled minimizer stream
// from a byte iterator over nucleotides, following Kraken 2's sliding
// window + monotonic deque scheme. Any byte outside A/C/G/T (case
// insensitive) breaks the current window; scanning resumes at the next
// valid base as though a fresh sequence had started there.
type Scanner struct {
	spec *Spec

	seq []byte
	pos int // index of next base to consume from seq

	fwd, rc   uint64 // rolling forward/revcomp l-mer, valid bases only
	validRun  int    // count of consecutive valid bases loaded into fwd/rc

	deque []window // monotonic queue of candidate l-mers within the current k-window, ascending scramble
	// lIdx is the absolute index (0-based, over valid-base runs) of the
	// most recently completed l-mer.
	lIdx int
}

// NewScanner returns a Scanner over seq using the given parameters.
func NewScanner(seq []byte, spec *Spec) (*Scanner, error) {
	if spec.K < 1 || spec.K > 31 || spec.L < 1 || spec.L > 31 || spec.L > spec.K {
		return nil, ErrInvalidParams
	}
	return &Scanner{
		spec:  spec,
		seq:   seq,
		lIdx:  -1,
		deque: make([]window, 0, spec.K-spec.L+2),
	}, nil
}

func baseCode(b byte) (uint64, bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

func (s *Scanner) reset() {
	s.fwd, s.rc = 0, 0
	s.validRun = 0
	s.deque = s.deque[:0]
}

// pushLmer folds a newly completed l-mer into the monotonic queue, evicting
// candidates that have scrolled out of the trailing k-window or that can
// never be the minimum (Kraken 2's classic deque minimizer trick).
func (s *Scanner) pushLmer(lIdx int) {
	l := s.spec.L
	mask := uint64(1)<<(uint(l)*2) - 1
	canon := s.fwd & mask
	if rc := s.rc >> (uint(64-2*l)); rc < canon {
		canon = rc
	}
	scr := Scramble(canon, s.spec)

	windowLmers := s.spec.K - s.spec.L + 1
	oldest := lIdx - windowLmers + 1
	// drop candidates that fell out of the trailing window
	for len(s.deque) > 0 && s.deque[0].idx < oldest {
		s.deque = s.deque[1:]
	}
	// drop candidates that are no better than the newcomer (ties favor
	// the leftmost, so strictly-greater entries are evicted from the back)
	for len(s.deque) > 0 && s.deque[len(s.deque)-1].scr > scr {
		s.deque = s.deque[:len(s.deque)-1]
	}
	s.deque = append(s.deque, window{idx: lIdx, scr: scr})
}

// Next returns the next minimizer call, or ok=false at end of input.
func (s *Scanner) Next() (m Minimizer, ok bool) {
	k, l := s.spec.K, s.spec.L
	windowLmers := k - l + 1

	for s.pos < len(s.seq) {
		b := s.seq[s.pos]
		s.pos++
		code, valid := baseCode(b)
		if !valid {
			s.reset()
			continue
		}

		s.fwd = (s.fwd << 2) | code
		s.rc = (s.rc >> 2) | ((code ^ 3) << 62)
		s.validRun++

		if s.validRun < l {
			continue
		}

		s.lIdx++
		s.pushLmer(s.lIdx)

		// a k-window is complete once we've accumulated windowLmers l-mers
		// within an unbroken valid-base run
		if s.validRun-l+1 < windowLmers {
			continue
		}

		if s.spec.MinClearHashValue != 0 && s.deque[0].scr < s.spec.MinClearHashValue {
			// suppressed: still a valid window, just no minimizer emitted
			continue
		}

		kPos := s.pos - k
		return Minimizer{Pos: kPos, Key: s.deque[0].scr}, true
	}
	return Minimizer{}, false
}
