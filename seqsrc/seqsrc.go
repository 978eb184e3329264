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

// Package seqsrc is the boundary between on-disk sequence files and the
// rest of the pipeline: a small iterator interface over (read id, sequence,
// quality) triples, implemented for gzip-transparent FASTA/FASTQ, and a
// paired-end wrapper that zips two single-end sources together.
package seqsrc

import (
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

// Record is one sequence pulled from a Source: a read or reference entry
// with its identifier, bases, and (for FASTQ) quality string.
type Record struct {
	ID   string
	Seq  []byte
	Qual []byte // nil for FASTA input
}

// Source yields Records one at a time until exhausted.
type Source interface {
	Next() (Record, bool, error)
	Close() error
}

// fastxSource adapts a fastx.Reader, which already auto-detects FASTA vs
// FASTQ and transparently decompresses gzip/bzip2/xz via xopen underneath.
type fastxSource struct {
	r *fastx.Reader
}

// Open returns a Source over path, auto-detecting format and compression.
func Open(path string) (Source, error) {
	r, err := fastx.NewDefaultReader(path)
	if err != nil {
		return nil, err
	}
	return &fastxSource{r: r}, nil
}

func (s *fastxSource) Next() (Record, bool, error) {
	rec, err := s.r.Read()
	if err != nil {
		if err == io.EOF {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	rc := Record{
		ID:  string(rec.ID),
		Seq: append([]byte(nil), rec.Seq.Seq...),
	}
	if len(rec.Seq.Qual) > 0 {
		rc.Qual = append([]byte(nil), rec.Seq.Qual...)
	}
	return rc, true, nil
}

func (s *fastxSource) Close() error { return nil }

// PairedReader is implemented by anything that yields synchronized mate
// pairs: PairedSource (two separate mate files) and interleavedSource (one
// file with mates alternating record by record).
type PairedReader interface {
	Next() (r1, r2 Record, ok bool, err error)
	Close() error
}

// PairedSource zips two single-end Sources into (mate1, mate2) pairs. A
// length mismatch between the two files is a hard error: Kun-peng expects
// a one-to-one correspondence, not best-effort alignment by read id.
type PairedSource struct {
	m1, m2 Source
}

// OpenPaired opens two mate files as a single PairedSource.
func OpenPaired(path1, path2 string) (*PairedSource, error) {
	m1, err := Open(path1)
	if err != nil {
		return nil, err
	}
	m2, err := Open(path2)
	if err != nil {
		m1.Close()
		return nil, err
	}
	return NewPaired(m1, m2), nil
}

// NewPaired wraps two already-open Sources as a PairedSource, without
// going through the filesystem. Useful for wiring in sources other than
// fastx files (and for tests).
func NewPaired(m1, m2 Source) *PairedSource {
	return &PairedSource{m1: m1, m2: m2}
}

// ErrMateCountMismatch means the two mate files had different read counts.
var ErrMateCountMismatch = errMateCountMismatch{}

type errMateCountMismatch struct{}

func (errMateCountMismatch) Error() string {
	return "seqsrc: paired mate files have different numbers of reads"
}

// Next returns the next (mate1, mate2) pair.
func (p *PairedSource) Next() (r1, r2 Record, ok bool, err error) {
	r1, ok1, err := p.m1.Next()
	if err != nil {
		return Record{}, Record{}, false, err
	}
	r2, ok2, err := p.m2.Next()
	if err != nil {
		return Record{}, Record{}, false, err
	}
	if ok1 != ok2 {
		return Record{}, Record{}, false, ErrMateCountMismatch
	}
	return r1, r2, ok1, nil
}

// Close closes both mate sources.
func (p *PairedSource) Close() error {
	err1 := p.m1.Close()
	err2 := p.m2.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// interleavedSource splits one Source's records into consecutive (mate1,
// mate2) pairs, for the -S / --interleaved form of paired input where both
// mates live in a single file, one after the other.
type interleavedSource struct {
	src Source
}

// OpenInterleaved opens path as a single file of interleaved mate pairs.
func OpenInterleaved(path string) (PairedReader, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &interleavedSource{src: src}, nil
}

func (s *interleavedSource) Next() (r1, r2 Record, ok bool, err error) {
	r1, ok1, err := s.src.Next()
	if err != nil || !ok1 {
		return Record{}, Record{}, false, err
	}
	r2, ok2, err := s.src.Next()
	if err != nil {
		return Record{}, Record{}, false, err
	}
	if !ok2 {
		return Record{}, Record{}, false, ErrMateCountMismatch
	}
	return r1, r2, true, nil
}

func (s *interleavedSource) Close() error { return s.src.Close() }
