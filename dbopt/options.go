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

// Package dbopt reads and writes opts.k2d, the small fixed-layout file that
// freezes the minimizer parameters a database was built with. Every
// classification run against a database must use these same parameters, so
// opts.k2d is loaded once and treated as read-only thereafter.
package dbopt

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/eric9n/Kun-peng/kmer"
)

// Magic identifies an opts.k2d file.
var Magic = [8]byte{'.', 'k', 'p', 'o', 'p', 't', 's', 0}

// MainVersion is the opts.k2d format major version.
const MainVersion uint8 = 1

// ErrInvalidFileFormat means the magic number did not match.
var ErrInvalidFileFormat = errors.New("dbopt: invalid opts.k2d format")

// ErrVersionMismatch means the file was written by an incompatible version.
var ErrVersionMismatch = errors.New("dbopt: incompatible opts.k2d version")

// DNADBFlag marks a database built over DNA (as opposed to a protein /
// translated index, not currently supported but reserved in the flag byte
// the way Kraken 2's own opts.k2d reserves bits it doesn't yet use).
const DNADBFlag uint32 = 1 << 0

// Options is the frozen, process-wide set of minimizer parameters.
type Options struct {
	K                 int
	L                 int
	Spaces            int
	ToggleMask        uint64
	ValueBits         int
	MinClearHashValue uint64
	Flags             uint32
}

// DNADB reports whether the DNADBFlag bit is set.
func (o Options) DNADB() bool { return o.Flags&DNADBFlag != 0 }

// Spec adapts Options to the parameter bundle the kmer scanner consumes.
func (o Options) Spec() *kmer.Spec {
	return &kmer.Spec{
		K:                 o.K,
		L:                 o.L,
		S:                 o.Spaces,
		T:                 o.ToggleMask,
		MinClearHashValue: o.MinClearHashValue,
	}
}

var le = binary.LittleEndian

const recordSize = 48

// WriteTo serializes Options to opts.k2d.
func (o Options) WriteTo(w io.Writer) error {
	var buf [8 + 4 + recordSize]byte
	copy(buf[0:8], Magic[:])
	buf[8] = MainVersion
	buf[9] = 0
	le.PutUint16(buf[10:12], 0)

	body := buf[12:]
	le.PutUint32(body[0:4], uint32(o.K))
	le.PutUint32(body[4:8], uint32(o.L))
	le.PutUint32(body[8:12], uint32(o.Spaces))
	le.PutUint64(body[12:20], o.ToggleMask)
	le.PutUint32(body[20:24], uint32(o.ValueBits))
	le.PutUint64(body[24:32], o.MinClearHashValue)
	le.PutUint32(body[32:36], o.Flags)

	_, err := w.Write(buf[:])
	return err
}

// ReadFrom deserializes Options from opts.k2d.
func ReadFrom(r io.Reader) (Options, error) {
	var buf [8 + 4 + recordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Options{}, err
	}
	var magic [8]byte
	copy(magic[:], buf[0:8])
	if magic != Magic {
		return Options{}, ErrInvalidFileFormat
	}
	if buf[8] != MainVersion {
		return Options{}, ErrVersionMismatch
	}

	body := buf[12:]
	o := Options{
		K:                 int(le.Uint32(body[0:4])),
		L:                 int(le.Uint32(body[4:8])),
		Spaces:            int(le.Uint32(body[8:12])),
		ToggleMask:        le.Uint64(body[12:20]),
		ValueBits:         int(le.Uint32(body[20:24])),
		MinClearHashValue: le.Uint64(body[24:32]),
		Flags:             le.Uint32(body[32:36]),
	}
	return o, nil
}

// DefaultToggleMask is Kraken 2's canonical toggle constant, used unless a
// build explicitly overrides it. Any fixed 64-bit constant works so long as
// build and classify agree; this is the one Kun-peng's reference database
// set shipped with.
const DefaultToggleMask uint64 = 0xe37e28c4271b5a2d
