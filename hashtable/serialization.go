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
//
// hash_N.k2d layout (all integers little-endian):
//
//	offset  bytes  name         type
//	0       8      magic        [8]byte = ".kphash\0"
//	8       1      MainVersion  uint8
//	9       1      ValueBits    uint8
//	10      2      reserved
//	12      4      Capacity     uint32
//	16      4      Size         uint32 (occupied slot count)
//	20      44     reserved, zero-padded to 64 bytes
//	64      cap*4  cells        []uint32 LE

package hashtable

import (
	"encoding/binary"
	"errors"
	"io"
)

// MainVersion is the hash_N.k2d format major version.
const MainVersion uint8 = 1

// HeaderSize is the fixed on-disk header size of a page file.
const HeaderSize = 64

// Magic identifies a hash_N.k2d page file.
var Magic = [8]byte{'.', 'k', 'p', 'h', 'a', 's', 'h', 0}

// ErrInvalidFileFormat means the magic number did not match.
var ErrInvalidFileFormat = errors.New("hashtable: invalid hash_N.k2d format")

var le = binary.LittleEndian

// WriteTo serializes a Page to w as a complete hash_N.k2d file.
func (p *Page) WriteTo(w io.Writer) (int64, error) {
	var hdr [HeaderSize]byte
	copy(hdr[0:8], Magic[:])
	hdr[8] = MainVersion
	hdr[9] = byte(p.ValueBits)
	le.PutUint32(hdr[12:16], uint32(len(p.Cells)))
	le.PutUint32(hdr[16:20], uint32(p.Size()))

	n, err := w.Write(hdr[:])
	total := int64(n)
	if err != nil {
		return total, err
	}

	buf := make([]byte, len(p.Cells)*4)
	for i, c := range p.Cells {
		le.PutUint32(buf[i*4:], c)
	}
	n, err = w.Write(buf)
	total += int64(n)
	return total, err
}

// ReadPage deserializes a full page file from r into memory.
func ReadPage(r io.Reader) (*Page, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	var magic [8]byte
	copy(magic[:], hdr[0:8])
	if magic != Magic {
		return nil, ErrInvalidFileFormat
	}
	valueBits := int(hdr[9])
	capacity := le.Uint32(hdr[12:16])

	buf := make([]byte, int(capacity)*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	cells := make([]uint32, capacity)
	for i := range cells {
		cells[i] = le.Uint32(buf[i*4:])
	}
	return &Page{Cells: cells, ValueBits: valueBits}, nil
}

// DecodeHeader reads just the fixed header, useful for loaders that go on
// to mmap the cell region themselves instead of copying it into a slice.
func DecodeHeader(hdr []byte) (valueBits int, capacity, size uint32, err error) {
	if len(hdr) < HeaderSize {
		return 0, 0, 0, io.ErrShortBuffer
	}
	var magic [8]byte
	copy(magic[:], hdr[0:8])
	if magic != Magic {
		return 0, 0, 0, ErrInvalidFileFormat
	}
	return int(hdr[9]), le.Uint32(hdr[12:16]), le.Uint32(hdr[16:20]), nil
}
