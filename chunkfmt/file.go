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

package chunkfmt

import (
	"bufio"
	"encoding/binary"
	"io"
)

var le = binary.LittleEndian

const buildRecordSize = 8 + 4
const splitRecordSize = 4 + 2 + 8
const hitRecordSize = 4 + 2 + 4

// BuildWriter appends BuildRecords to a shard's build chunk file.
type BuildWriter struct {
	w   *bufio.Writer
	buf [buildRecordSize]byte
}

// NewBuildWriter wraps w for writing.
func NewBuildWriter(w io.Writer) *BuildWriter {
	return &BuildWriter{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (bw *BuildWriter) Write(r BuildRecord) error {
	le.PutUint64(bw.buf[0:8], r.Key)
	le.PutUint32(bw.buf[8:12], r.Taxid)
	_, err := bw.w.Write(bw.buf[:])
	return err
}

// Flush flushes buffered writes to the underlying writer.
func (bw *BuildWriter) Flush() error { return bw.w.Flush() }

// BuildReader streams BuildRecords from a shard's build chunk file.
type BuildReader struct {
	r   io.Reader
	buf [buildRecordSize]byte
}

// NewBuildReader wraps r for reading.
func NewBuildReader(r io.Reader) *BuildReader {
	return &BuildReader{r: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF at end of stream.
func (br *BuildReader) Read() (BuildRecord, error) {
	if _, err := io.ReadFull(br.r, br.buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return BuildRecord{}, err
	}
	return BuildRecord{
		Key:   le.Uint64(br.buf[0:8]),
		Taxid: le.Uint32(br.buf[8:12]),
	}, nil
}

// SplitWriter appends SplitRecords to a shard's split chunk file.
type SplitWriter struct {
	w   *bufio.Writer
	buf [splitRecordSize]byte
}

// NewSplitWriter wraps w for writing.
func NewSplitWriter(w io.Writer) *SplitWriter {
	return &SplitWriter{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (sw *SplitWriter) Write(r SplitRecord) error {
	le.PutUint32(sw.buf[0:4], r.ReadSerial)
	le.PutUint16(sw.buf[4:6], r.KmerIndex)
	le.PutUint64(sw.buf[6:14], r.Key)
	_, err := sw.w.Write(sw.buf[:])
	return err
}

// Flush flushes buffered writes.
func (sw *SplitWriter) Flush() error { return sw.w.Flush() }

// SplitReader streams SplitRecords from a shard's split chunk file.
type SplitReader struct {
	r   io.Reader
	buf [splitRecordSize]byte
}

// NewSplitReader wraps r for reading.
func NewSplitReader(r io.Reader) *SplitReader {
	return &SplitReader{r: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF at end of stream.
func (sr *SplitReader) Read() (SplitRecord, error) {
	if _, err := io.ReadFull(sr.r, sr.buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return SplitRecord{}, err
	}
	return SplitRecord{
		ReadSerial: le.Uint32(sr.buf[0:4]),
		KmerIndex:  le.Uint16(sr.buf[4:6]),
		Key:        le.Uint64(sr.buf[6:14]),
	}, nil
}

// HitWriter appends HitRecords to a shard's hit file.
type HitWriter struct {
	w   *bufio.Writer
	buf [hitRecordSize]byte
}

// NewHitWriter wraps w for writing.
func NewHitWriter(w io.Writer) *HitWriter {
	return &HitWriter{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (hw *HitWriter) Write(r HitRecord) error {
	le.PutUint32(hw.buf[0:4], r.ReadSerial)
	le.PutUint16(hw.buf[4:6], r.KmerIndex)
	le.PutUint32(hw.buf[6:10], r.Taxid)
	_, err := hw.w.Write(hw.buf[:])
	return err
}

// Flush flushes buffered writes.
func (hw *HitWriter) Flush() error { return hw.w.Flush() }

// HitReader streams HitRecords from a shard's hit file.
type HitReader struct {
	r   io.Reader
	buf [hitRecordSize]byte
}

// NewHitReader wraps r for reading.
func NewHitReader(r io.Reader) *HitReader {
	return &HitReader{r: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF at end of stream.
func (hr *HitReader) Read() (HitRecord, error) {
	if _, err := io.ReadFull(hr.r, hr.buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return HitRecord{}, err
	}
	return HitRecord{
		ReadSerial: le.Uint32(hr.buf[0:4]),
		KmerIndex:  le.Uint16(hr.buf[4:6]),
		Taxid:      le.Uint32(hr.buf[6:10]),
	}, nil
}
