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
	"io"
)

// StagingWriter appends ReadStaging records to a batch's sidecar file.
type StagingWriter struct {
	w *bufio.Writer
}

// NewStagingWriter wraps w for writing.
func NewStagingWriter(w io.Writer) *StagingWriter {
	return &StagingWriter{w: bufio.NewWriter(w)}
}

// Write appends one staging record.
func (sw *StagingWriter) Write(r ReadStaging) error {
	var hdr [4 + 4 + 4 + 4 + 4 + 4 + 2]byte
	le.PutUint32(hdr[0:4], r.ReadSerial)
	le.PutUint32(hdr[4:8], uint32(r.Length1))
	le.PutUint32(hdr[8:12], uint32(r.Length2))
	le.PutUint32(hdr[12:16], uint32(r.Kmers1))
	le.PutUint32(hdr[16:20], uint32(r.TotalKmers))
	le.PutUint32(hdr[20:24], uint32(r.AmbiguousKmers))
	le.PutUint16(hdr[24:26], uint16(len(r.ReadID)))
	if _, err := sw.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := sw.w.WriteString(r.ReadID)
	return err
}

// Flush flushes buffered writes.
func (sw *StagingWriter) Flush() error { return sw.w.Flush() }

// StagingReader streams ReadStaging records from a sidecar file.
type StagingReader struct {
	r *bufio.Reader
}

// NewStagingReader wraps r for reading.
func NewStagingReader(r io.Reader) *StagingReader {
	return &StagingReader{r: bufio.NewReader(r)}
}

// Read returns the next staging record, or io.EOF at end of stream.
func (sr *StagingReader) Read() (ReadStaging, error) {
	var hdr [4 + 4 + 4 + 4 + 4 + 4 + 2]byte
	if _, err := io.ReadFull(sr.r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return ReadStaging{}, err
	}
	idLen := le.Uint16(hdr[24:26])
	idBuf := make([]byte, idLen)
	if idLen > 0 {
		if _, err := io.ReadFull(sr.r, idBuf); err != nil {
			return ReadStaging{}, err
		}
	}
	return ReadStaging{
		ReadSerial:     le.Uint32(hdr[0:4]),
		Length1:        int(le.Uint32(hdr[4:8])),
		Length2:        int(le.Uint32(hdr[8:12])),
		Kmers1:         int(le.Uint32(hdr[12:16])),
		TotalKmers:     int(le.Uint32(hdr[16:20])),
		AmbiguousKmers: int(le.Uint32(hdr[20:24])),
		ReadID:         string(idBuf),
	}, nil
}
