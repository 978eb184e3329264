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

// Package report formats resolve-stage calls into Kraken-compatible output:
// the per-read classification line, and the kreport2 clade-rolled summary.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eric9n/Kun-peng/classify"
)

// KrakenWriter appends one tab-separated classification line per read.
type KrakenWriter struct {
	w *bufio.Writer
}

// NewKrakenWriter wraps w for writing.
func NewKrakenWriter(w io.Writer) *KrakenWriter {
	return &KrakenWriter{w: bufio.NewWriter(w)}
}

// WriteCall appends one read's line: C|U, read id, called taxid, length (or
// L1|L2 for paired reads), and the run-length list of per-k-mer mappings.
func (kw *KrakenWriter) WriteCall(c classify.Call) error {
	status := "U"
	if c.Classified {
		status = "C"
	}
	length := strconv.Itoa(c.Length1)
	if c.Length2 > 0 {
		length = fmt.Sprintf("%d|%d", c.Length1, c.Length2)
	}
	_, err := fmt.Fprintf(kw.w, "%s\t%s\t%d\t%s\t%s\n", status, c.ReadID, c.CalledTaxid, length, FormatRunLength(c.RunLength))
	return err
}

// Flush flushes buffered writes.
func (kw *KrakenWriter) Flush() error { return kw.w.Flush() }

// FormatRunLength renders a run-length token list as Kraken's
// space-separated `taxid:count` / `A:count` / `0:count` / `|:|` text.
func FormatRunLength(tokens []classify.RunToken) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		switch {
		case tok.Separator:
			parts = append(parts, "|:|")
		case tok.Ambiguous:
			parts = append(parts, fmt.Sprintf("A:%d", tok.Count))
		case tok.Miss:
			parts = append(parts, fmt.Sprintf("0:%d", tok.Count))
		default:
			parts = append(parts, fmt.Sprintf("%d:%d", tok.Taxid, tok.Count))
		}
	}
	return strings.Join(parts, " ")
}
