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

package cmd

import (
	"github.com/shenwei356/xopen"
)

// outWriter opens file for writing text output (Kraken lines, kreport2
// summaries), transparently gzip-compressing when file ends in .gz, the
// same way the teacher's concat/count commands write through xopen.
func outWriter(file string) (*xopen.Writer, error) {
	if isStdout(file) {
		return xopen.Wopen("-")
	}
	return xopen.Wopen(file)
}

// inReader opens file for reading, transparently gunzipping, mirroring the
// teacher's concat command's xopen.Ropen use for every input file.
func inReader(file string) (*xopen.Reader, error) {
	return xopen.Ropen(file)
}
