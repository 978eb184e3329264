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

package build

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shenwei356/breader"
)

type seqidMapRow struct {
	Accession string
	Taxid     uint32
}

// LoadSeqidToTaxid reads seqid2taxid.map (accession<TAB>external_taxid, one
// pair per line) into memory, the same tab-delimited two-column convention
// breader is already used for against nodes.dmp/names.dmp in taxonomy.go.
func LoadSeqidToTaxid(path string) (map[string]uint32, error) {
	parse := func(line string) (interface{}, bool, error) {
		items := strings.SplitN(line, "\t", 2)
		if len(items) != 2 {
			return nil, false, nil
		}
		taxid, err := strconv.Atoi(strings.TrimSpace(items[1]))
		if err != nil {
			return nil, false, err
		}
		return seqidMapRow{Accession: strings.TrimSpace(items[0]), Taxid: uint32(taxid)}, true, nil
	}

	reader, err := breader.NewBufferedReader(path, 8, 100, parse)
	if err != nil {
		return nil, fmt.Errorf("build: reading %s: %w", path, err)
	}

	m := make(map[string]uint32, 1<<16)
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, fmt.Errorf("build: parsing %s: %w", path, chunk.Err)
		}
		for _, data := range chunk.Data {
			row := data.(seqidMapRow)
			m[row.Accession] = row.Taxid
		}
	}
	return m, nil
}
