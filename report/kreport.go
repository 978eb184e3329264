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

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/eric9n/Kun-peng/classify"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// KreportWriter rolls up a batch of resolved calls into a kreport2-style
// clade summary: every taxon's row reports the percentage, clade count
// (itself plus every descendant), direct count, rank code, external taxid
// and indented name, visited in the taxonomy's DFS pre-order.
type KreportWriter struct {
	w                *bufio.Writer
	Taxo             *taxonomy.Tree
	ReportZeroCounts bool
}

// NewKreportWriter wraps w for writing, rolling counts up taxo.
func NewKreportWriter(w io.Writer, taxo *taxonomy.Tree, reportZeroCounts bool) *KreportWriter {
	return &KreportWriter{w: bufio.NewWriter(w), Taxo: taxo, ReportZeroCounts: reportZeroCounts}
}

// Flush flushes buffered writes.
func (kw *KreportWriter) Flush() error { return kw.w.Flush() }

// WriteCalls aggregates every call's direct hit by external taxid, rolls
// counts up the tree, and writes the full report.
func (kw *KreportWriter) WriteCalls(calls []classify.Call) error {
	direct := make(map[uint32]int)
	unclassified := 0
	for _, c := range calls {
		if !c.Classified {
			unclassified++
			continue
		}
		internal, ok := kw.Taxo.ExternalID[c.CalledTaxid]
		if !ok {
			continue
		}
		direct[internal]++
	}
	total := len(calls)
	clade := cladeCounts(kw.Taxo, direct)

	if unclassified > 0 || kw.ReportZeroCounts {
		pct := percent(unclassified, total)
		if err := kw.writeLine(pct, unclassified, unclassified, "U", 0, "unclassified", 0); err != nil {
			return err
		}
	}

	maxID := kw.Taxo.MaxInternalID()
	for idx := taxonomy.Root; idx <= maxID; idx++ {
		count := clade[idx]
		if count == 0 && !kw.ReportZeroCounts {
			continue
		}
		pct := percent(count, total)
		rank := kw.Taxo.RankLabel(idx)
		if err := kw.writeLine(pct, count, direct[idx], rank, kw.Taxo.Nodes[idx].ExternalID, kw.Taxo.Name(idx), kw.Taxo.Depth(idx)); err != nil {
			return err
		}
	}
	return nil
}

func (kw *KreportWriter) writeLine(pct float64, clade, direct int, rank string, externalID uint32, name string, depth uint32) error {
	indent := strings.Repeat("  ", int(depth))
	_, err := fmt.Fprintf(kw.w, "%6.2f\t%d\t%d\t%s\t%d\t%s%s\n", pct, clade, direct, rank, externalID, indent, name)
	return err
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// cladeCounts rolls direct hit counts up the tree: clade[t] = direct[t] plus
// every descendant's clade count. Processing internal ids from highest to
// lowest is sufficient because the dense DFS pre-order guarantees every
// node's index is smaller than all of its descendants', so by the time a
// node is visited its children have already folded their own subtrees in.
func cladeCounts(t *taxonomy.Tree, direct map[uint32]int) []int {
	n := int(t.MaxInternalID()) + 1
	clade := make([]int, n)
	for taxid, c := range direct {
		if int(taxid) < n {
			clade[taxid] += c
		}
	}
	for idx := n - 1; idx >= int(taxonomy.Root); idx-- {
		parent := t.Parent(uint32(idx))
		if parent == taxonomy.Unclassified {
			continue
		}
		clade[parent] += clade[idx]
	}
	return clade
}
