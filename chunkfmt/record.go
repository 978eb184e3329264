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

// Package chunkfmt defines the on-disk record shapes and append-only file
// formats that carry minimizers between the build/classify stages: build
// chunk files (key, external taxid) consumed by page construction, split
// chunk files (read_serial, kmer_index, key) consumed by annotate, and hit
// files (read_serial, kmer_index, taxid) consumed by resolve.
package chunkfmt

// BuildRecord is one (minimizer key, external taxid) pair bucketed into a
// build chunk file by shard_of(key).
type BuildRecord struct {
	Key   uint64
	Taxid uint32
}

// BuildRecordSlice is a slice of BuildRecord, sortable by Key; Pass B sorts
// each shard's chunk records by key before inserting them into the page.
type BuildRecordSlice []BuildRecord

func (s BuildRecordSlice) Len() int           { return len(s) }
func (s BuildRecordSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s BuildRecordSlice) Less(i, j int) bool { return s[i].Key < s[j].Key }

// AmbiguousTaxid is the sentinel taxid for an ambiguous k-mer window: resolve
// leaves it out of the confidence denominator and reports it as an "A" run.
// The scanner emits no minimizer for a window that overlaps a non-ACGT base,
// so the split and annotate stages never produce this value.
const AmbiguousTaxid = ^uint32(0)

// SplitRecord is one (read_serial, kmer_index, minimizer key) triple written
// by the split stage into a shard's split chunk file.
type SplitRecord struct {
	ReadSerial uint32
	KmerIndex  uint16
	Key        uint64
}

// PairedSeparatorIndex marks the synthetic kmer_index inserted between a
// paired read's two mates so the resolve stage knows exactly where to place
// the `|:|` separator in the Kraken output line, without having to infer it
// from a jump in minimizer position.
const PairedSeparatorIndex = ^uint16(0)

// HitRecord is one (read_serial, kmer_index, internal taxid) triple written
// by the annotate stage. Taxid is the internal taxid found, or 0 for a hash
// miss; annotate never writes AmbiguousTaxid.
type HitRecord struct {
	ReadSerial uint32
	KmerIndex  uint16
	Taxid      uint32
}

// ReadStaging is the small per-read sidecar record the split stage emits
// alongside its shard chunk files, carrying everything resolve needs that
// isn't itself a minimizer: the read's identity, lengths, and total k-mer
// count (the denominator of the confidence score).
type ReadStaging struct {
	ReadSerial     uint32
	ReadID         string
	Length1        int
	Length2        int // 0 for unpaired reads
	Kmers1         int // mate-1 k-mer window count; boundary for the `|:|` separator
	TotalKmers     int
	AmbiguousKmers int
}

// Paired reports whether this staging record describes a paired-end read.
func (r ReadStaging) Paired() bool { return r.Length2 > 0 }
