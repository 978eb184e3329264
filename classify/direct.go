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

package classify

import (
	"os"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/kmer"
	"github.com/eric9n/Kun-peng/seqsrc"
)

// DirectStage fuses split, annotate and resolve (C6+C7+C8) in memory: every
// shard's page is mmapped once up front, and each read is scanned, looked
// up and resolved without ever touching the chunk/staging/hit files the
// chunk-mode pipeline writes to disk. Suited to databases small enough
// that holding every shard's page mapped at once is cheap; chunk mode
// (splitr/annotate/resolve or 'classify') keeps only one page resident at
// a time instead.
type DirectStage struct {
	Spec     *kmer.Spec
	ShardCfg hashtable.Config
	Pages    []*hashtable.MappedPage // index by shard; nil for a sparse/missing shard
	Resolve  ResolveStage
}

// OpenDirectStage mmaps every shard page under dbDir and returns a ready
// DirectStage. A shard with no page file on disk is left nil in Pages and
// treated as an always-miss shard, the same as AnnotateStage.annotateShard
// does for a sparse shard.
func OpenDirectStage(dbDir string, spec *kmer.Spec, shardCfg hashtable.Config, resolve ResolveStage) (*DirectStage, error) {
	pages := make([]*hashtable.MappedPage, shardCfg.ShardCount)
	for shard := range pages {
		p, err := hashtable.OpenMappedPage(hashtable.PagePath(dbDir, shard))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			closeAll(pages)
			return nil, err
		}
		pages[shard] = p
	}
	return &DirectStage{Spec: spec, ShardCfg: shardCfg, Pages: pages, Resolve: resolve}, nil
}

func closeAll(pages []*hashtable.MappedPage) {
	for _, p := range pages {
		if p != nil {
			p.Close()
		}
	}
}

// Close unmaps every open shard page.
func (d *DirectStage) Close() error {
	var first error
	for _, p := range d.Pages {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ClassifyAll scans every read from src in order and returns one Call per
// read, assigning serials the same way the split stage does but never
// persisting them.
func (d *DirectStage) ClassifyAll(src seqsrc.Source) ([]Call, error) {
	var calls []Call
	var serial uint32
	for {
		rec, ok, err := src.Next()
		if err != nil {
			return calls, err
		}
		if !ok {
			return calls, nil
		}
		call, err := d.classifyOne(serial, rec)
		if err != nil {
			return calls, err
		}
		calls = append(calls, call)
		serial++
	}
}

func (d *DirectStage) classifyOne(serial uint32, rec seqsrc.Record) (Call, error) {
	hits, total, err := scanRead(rec.Seq, d.Spec)
	if err != nil {
		return Call{}, err
	}

	internalTaxids := make([]uint32, total)
	d.lookupInto(internalTaxids, hits)

	st := chunkfmt.ReadStaging{
		ReadSerial: serial,
		ReadID:     rec.ID,
		Length1:    len(rec.Seq),
		TotalKmers: total,
	}
	return d.Resolve.resolveRead(st, internalTaxids), nil
}

func (d *DirectStage) lookupInto(internalTaxids []uint32, hits []minimizerCall) {
	for _, c := range hits {
		page := d.Pages[d.ShardCfg.ShardOf(c.key)]
		if page == nil {
			continue // sparse shard: every key routed here is a miss
		}
		if taxid, found := page.Lookup(c.key); found {
			internalTaxids[c.kmerIndex] = taxid
		}
	}
}

// ClassifyAllPaired is the paired-end counterpart of ClassifyAll: src may be
// a two-file seqsrc.PairedSource (-P) or an interleaved single file opened
// with seqsrc.OpenInterleaved (-S).
func (d *DirectStage) ClassifyAllPaired(src seqsrc.PairedReader) ([]Call, error) {
	var calls []Call
	var serial uint32
	for {
		r1, r2, ok, err := src.Next()
		if err != nil {
			return calls, err
		}
		if !ok {
			return calls, nil
		}
		call, err := d.classifyOnePaired(serial, r1, r2)
		if err != nil {
			return calls, err
		}
		calls = append(calls, call)
		serial++
	}
}

func (d *DirectStage) classifyOnePaired(serial uint32, r1, r2 seqsrc.Record) (Call, error) {
	hits1, total1, err := scanRead(r1.Seq, d.Spec)
	if err != nil {
		return Call{}, err
	}
	hits2, total2, err := scanRead(r2.Seq, d.Spec)
	if err != nil {
		return Call{}, err
	}

	internalTaxids := make([]uint32, total1+total2)
	d.lookupInto(internalTaxids[:total1], hits1)
	offset2 := total1
	shifted := make([]minimizerCall, len(hits2))
	for i, c := range hits2 {
		shifted[i] = minimizerCall{kmerIndex: offset2 + c.kmerIndex, key: c.key}
	}
	d.lookupInto(internalTaxids, shifted)

	st := chunkfmt.ReadStaging{
		ReadSerial: serial,
		ReadID:     r1.ID,
		Length1:    len(r1.Seq),
		Length2:    len(r2.Seq),
		Kmers1:     total1,
		TotalKmers: total1 + total2,
	}
	return d.Resolve.resolveRead(st, internalTaxids), nil
}
