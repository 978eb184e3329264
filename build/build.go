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

// Package build implements the two-pass index builder (C5): Pass A streams
// reference sequences into per-shard chunk files of (minimizer key,
// external taxid) records, Pass B turns each shard's chunk file into a
// compact hash page, resolving collisions by LCA.
package build

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/twotwotwo/sorts"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/kmer"
	"github.com/eric9n/Kun-peng/seqsrc"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// Config bundles everything the builder needs to know about the target
// index's shape; it is derived from dbopt.Options plus a capacity estimate.
type Config struct {
	Opts                 dbopt.Options
	HashCapacityPerShard uint64
	ShardCount           int
	OutDir               string
	Threads              int
}

// Builder drives Pass A (chunking) and Pass B (page construction) against
// a taxonomy tree and a seqid->external-taxid map prepared by the caller.
type Builder struct {
	cfg          Config
	taxo         *taxonomy.Tree
	seqidToTaxid map[string]uint32
}

// NewBuilder returns a Builder for cfg, using taxo for LCA merges and
// seqidToTaxid to tag each reference sequence with its external taxid.
func NewBuilder(cfg Config, taxo *taxonomy.Tree, seqidToTaxid map[string]uint32) *Builder {
	return &Builder{cfg: cfg, taxo: taxo, seqidToTaxid: seqidToTaxid}
}

func (b *Builder) shardConfig() hashtable.Config {
	return hashtable.Config{
		ValueBits:            b.cfg.Opts.ValueBits,
		ValueMask:            uint32(1)<<uint(b.cfg.Opts.ValueBits) - 1,
		TotalCapacity:        uint64(b.cfg.ShardCount) * b.cfg.HashCapacityPerShard,
		HashCapacityPerShard: b.cfg.HashCapacityPerShard,
		ShardCount:           b.cfg.ShardCount,
	}
}

func (b *Builder) chunkPath(shard int) string {
	return filepath.Join(b.cfg.OutDir, fmt.Sprintf("chunk_%d.tmp", shard))
}

// PassA streams every sequence in libraryFiles, extracts canonical
// minimizers, and buckets (key, external taxid) records into one chunk
// file per shard. It returns a cardinality estimate of the distinct keys
// seen, for callers that want to double-check their capacity planning
// after the fact.
func (b *Builder) PassA(libraryFiles []string) (*CapacityEstimator, error) {
	if err := os.MkdirAll(b.cfg.OutDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "build: creating output directory")
	}

	writers := make([]*chunkfmt.BuildWriter, b.cfg.ShardCount)
	files := make([]*os.File, b.cfg.ShardCount)
	for i := range writers {
		f, err := os.Create(b.chunkPath(i))
		if err != nil {
			return nil, errors.Wrapf(err, "build: creating chunk file for shard %d", i)
		}
		files[i] = f
		writers[i] = chunkfmt.NewBuildWriter(f)
	}
	defer func() {
		for i, w := range writers {
			w.Flush()
			files[i].Close()
		}
	}()

	est, err := NewCapacityEstimator(0.01)
	if err != nil {
		return nil, errors.Wrap(err, "build: creating capacity estimator")
	}

	shardCfg := b.shardConfig()
	spec := b.cfg.Opts.Spec()

	for _, path := range libraryFiles {
		src, err := seqsrc.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "build: opening %s", path)
		}
		if err := b.scanLibraryFile(src, spec, shardCfg, writers, est); err != nil {
			src.Close()
			return nil, err
		}
		src.Close()
	}

	return est, nil
}

func (b *Builder) scanLibraryFile(src seqsrc.Source, spec *kmer.Spec, shardCfg hashtable.Config, writers []*chunkfmt.BuildWriter, est *CapacityEstimator) error {
	for {
		rec, ok, err := src.Next()
		if err != nil {
			return errors.Wrap(err, "build: reading sequence")
		}
		if !ok {
			return nil
		}

		taxid, known := b.seqidToTaxid[rec.ID]
		if !known {
			continue // unmapped accession: silently skip, as Kraken 2 does
		}

		scanner, err := kmer.NewScanner(rec.Seq, spec)
		if err != nil {
			continue // sequence shorter than k, or bad parameters: skip
		}
		for {
			m, ok := scanner.Next()
			if !ok {
				break
			}
			est.Add(m.Key)
			shard := shardCfg.ShardOf(m.Key)
			if err := writers[shard].Write(chunkfmt.BuildRecord{Key: m.Key, Taxid: taxid}); err != nil {
				return errors.Wrap(err, "build: writing chunk record")
			}
		}
	}
}

// PassB constructs and writes one page per shard, translating external
// taxids to internal ones and merging collisions via LCA. Shards are
// processed by a bounded worker pool; distinct shards touch disjoint files
// so no locking is required beyond each worker owning its own shard.
func (b *Builder) PassB() error {
	shardCfg := b.shardConfig()

	var wg sync.WaitGroup
	tokens := make(chan struct{}, b.cfg.Threads)
	errs := make(chan error, b.cfg.ShardCount)
	var totalSize uint64

	for shard := 0; shard < b.cfg.ShardCount; shard++ {
		wg.Add(1)
		tokens <- struct{}{}
		go func(shard int) {
			defer wg.Done()
			defer func() { <-tokens }()
			size, err := b.buildShard(shard)
			if err != nil {
				errs <- errors.Wrapf(err, "build: shard %d", shard)
				return
			}
			atomic.AddUint64(&totalSize, uint64(size))
		}(shard)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}

	shardCfg.TotalSize = totalSize
	return b.writeConfig(shardCfg)
}

func (b *Builder) buildShard(shard int) (int, error) {
	chunkPath := b.chunkPath(shard)
	records, err := readAndSortChunk(chunkPath)
	if err != nil {
		return 0, err
	}
	defer os.Remove(chunkPath)

	page := hashtable.NewPage(int(b.cfg.HashCapacityPerShard), b.cfg.Opts.ValueBits)

	for _, rec := range records {
		internal, ok := b.taxo.ExternalID[rec.Taxid]
		if !ok {
			continue
		}
		if err := page.InsertOrMerge(rec.Key, internal, b.taxo.LCA); err != nil {
			return 0, errors.Wrapf(err, "build: shard %d capacity exhausted at key %d", shard, rec.Key)
		}
	}

	pagePath := hashtable.PagePath(b.cfg.OutDir, shard)
	f, err := os.Create(pagePath)
	if err != nil {
		return 0, errors.Wrapf(err, "build: creating page file for shard %d", shard)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := page.WriteTo(w); err != nil {
		return 0, errors.Wrapf(err, "build: writing page file for shard %d", shard)
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return page.Size(), nil
}

func readAndSortChunk(path string) ([]chunkfmt.BuildRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "build: opening chunk file %s", path)
	}
	defer f.Close()

	r := chunkfmt.NewBuildReader(bufio.NewReader(f))
	var records []chunkfmt.BuildRecord
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		records = append(records, rec)
	}

	// Sorting by key brings repeated keys together before insertion; it
	// does not bring their slots together, since each probe start is a
	// murmur3 hash of the key. twotwotwo/sorts picks a parallel algorithm
	// once the slice is large enough to be worth it.
	if len(records) > 1<<16 {
		sorts.Sort(chunkfmt.BuildRecordSlice(records))
	} else {
		sort.Sort(chunkfmt.BuildRecordSlice(records))
	}
	return records, nil
}

func (b *Builder) writeConfig(cfg hashtable.Config) error {
	path := hashtable.ConfigPath(b.cfg.OutDir)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "build: creating hash_config.k2d")
	}
	defer f.Close()
	return hashtable.WriteConfig(f, cfg)
}
