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

// Package classify implements the three-stage streaming classification
// pipeline: split (C6) turns reads into per-shard minimizer records,
// annotate (C7) looks each one up in its shard's page, and resolve (C8)
// turns a read's hits into a Kraken-format call.
package classify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/kmer"
	"github.com/eric9n/Kun-peng/seqsrc"
)

// SplitStage extracts minimizers from reads and buckets them by shard.
type SplitStage struct {
	Spec      *kmer.Spec
	ShardCfg  hashtable.Config
	ChunkDir  string
	BatchSize int
}

// Batch names the files one batch of the split stage produced: one split
// chunk file per shard, plus the staging sidecar carrying everything else
// resolve will need about each read in the batch.
type Batch struct {
	Index       int
	ShardFiles  []string // index by shard
	StagingFile string
}

func (s *SplitStage) shardChunkPath(batch, shard int) string {
	return filepath.Join(s.ChunkDir, fmt.Sprintf("sample_%d_%d.k2", batch, shard))
}

func (s *SplitStage) stagingPath(batch int) string {
	return filepath.Join(s.ChunkDir, fmt.Sprintf("sample_id_%d.map", batch))
}

// ErrChunkDirNotClean means the chunk directory already contains split
// artifacts from a previous, possibly unfinished run.
var ErrChunkDirNotClean = errors.New("classify: chunk-dir is not clean")

// CheckChunkDirClean refuses to proceed if leftover split-stage files from a
// prior run are present, per the error-handling design's ChunkDirNotClean.
func CheckChunkDirClean(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		name := e.Name()
		if matchesPrefix(name, "sample_") {
			return errors.Wrapf(ErrChunkDirNotClean, "found %s", name)
		}
	}
	return nil
}

func matchesPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

// minimizerCall is one surviving (non-duplicate-suppressed) minimizer call
// for a read, tagged with its 0-based position within that read's k-mer
// stream (not its base-pair position).
type minimizerCall struct {
	kmerIndex int
	key       uint64
}

// scanRead extracts canonical minimizers for one read's sequence and
// suppresses consecutive duplicate keys, as required for the hit-group
// heuristic in resolve.
func scanRead(seq []byte, spec *kmer.Spec) (calls []minimizerCall, totalKmers int, err error) {
	scanner, serr := kmer.NewScanner(seq, spec)
	if serr != nil {
		return nil, 0, nil // too short for a single window: zero minimizers
	}
	var lastKey uint64
	haveLast := false
	idx := 0
	for {
		m, ok := scanner.Next()
		if !ok {
			break
		}
		if !haveLast || m.Key != lastKey {
			calls = append(calls, minimizerCall{kmerIndex: idx, key: m.Key})
			lastKey = m.Key
			haveLast = true
		}
		idx++
	}
	return calls, idx, nil
}

// splitWriters owns one open chunk writer per shard for the batch currently
// being produced.
type splitWriters struct {
	files   []*os.File
	writers []*chunkfmt.SplitWriter
}

func (s *SplitStage) openWriters(batch int) (*splitWriters, error) {
	sw := &splitWriters{
		files:   make([]*os.File, s.ShardCfg.ShardCount),
		writers: make([]*chunkfmt.SplitWriter, s.ShardCfg.ShardCount),
	}
	for shard := 0; shard < s.ShardCfg.ShardCount; shard++ {
		f, err := os.Create(s.shardChunkPath(batch, shard))
		if err != nil {
			sw.close()
			return nil, err
		}
		sw.files[shard] = f
		sw.writers[shard] = chunkfmt.NewSplitWriter(f)
	}
	return sw, nil
}

func (sw *splitWriters) close() {
	for i, w := range sw.writers {
		if w != nil {
			w.Flush()
		}
		if sw.files[i] != nil {
			sw.files[i].Close()
		}
	}
}

func (sw *splitWriters) write(shard int, rec chunkfmt.SplitRecord) error {
	return sw.writers[shard].Write(rec)
}

// Run splits every read from src into batches of s.BatchSize, writing the
// chunk and staging files for each. It returns the list of batches produced,
// in order.
func (s *SplitStage) Run(src seqsrc.Source) ([]Batch, error) {
	var batches []Batch
	var serial uint32
	batchIdx := 0

	for {
		sw, err := s.openWriters(batchIdx)
		if err != nil {
			return batches, err
		}
		stagingFile, err := os.Create(s.stagingPath(batchIdx))
		if err != nil {
			sw.close()
			return batches, err
		}
		staging := chunkfmt.NewStagingWriter(bufio.NewWriter(stagingFile))

		n := 0
		for n < s.BatchSize {
			rec, ok, err := src.Next()
			if err != nil {
				sw.close()
				staging.Flush()
				stagingFile.Close()
				return batches, err
			}
			if !ok {
				break
			}

			calls, total, err := scanRead(rec.Seq, s.Spec)
			if err != nil {
				sw.close()
				staging.Flush()
				stagingFile.Close()
				return batches, err
			}
			for _, c := range calls {
				shard := s.ShardCfg.ShardOf(c.key)
				if err := sw.write(shard, chunkfmt.SplitRecord{
					ReadSerial: serial,
					KmerIndex:  uint16(c.kmerIndex),
					Key:        c.key,
				}); err != nil {
					sw.close()
					staging.Flush()
					stagingFile.Close()
					return batches, err
				}
			}
			if err := staging.Write(chunkfmt.ReadStaging{
				ReadSerial: serial,
				ReadID:     rec.ID,
				Length1:    len(rec.Seq),
				TotalKmers: total,
			}); err != nil {
				sw.close()
				stagingFile.Close()
				return batches, err
			}

			serial++
			n++
		}

		sw.close()
		staging.Flush()
		stagingFile.Close()

		shardFiles := make([]string, s.ShardCfg.ShardCount)
		for shard := range shardFiles {
			shardFiles[shard] = s.shardChunkPath(batchIdx, shard)
		}
		batches = append(batches, Batch{Index: batchIdx, ShardFiles: shardFiles, StagingFile: s.stagingPath(batchIdx)})

		if n < s.BatchSize {
			break // exhausted the source mid-batch
		}
		batchIdx++
	}
	return batches, nil
}

// RunPaired splits a paired-end source, inserting chunkfmt.PairedSeparatorIndex
// between each pair's two mates so resolve can draw the `|:|` separator.
// src may be a two-file seqsrc.PairedSource (-P) or a single interleaved
// file wrapped by seqsrc.OpenInterleaved (-S); both satisfy PairedReader.
func (s *SplitStage) RunPaired(src seqsrc.PairedReader) ([]Batch, error) {
	var batches []Batch
	var serial uint32
	batchIdx := 0

	for {
		sw, err := s.openWriters(batchIdx)
		if err != nil {
			return batches, err
		}
		stagingFile, err := os.Create(s.stagingPath(batchIdx))
		if err != nil {
			sw.close()
			return batches, err
		}
		staging := chunkfmt.NewStagingWriter(bufio.NewWriter(stagingFile))

		n := 0
		for n < s.BatchSize {
			r1, r2, ok, err := src.Next()
			if err != nil {
				sw.close()
				staging.Flush()
				stagingFile.Close()
				return batches, err
			}
			if !ok {
				break
			}

			calls1, total1, _ := scanRead(r1.Seq, s.Spec)
			calls2, total2, _ := scanRead(r2.Seq, s.Spec)

			// mate2's k-mer indices start right after mate1's full (pre-
			// suppression) window count, matching the TotalKmers=total1+total2
			// layout the staging record below advertises to resolve.
			offset2 := total1
			for _, c := range calls1 {
				shard := s.ShardCfg.ShardOf(c.key)
				sw.write(shard, chunkfmt.SplitRecord{ReadSerial: serial, KmerIndex: uint16(c.kmerIndex), Key: c.key})
			}
			sepShard := 0
			sw.write(sepShard, chunkfmt.SplitRecord{ReadSerial: serial, KmerIndex: chunkfmt.PairedSeparatorIndex, Key: 0})
			for _, c := range calls2 {
				shard := s.ShardCfg.ShardOf(c.key)
				sw.write(shard, chunkfmt.SplitRecord{ReadSerial: serial, KmerIndex: uint16(offset2 + c.kmerIndex), Key: c.key})
			}

			if err := staging.Write(chunkfmt.ReadStaging{
				ReadSerial: serial,
				ReadID:     r1.ID,
				Length1:    len(r1.Seq),
				Length2:    len(r2.Seq),
				Kmers1:     total1,
				TotalKmers: total1 + total2,
			}); err != nil {
				sw.close()
				stagingFile.Close()
				return batches, err
			}

			serial++
			n++
		}

		sw.close()
		staging.Flush()
		stagingFile.Close()

		shardFiles := make([]string, s.ShardCfg.ShardCount)
		for shard := range shardFiles {
			shardFiles[shard] = s.shardChunkPath(batchIdx, shard)
		}
		batches = append(batches, Batch{Index: batchIdx, ShardFiles: shardFiles, StagingFile: s.stagingPath(batchIdx)})

		if n < s.BatchSize {
			break
		}
		batchIdx++
	}
	return batches, nil
}
