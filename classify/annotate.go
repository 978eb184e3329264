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
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
)

// AnnotateStage looks up every split-stage minimizer record against its
// shard's page, one shard at a time so only one page is resident at once.
type AnnotateStage struct {
	DBDir    string
	ShardCfg hashtable.Config
}

// HitFilePath returns the conventional path of a batch's hit file, shared
// by AnnotateBatch (which writes it) and resolve (which reads it back when
// the two stages run as separate CLI invocations).
func HitFilePath(chunkDir string, batch int) string {
	return filepath.Join(chunkDir, fmt.Sprintf("sample_%d.bin", batch))
}

// AnnotateBatch loads each shard referenced by batch in turn, streams its
// split chunk file, and appends (read_serial, kmer_index, taxid) hits to a
// single per-batch hit file in chunkDir.
func (a *AnnotateStage) AnnotateBatch(chunkDir string, batch Batch) (string, error) {
	hitFile, err := os.Create(HitFilePath(chunkDir, batch.Index))
	if err != nil {
		return "", errors.Wrap(err, "classify: creating hit file")
	}
	defer hitFile.Close()
	hw := chunkfmt.NewHitWriter(bufio.NewWriter(hitFile))

	for shard, chunkPath := range batch.ShardFiles {
		if err := a.annotateShard(shard, chunkPath, hw); err != nil {
			return "", err
		}
	}
	return hitFile.Name(), hw.Flush()
}

func (a *AnnotateStage) annotateShard(shard int, chunkPath string, hw *chunkfmt.HitWriter) error {
	f, err := os.Open(chunkPath)
	if err != nil {
		return errors.Wrapf(err, "classify: opening split chunk for shard %d", shard)
	}
	defer f.Close()
	sr := chunkfmt.NewSplitReader(bufio.NewReader(f))

	pagePath := hashtable.PagePath(a.DBDir, shard)
	page, err := hashtable.OpenMappedPage(pagePath)
	if err != nil {
		if os.IsNotExist(err) {
			// absent shard file: every key routed here is unclassified
			return a.drainAsMisses(sr, hw)
		}
		return errors.Wrapf(err, "classify: mapping page for shard %d", shard)
	}
	defer page.Close()

	for {
		rec, err := sr.Read()
		if err != nil {
			break
		}
		if rec.KmerIndex == chunkfmt.PairedSeparatorIndex {
			if err := hw.Write(chunkfmt.HitRecord{ReadSerial: rec.ReadSerial, KmerIndex: rec.KmerIndex, Taxid: 0}); err != nil {
				return err
			}
			continue
		}
		taxid, found := page.Lookup(rec.Key)
		if !found {
			taxid = 0
		}
		if err := hw.Write(chunkfmt.HitRecord{ReadSerial: rec.ReadSerial, KmerIndex: rec.KmerIndex, Taxid: taxid}); err != nil {
			return err
		}
	}
	return nil
}

func (a *AnnotateStage) drainAsMisses(sr *chunkfmt.SplitReader, hw *chunkfmt.HitWriter) error {
	for {
		rec, err := sr.Read()
		if err != nil {
			return nil
		}
		if err := hw.Write(chunkfmt.HitRecord{ReadSerial: rec.ReadSerial, KmerIndex: rec.KmerIndex, Taxid: 0}); err != nil {
			return err
		}
	}
}
