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
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/eric9n/Kun-peng/classify"
)

// discoverBatches reconstructs the batch list a prior 'splitr' run left in
// chunkDir, for 'annotate'/'resolve'/'classify' runs that pick the pipeline
// back up from disk instead of running split in-process.
func discoverBatches(chunkDir string, shardCount int) ([]classify.Batch, error) {
	stagingFiles, err := filepath.Glob(filepath.Join(chunkDir, "sample_id_*.map"))
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(stagingFiles))
	for _, f := range stagingFiles {
		base := strings.TrimSuffix(filepath.Base(f), ".map")
		idxStr := strings.TrimPrefix(base, "sample_id_")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, fmt.Errorf("discoverBatches: unexpected staging file name %s", f)
		}
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	batches := make([]classify.Batch, len(indices))
	for i, idx := range indices {
		shardFiles := make([]string, shardCount)
		for shard := range shardFiles {
			shardFiles[shard] = filepath.Join(chunkDir, fmt.Sprintf("sample_%d_%d.k2", idx, shard))
		}
		batches[i] = classify.Batch{
			Index:       idx,
			ShardFiles:  shardFiles,
			StagingFile: filepath.Join(chunkDir, fmt.Sprintf("sample_id_%d.map", idx)),
		}
	}
	return batches, nil
}
