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
	"bufio"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// hashshardCmd converts a flat, unsharded (minimizer key, taxid) dump of a
// Kraken2-native database into Kun-peng's sharded hash_<n>.k2d layout. A
// monolithic compact hash table only stores a fingerprint and a value per
// slot, never the original key, so a shard cannot be derived by reading
// cells back out of an already-built page; the conversion instead has to
// start one step upstream, from the (key, taxid) pairs themselves, in the
// same chunkfmt.BuildRecord shape Pass A already buckets them into. This
// lets hashshard reuse Pass B's own sort + LCA-merge + page-write logic
// directly instead of inventing a second implementation of it.
var hashshardCmd = &cobra.Command{
	Use:   "hashshard",
	Short: "convert a flat Kraken2-native hash dump into Kun-peng's sharded layout",
	Long: `convert a flat Kraken2-native hash dump into Kun-peng's sharded layout

--src is a chunkfmt-encoded stream of (minimizer key, external taxid)
records, one per distinct minimizer, the normalized form of a Kraken2-native
database's hash table. hashshard partitions those records across --shards
shards of --hash-capacity slots each using the same shard_of(key) partition
function the builder uses, then builds one compact hash page per shard,
merging any duplicate key across records by lowest common ancestor when
--taxonomy is given, or by keeping the first value seen otherwise.
`,
	Run: func(cmd *cobra.Command, args []string) {
		srcPath := getFlagString(cmd, "src")
		dstDir := getFlagString(cmd, "dst")
		ensureDir(dstDir)

		records, err := readDump(srcPath)
		checkError(err)

		var taxo *taxonomy.Tree
		if dir := getFlagString(cmd, "taxonomy"); dir != "" {
			taxo, err = taxonomy.NewFromNCBI(
				filepath.Join(dir, "nodes.dmp"),
				filepath.Join(dir, "names.dmp"),
			)
			checkError(err)
			taxo.CacheLCA()
		}
		lca := keepFirstLCA
		if taxo != nil {
			lca = taxo.LCA
		}

		hashCapacityPerShard := getFlagByteSize(cmd, "hash-capacity")
		shardCount := getFlagPositiveInt(cmd, "shards")
		dstCfg := hashtable.Config{
			ValueBits:            32,
			ValueMask:            uint32(1)<<uint(32) - 1,
			TotalCapacity:        uint64(shardCount) * hashCapacityPerShard,
			HashCapacityPerShard: hashCapacityPerShard,
			ShardCount:           shardCount,
		}

		buckets := make([][]chunkfmt.BuildRecord, shardCount)
		for _, rec := range records {
			s := dstCfg.ShardOf(rec.Key)
			buckets[s] = append(buckets[s], rec)
		}

		for shard, recs := range buckets {
			log.Infof("building shard %d/%d (%d records)", shard+1, shardCount, len(recs))
			sort.Sort(chunkfmt.BuildRecordSlice(recs))

			page := hashtable.NewPage(int(hashCapacityPerShard), dstCfg.ValueBits)
			for _, rec := range recs {
				internal := rec.Taxid
				if taxo != nil {
					id, ok := taxo.ExternalID[rec.Taxid]
					if !ok {
						continue
					}
					internal = id
				}
				checkError(page.InsertOrMerge(rec.Key, internal, lca))
			}

			f, err := openTrunc(hashtable.PagePath(dstDir, shard))
			checkError(err)
			w := bufio.NewWriter(f)
			_, err = page.WriteTo(w)
			checkError(err)
			checkError(w.Flush())
			checkError(f.Close())
		}

		cfgFile, err := openTrunc(hashtable.ConfigPath(dstDir))
		checkError(err)
		checkError(hashtable.WriteConfig(cfgFile, dstCfg))
		checkError(cfgFile.Close())

		log.Infof("hashshard complete: %d shard(s) written to %s", shardCount, dstDir)
	},
}

// keepFirstLCA is the merge rule used when no taxonomy is supplied to
// resolve a genuine duplicate key across dump records: taking the first
// value observed is the same degenerate case as calling the real LCA on
// two equal taxids, it just can't detect that the inputs actually differ.
func keepFirstLCA(a, b uint32) uint32 {
	return a
}

func readDump(path string) ([]chunkfmt.BuildRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
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
	return records, nil
}

func init() {
	RootCmd.AddCommand(hashshardCmd)

	hashshardCmd.Flags().String("src", "", "chunkfmt-encoded (key, taxid) dump of a Kraken2-native hash table")
	hashshardCmd.Flags().String("dst", "", "destination database directory")
	hashshardCmd.Flags().String("taxonomy", "", "taxonomy directory (nodes.dmp, names.dmp) to resolve duplicate keys by LCA")
	hashshardCmd.Flags().String("hash-capacity", "1G", "destination hash table slots per shard")
	hashshardCmd.Flags().Int("shards", 1, "destination shard count")
	hashshardCmd.MarkFlagRequired("src")
	hashshardCmd.MarkFlagRequired("dst")
}
