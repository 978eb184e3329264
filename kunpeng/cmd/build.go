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
	"os"
	"path/filepath"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/build"
	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/taxonomy"
)

var buildDBCmd = &cobra.Command{
	Use:   "build-db",
	Short: "build a classification index from a database directory",
	Long: `build a classification index from a database directory

Reads --db/taxonomy/{nodes.dmp,names.dmp}, --db/seqid2taxid.map and every
*.fna or *.fna.gz file in --db/library, and writes opts.k2d, taxo.k2d,
hash_config.k2d and one hash_<shard>.k2d page per shard, implementing the
two-pass builder (chunk + HyperLogLog estimate, then per-shard compact
hash pages with LCA collision merging).
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)

		log.Infof("loading taxonomy from %s", dbDir+"/taxonomy")
		taxo, err := taxonomy.NewFromNCBI(
			filepath.Join(dbDir, "taxonomy", "nodes.dmp"),
			filepath.Join(dbDir, "taxonomy", "names.dmp"),
		)
		checkError(err)
		taxo.CacheLCA()

		log.Infof("loading seqid2taxid.map")
		seqidToTaxid, err := build.LoadSeqidToTaxid(filepath.Join(dbDir, "seqid2taxid.map"))
		checkError(err)

		libraryFiles, err := filepath.Glob(filepath.Join(dbDir, "library", "*.fna"))
		checkError(err)
		gzFiles, err := filepath.Glob(filepath.Join(dbDir, "library", "*.fna.gz"))
		checkError(err)
		libraryFiles = append(libraryFiles, gzFiles...)
		if len(libraryFiles) == 0 {
			checkError(fmt.Errorf("build-db: no library/*.fna(.gz) files found under %s", dbDir))
		}

		opts := dbopt.Options{
			K:          getFlagPositiveInt(cmd, "kmer-len"),
			L:          getFlagPositiveInt(cmd, "minimizer-len"),
			Spaces:     getFlagNonNegativeInt(cmd, "minimizer-spaces"),
			ToggleMask: dbopt.DefaultToggleMask,
			ValueBits:  32,
			Flags:      dbopt.DNADBFlag,
		}

		// --hash-capacity is slots per shard, not bytes; a shard's page
		// file size on disk is approximately 4x this value (one u32 per
		// slot). K/M/G suffixes are still parsed with go-humanize, so
		// "4G"-style values are accepted.
		hashCapacityPerShard := getFlagByteSize(cmd, "hash-capacity")
		if hashCapacityPerShard == 0 {
			checkError(fmt.Errorf("build-db: --hash-capacity must be positive"))
		}
		loadFactor := getFlagFloat64(cmd, "load-factor")

		log.Infof("estimating required capacity (pass A)")
		// A throwaway builder scans the library into a scratch directory
		// purely for its cardinality estimate, so the real shard count
		// below reflects the actual data before any chunk file bucketed
		// by a wrong shard count is written for real.
		tmpDir, err := os.MkdirTemp("", "kunpeng-estimate-")
		checkError(err)
		defer os.RemoveAll(tmpDir)
		probeCfg := build.Config{Opts: opts, HashCapacityPerShard: hashCapacityPerShard, ShardCount: 1, OutDir: tmpDir, Threads: opt.NumCPUs}
		probe := build.NewBuilder(probeCfg, taxo, seqidToTaxid)

		est, err := probe.PassA(libraryFiles)
		checkError(err)
		distinct := est.DistinctCount()
		requiredCapacity := build.RequiredCapacity(distinct, loadFactor)
		shardCount := build.ShardCount(requiredCapacity, hashCapacityPerShard)
		log.Infof("distinct minimizers (estimated): %s, shards: %d", humanize.Comma(int64(distinct)), shardCount)

		cfg := build.Config{Opts: opts, HashCapacityPerShard: hashCapacityPerShard, ShardCount: shardCount, OutDir: dbDir, Threads: opt.NumCPUs}
		builder := build.NewBuilder(cfg, taxo, seqidToTaxid)

		log.Infof("pass A: chunking %d library file(s) into %d shard(s)", len(libraryFiles), shardCount)
		if _, err := builder.PassA(libraryFiles); err != nil {
			checkError(err)
		}

		log.Infof("pass B: building hash pages")
		checkError(builder.PassB())

		optsFile, err := os.Create(filepath.Join(dbDir, "opts.k2d"))
		checkError(err)
		checkError(opts.WriteTo(optsFile))
		checkError(optsFile.Close())

		taxoFile, err := os.Create(filepath.Join(dbDir, "taxo.k2d"))
		checkError(err)
		checkError(taxo.WriteTo(taxoFile))
		checkError(taxoFile.Close())

		log.Infof("build complete: %s", hashtable.ConfigPath(dbDir))
	},
}

func init() {
	RootCmd.AddCommand(buildDBCmd)

	buildDBCmd.Flags().StringP("db", "", "", "database directory")
	buildDBCmd.Flags().IntP("kmer-len", "k", 35, "k-mer (window) length")
	buildDBCmd.Flags().IntP("minimizer-len", "l", 31, "minimizer (l-mer) length")
	buildDBCmd.Flags().Int("minimizer-spaces", 7, "number of spaced-seed don't-care bit-pairs")
	buildDBCmd.Flags().String("hash-capacity", "4G", "hash table slots per shard (K/M/G suffix); page file size is about 4x this")
	buildDBCmd.Flags().Float64("load-factor", build.LoadFactorDefault, "target hash table load factor")
	buildDBCmd.MarkFlagRequired("db")
}
