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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/build"
	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// buildCmd is the low-level counterpart of build-db: it takes the shard
// count and per-shard capacity directly, skipping the HyperLogLog
// estimation pass, for callers that already know their sizing (e.g.
// 'estimate' was run beforehand, or a fixed-size test database).
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build an index with an explicit, pre-computed shard layout",
	Long: `build an index with an explicit, pre-computed shard layout

Like build-db, but skips pass A's cardinality estimate: --shards and
--hash-capacity are taken as given rather than derived from the library.
Useful once 'estimate' has already told you the right values, or when
rebuilding a database whose sizing is already known.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)

		taxo, err := taxonomy.NewFromNCBI(
			filepath.Join(dbDir, "taxonomy", "nodes.dmp"),
			filepath.Join(dbDir, "taxonomy", "names.dmp"),
		)
		checkError(err)
		taxo.CacheLCA()

		seqidToTaxid, err := build.LoadSeqidToTaxid(filepath.Join(dbDir, "seqid2taxid.map"))
		checkError(err)

		libraryFiles, err := filepath.Glob(filepath.Join(dbDir, "library", "*.fna"))
		checkError(err)

		opts := dbopt.Options{
			K:          getFlagPositiveInt(cmd, "kmer-len"),
			L:          getFlagPositiveInt(cmd, "minimizer-len"),
			Spaces:     getFlagNonNegativeInt(cmd, "minimizer-spaces"),
			ToggleMask: dbopt.DefaultToggleMask,
			ValueBits:  32,
			Flags:      dbopt.DNADBFlag,
		}

		cfg := build.Config{
			Opts:                 opts,
			HashCapacityPerShard: getFlagByteSize(cmd, "hash-capacity"),
			ShardCount:           getFlagPositiveInt(cmd, "shards"),
			OutDir:               dbDir,
			Threads:              opt.NumCPUs,
		}
		builder := build.NewBuilder(cfg, taxo, seqidToTaxid)

		log.Infof("pass A: chunking %d library file(s) into %d shard(s)", len(libraryFiles), cfg.ShardCount)
		_, err = builder.PassA(libraryFiles)
		checkError(err)

		log.Infof("pass B: building hash pages")
		checkError(builder.PassB())

		optsFile, err := openTrunc(filepath.Join(dbDir, "opts.k2d"))
		checkError(err)
		checkError(opts.WriteTo(optsFile))
		checkError(optsFile.Close())

		taxoFile, err := openTrunc(filepath.Join(dbDir, "taxo.k2d"))
		checkError(err)
		checkError(taxo.WriteTo(taxoFile))
		checkError(taxoFile.Close())
	},
}

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("db", "", "", "database directory")
	buildCmd.Flags().IntP("kmer-len", "k", 35, "k-mer (window) length")
	buildCmd.Flags().IntP("minimizer-len", "l", 31, "minimizer (l-mer) length")
	buildCmd.Flags().Int("minimizer-spaces", 7, "number of spaced-seed don't-care bit-pairs")
	buildCmd.Flags().String("hash-capacity", "1G", "hash table slots per shard (K/M/G suffix)")
	buildCmd.Flags().Int("shards", 1, "number of shards")
	buildCmd.MarkFlagRequired("db")
}
