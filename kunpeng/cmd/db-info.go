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

	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

// dbInfo is the shape of db_info.yml, a human-greppable sidecar summary of
// opts.k2d/hash_config.k2d/taxo.k2d, the same role unikmer's index keeps a
// companion _db.yml for next to its binary blocks.
type dbInfo struct {
	KmerLen           int    `yaml:"kmer-len"`
	MinimizerLen      int    `yaml:"minimizer-len"`
	MinimizerSpaces   int    `yaml:"minimizer-spaces"`
	ValueBits         int    `yaml:"value-bits"`
	DNADB             bool   `yaml:"dna-db"`
	ShardCount        int    `yaml:"shard-count"`
	HashCapacityShard uint64 `yaml:"hash-capacity-per-shard"`
	TotalCapacity     uint64 `yaml:"total-capacity"`
	TotalSize         uint64 `yaml:"total-size"`
	TaxonomyNodes     int    `yaml:"taxonomy-nodes"`
}

var dbInfoCmd = &cobra.Command{
	Use:   "db-info",
	Short: "print a summary of a database's opts/hash_config/taxonomy",
	Long: `print a summary of a database's opts/hash_config/taxonomy

Reads --db's opts.k2d, hash_config.k2d and taxo.k2d and prints a summary to
stdout, additionally writing it as --db/db_info.yml so it can be grepped
without decoding the binary files.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		info := dbInfo{
			KmerLen:           db.Opts.K,
			MinimizerLen:      db.Opts.L,
			MinimizerSpaces:   db.Opts.Spaces,
			ValueBits:         db.Opts.ValueBits,
			DNADB:             db.Opts.DNADB(),
			ShardCount:        db.ShardCfg.ShardCount,
			HashCapacityShard: db.ShardCfg.HashCapacityPerShard,
			TotalCapacity:     db.ShardCfg.TotalCapacity,
			TotalSize:         db.ShardCfg.TotalSize,
			TaxonomyNodes:     len(db.Taxo.Nodes),
		}

		out, err := yaml.Marshal(info)
		checkError(err)
		fmt.Print(string(out))

		f, err := openTrunc(filepath.Join(dbDir, "db_info.yml"))
		checkError(err)
		defer f.Close()
		_, err = f.Write(out)
		checkError(err)
	},
}

func init() {
	RootCmd.AddCommand(dbInfoCmd)

	dbInfoCmd.Flags().StringP("db", "", "", "database directory")
	dbInfoCmd.MarkFlagRequired("db")
}
