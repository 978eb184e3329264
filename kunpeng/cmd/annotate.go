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
	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/classify"
)

// annotateCmd runs C7 standalone against the batches a prior 'splitr' run
// left in --chunk-dir: one shard page mapped at a time, one batch at a
// time, so peak memory stays at one page regardless of database size.
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "look up split chunk files against the database (C7)",
	Long: `look up split chunk files against the database (C7)

For every batch found in --chunk-dir, loads each shard's page in turn and
looks up every minimizer routed to it, writing one hit file per batch
alongside the split chunk files it consumed from.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		chunkDir := getFlagString(cmd, "chunk-dir")
		batches, err := discoverBatches(chunkDir, db.ShardCfg.ShardCount)
		checkError(err)

		stage := &classify.AnnotateStage{DBDir: dbDir, ShardCfg: db.ShardCfg}
		for _, batch := range batches {
			log.Infof("annotating batch %d/%d", batch.Index+1, len(batches))
			hitFile, err := stage.AnnotateBatch(chunkDir, batch)
			checkError(err)
			log.Infof("wrote %s", hitFile)
		}
	},
}

func init() {
	RootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringP("db", "", "", "database directory")
	annotateCmd.Flags().String("chunk-dir", "", "directory containing a prior splitr run's output")
	annotateCmd.MarkFlagRequired("db")
	annotateCmd.MarkFlagRequired("chunk-dir")
}
