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

	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/classify"
	"github.com/eric9n/Kun-peng/seqsrc"
)

// splitrCmd runs C6 standalone: it extracts minimizers from a read source
// and buckets them into per-batch, per-shard chunk files under --chunk-dir,
// without looking anything up. Useful on its own for restarting a run at
// the annotate step, or for inspecting what a given read set hashes to.
//
// -P takes two positional mate files and splits them with SplitStage.RunPaired;
// -S takes one positional file of interleaved mates via seqsrc.OpenInterleaved;
// otherwise exactly one unpaired file is read via seqsrc.Open and SplitStage.Run.
var splitrCmd = &cobra.Command{
	Use:   "splitr",
	Short: "split reads into per-shard minimizer chunk files (C6)",
	Long: `split reads into per-shard minimizer chunk files (C6)

Reads one FASTA/FASTQ file (or a pair of mate files with -P, or one
interleaved file with -S), extracts canonical minimizers per read, and
writes batch_size-sized batches of per-shard split chunk files plus a
staging sidecar into --chunk-dir, ready for 'annotate'.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		chunkDir := getFlagString(cmd, "chunk-dir")
		ensureDir(chunkDir)
		checkError(classify.CheckChunkDirClean(chunkDir))

		stage := &classify.SplitStage{
			Spec:      db.Opts.Spec(),
			ShardCfg:  db.ShardCfg,
			ChunkDir:  chunkDir,
			BatchSize: getFlagPositiveInt(cmd, "batch-size"),
		}

		paired := getFlagBool(cmd, "paired")
		interleaved := getFlagBool(cmd, "interleaved")
		switch {
		case paired:
			if len(args) != 2 {
				checkError(fmt.Errorf("splitr: -P requires exactly two mate files"))
			}
			src, err := seqsrc.OpenPaired(args[0], args[1])
			checkError(err)
			defer src.Close()
			batches, err := stage.RunPaired(src)
			checkError(err)
			log.Infof("splitr: wrote %d batch(es) to %s", len(batches), chunkDir)
		case interleaved:
			if len(args) != 1 {
				checkError(fmt.Errorf("splitr: -S requires exactly one interleaved file"))
			}
			src, err := seqsrc.OpenInterleaved(args[0])
			checkError(err)
			defer src.Close()
			batches, err := stage.RunPaired(src)
			checkError(err)
			log.Infof("splitr: wrote %d batch(es) to %s", len(batches), chunkDir)
		default:
			if len(args) != 1 {
				checkError(fmt.Errorf("splitr: exactly one input file is required"))
			}
			src, err := seqsrc.Open(args[0])
			checkError(err)
			defer src.Close()
			batches, err := stage.Run(src)
			checkError(err)
			log.Infof("splitr: wrote %d batch(es) to %s", len(batches), chunkDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(splitrCmd)

	splitrCmd.Flags().StringP("db", "", "", "database directory")
	splitrCmd.Flags().String("chunk-dir", "", "directory to write split chunk/staging files to")
	splitrCmd.Flags().Int("batch-size", 65536, "reads per batch")
	splitrCmd.Flags().BoolP("paired", "P", false, "input is two separate mate files")
	splitrCmd.Flags().BoolP("interleaved", "S", false, "input is one file of interleaved mate pairs")
	splitrCmd.MarkFlagRequired("db")
	splitrCmd.MarkFlagRequired("chunk-dir")
}
