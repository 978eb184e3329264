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
	"github.com/eric9n/Kun-peng/report"
	"github.com/eric9n/Kun-peng/seqsrc"
)

// classifyCmd runs the full chunk-mode pipeline end to end: split every
// read to --chunk-dir, then annotate and resolve each batch as soon as
// split produces it, so at most one batch's split/hit files are on disk
// at once. This is the restartable counterpart to 'direct': each stage's
// intermediate files are real and can be re-annotated or re-resolved by
// hand if a later stage needs rerunning.
//
// -P takes two positional mate files, -S takes one interleaved file; either
// way the split stage runs SplitStage.RunPaired instead of Run.
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "classify reads against a database, chunk-mode (C6+C7+C8)",
	Long: `classify reads against a database, chunk-mode (C6+C7+C8)

Reads one FASTA/FASTQ file (or a pair of mate files with -P, or one
interleaved file with -S), splits it into batches under --chunk-dir,
annotates and resolves each batch against --db, and writes Kraken-format
output in strict input order, with an optional kreport2 summary.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		chunkDir := getFlagString(cmd, "chunk-dir")
		ensureDir(chunkDir)
		checkError(classify.CheckChunkDirClean(chunkDir))

		splitStage := &classify.SplitStage{
			Spec:      db.Opts.Spec(),
			ShardCfg:  db.ShardCfg,
			ChunkDir:  chunkDir,
			BatchSize: getFlagPositiveInt(cmd, "batch-size"),
		}

		paired := getFlagBool(cmd, "paired")
		interleaved := getFlagBool(cmd, "interleaved")
		var batches []classify.Batch
		switch {
		case paired:
			if len(args) != 2 {
				checkError(fmt.Errorf("classify: -P requires exactly two mate files"))
			}
			src, err := seqsrc.OpenPaired(args[0], args[1])
			checkError(err)
			defer src.Close()
			batches, err = splitStage.RunPaired(src)
			checkError(err)
		case interleaved:
			if len(args) != 1 {
				checkError(fmt.Errorf("classify: -S requires exactly one interleaved file"))
			}
			src, err := seqsrc.OpenInterleaved(args[0])
			checkError(err)
			defer src.Close()
			batches, err = splitStage.RunPaired(src)
			checkError(err)
		default:
			if len(args) != 1 {
				checkError(fmt.Errorf("classify: exactly one input file is required"))
			}
			src, err := seqsrc.Open(args[0])
			checkError(err)
			defer src.Close()
			batches, err = splitStage.Run(src)
			checkError(err)
		}

		annotateStage := &classify.AnnotateStage{DBDir: dbDir, ShardCfg: db.ShardCfg}
		resolveStage := &classify.ResolveStage{
			Taxo:                db.Taxo,
			ConfidenceThreshold: getFlagFloat64(cmd, "confidence-threshold"),
			MinHitGroups:        getFlagPositiveInt(cmd, "min-hit-groups"),
		}

		out, err := outWriter(getFlagString(cmd, "out"))
		checkError(err)
		defer out.Close()
		kw := report.NewKrakenWriter(out)

		var allCalls []classify.Call
		for _, batch := range batches {
			log.Infof("annotating batch %d/%d", batch.Index+1, len(batches))
			hitFile, err := annotateStage.AnnotateBatch(chunkDir, batch)
			checkError(err)

			staging, err := readStaging(batch.StagingFile)
			checkError(err)
			calls, err := resolveStage.ResolveBatch(hitFile, staging)
			checkError(err)
			for _, c := range calls {
				checkError(kw.WriteCall(c))
			}
			allCalls = append(allCalls, calls...)
		}
		checkError(kw.Flush())

		if reportPath := getFlagString(cmd, "report"); reportPath != "" {
			writeReport(reportPath, db, allCalls, getFlagBool(cmd, "report-zero-counts"))
		}
	},
}

func init() {
	RootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("db", "", "", "database directory")
	classifyCmd.Flags().String("chunk-dir", "", "directory to stage split/hit files in")
	classifyCmd.Flags().Int("batch-size", 65536, "reads per batch")
	classifyCmd.Flags().StringP("out", "o", "", "Kraken-format output file (default stdout)")
	classifyCmd.Flags().String("report", "", "kreport2-style clade-count summary output file")
	classifyCmd.Flags().BoolP("report-zero-counts", "z", false, "include taxa with zero clade count in --report")
	classifyCmd.Flags().Float64P("confidence-threshold", "T", 0, "minimum confidence to accept a call")
	classifyCmd.Flags().IntP("min-hit-groups", "g", 2, "minimum number of distinct hit groups to accept a call")
	classifyCmd.Flags().BoolP("paired", "P", false, "input is two separate mate files")
	classifyCmd.Flags().BoolP("interleaved", "S", false, "input is one file of interleaved mate pairs")
	classifyCmd.MarkFlagRequired("db")
	classifyCmd.MarkFlagRequired("chunk-dir")
}
