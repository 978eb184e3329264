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

// directCmd is the fused in-memory counterpart of 'classify': every shard
// page is mmapped once up front and each read is scanned, looked up and
// resolved without ever writing split/hit files to disk. No --chunk-dir,
// no restartability, but no per-batch file I/O either.
//
// -P takes two positional mate files and runs DirectStage.ClassifyAllPaired;
// -S takes one positional interleaved file through the same method.
var directCmd = &cobra.Command{
	Use:   "direct",
	Short: "classify reads against a database, fused in-memory mode (C6+C7+C8)",
	Long: `classify reads against a database, fused in-memory mode (C6+C7+C8)

Maps every shard page in --db up front and classifies each read from the
input file (or a pair of mate files with -P, or one interleaved file with
-S) against them directly, with no intermediate chunk files. Best suited
to databases small enough to keep every shard resident at once.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		resolve := classify.ResolveStage{
			Taxo:                db.Taxo,
			ConfidenceThreshold: getFlagFloat64(cmd, "confidence-threshold"),
			MinHitGroups:        getFlagPositiveInt(cmd, "min-hit-groups"),
		}
		stage, err := classify.OpenDirectStage(dbDir, db.Opts.Spec(), db.ShardCfg, resolve)
		checkError(err)
		defer stage.Close()

		paired := getFlagBool(cmd, "paired")
		interleaved := getFlagBool(cmd, "interleaved")
		var calls []classify.Call
		switch {
		case paired:
			if len(args) != 2 {
				checkError(fmt.Errorf("direct: -P requires exactly two mate files"))
			}
			src, err := seqsrc.OpenPaired(args[0], args[1])
			checkError(err)
			defer src.Close()
			calls, err = stage.ClassifyAllPaired(src)
			checkError(err)
		case interleaved:
			if len(args) != 1 {
				checkError(fmt.Errorf("direct: -S requires exactly one interleaved file"))
			}
			src, err := seqsrc.OpenInterleaved(args[0])
			checkError(err)
			defer src.Close()
			calls, err = stage.ClassifyAllPaired(src)
			checkError(err)
		default:
			if len(args) != 1 {
				checkError(fmt.Errorf("direct: exactly one input file is required"))
			}
			src, err := seqsrc.Open(args[0])
			checkError(err)
			defer src.Close()
			calls, err = stage.ClassifyAll(src)
			checkError(err)
		}

		out, err := outWriter(getFlagString(cmd, "out"))
		checkError(err)
		defer out.Close()
		kw := report.NewKrakenWriter(out)
		for _, c := range calls {
			checkError(kw.WriteCall(c))
		}
		checkError(kw.Flush())

		if reportPath := getFlagString(cmd, "report"); reportPath != "" {
			writeReport(reportPath, db, calls, getFlagBool(cmd, "report-zero-counts"))
		}
	},
}

func init() {
	RootCmd.AddCommand(directCmd)

	directCmd.Flags().StringP("db", "", "", "database directory")
	directCmd.Flags().StringP("out", "o", "", "Kraken-format output file (default stdout)")
	directCmd.Flags().String("report", "", "kreport2-style clade-count summary output file")
	directCmd.Flags().BoolP("report-zero-counts", "z", false, "include taxa with zero clade count in --report")
	directCmd.Flags().Float64P("confidence-threshold", "T", 0, "minimum confidence to accept a call")
	directCmd.Flags().IntP("min-hit-groups", "g", 2, "minimum number of distinct hit groups to accept a call")
	directCmd.Flags().BoolP("paired", "P", false, "input is two separate mate files")
	directCmd.Flags().BoolP("interleaved", "S", false, "input is one file of interleaved mate pairs")
	directCmd.MarkFlagRequired("db")
}
