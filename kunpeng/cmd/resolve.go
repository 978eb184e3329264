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

	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/classify"
	"github.com/eric9n/Kun-peng/report"
)

// resolveCmd runs C8 standalone against the hit files a prior 'annotate'
// run left in --chunk-dir, writing one Kraken-format line per read to
// --out (or stdout) in strict read_serial order, and optionally a
// kreport2-style clade-count summary to --report.
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "resolve annotated hits into per-read calls (C8)",
	Long: `resolve annotated hits into per-read calls (C8)

For every batch found in --chunk-dir, reads its hit file and staging
sidecar, scores each read's hits by taxon, applies the minimum-hit-groups
and confidence-threshold filters, and writes the resulting calls as Kraken
output lines, in strict input order.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		checkDBDir(dbDir)
		db, err := loadDB(dbDir)
		checkError(err)

		chunkDir := getFlagString(cmd, "chunk-dir")
		batches, err := discoverBatches(chunkDir, db.ShardCfg.ShardCount)
		checkError(err)

		out, err := outWriter(getFlagString(cmd, "out"))
		checkError(err)
		defer out.Close()
		kw := report.NewKrakenWriter(out)

		stage := &classify.ResolveStage{
			Taxo:                db.Taxo,
			ConfidenceThreshold: getFlagFloat64(cmd, "confidence-threshold"),
			MinHitGroups:        getFlagPositiveInt(cmd, "min-hit-groups"),
		}

		var allCalls []classify.Call
		for _, batch := range batches {
			staging, err := readStaging(batch.StagingFile)
			checkError(err)
			calls, err := stage.ResolveBatch(classify.HitFilePath(chunkDir, batch.Index), staging)
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

func readStaging(path string) ([]chunkfmt.ReadStaging, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sr := chunkfmt.NewStagingReader(bufio.NewReader(f))
	var records []chunkfmt.ReadStaging
	for {
		rec, err := sr.Read()
		if err != nil {
			break
		}
		records = append(records, rec)
	}
	return records, nil
}

func writeReport(path string, db loadedDB, calls []classify.Call, reportZeroCounts bool) {
	f, err := openTrunc(path)
	checkError(err)
	defer f.Close()
	rw := report.NewKreportWriter(f, db.Taxo, reportZeroCounts)
	checkError(rw.WriteCalls(calls))
	checkError(rw.Flush())
}

func init() {
	RootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringP("db", "", "", "database directory")
	resolveCmd.Flags().String("chunk-dir", "", "directory containing a prior annotate run's output")
	resolveCmd.Flags().StringP("out", "o", "", "Kraken-format output file (default stdout)")
	resolveCmd.Flags().String("report", "", "kreport2-style clade-count summary output file")
	resolveCmd.Flags().BoolP("report-zero-counts", "z", false, "include taxa with zero clade count in --report")
	resolveCmd.Flags().Float64P("confidence-threshold", "T", 0, "minimum confidence to accept a call")
	resolveCmd.Flags().IntP("min-hit-groups", "g", 2, "minimum number of distinct hit groups to accept a call")
	resolveCmd.MarkFlagRequired("db")
	resolveCmd.MarkFlagRequired("chunk-dir")
}
