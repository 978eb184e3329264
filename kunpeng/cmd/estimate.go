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
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/build"
	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/kmer"
	"github.com/eric9n/Kun-peng/seqsrc"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "estimate required hash capacity for a reference library",
	Long: `estimate required hash capacity for a reference library

Scans every input FASTA file with a HyperLogLog sketch to approximate the
number of distinct minimizers, then reports the hash capacity a build
would need at the requested load factor, without materializing a single
chunk file.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		spec := &kmer.Spec{
			K: getFlagPositiveInt(cmd, "kmer-len"),
			L: getFlagPositiveInt(cmd, "minimizer-len"),
			S: getFlagNonNegativeInt(cmd, "minimizer-spaces"),
			T: dbopt.DefaultToggleMask,
		}
		loadFactor := getFlagFloat64(cmd, "load-factor")

		est, err := build.NewCapacityEstimator(0.01)
		checkError(err)

		for _, path := range args {
			src, err := seqsrc.Open(path)
			checkError(err)
			for {
				rec, ok, err := src.Next()
				checkError(err)
				if !ok {
					break
				}
				scanner, err := kmer.NewScanner(rec.Seq, spec)
				if err != nil {
					continue
				}
				for {
					m, ok := scanner.Next()
					if !ok {
						break
					}
					est.Add(m.Key)
				}
			}
			src.Close()
		}

		distinct := est.DistinctCount()
		capacity := build.RequiredCapacity(distinct, loadFactor)
		if opt.Verbose {
			log.Infof("distinct minimizers (estimated): %s", humanize.Comma(int64(distinct)))
		}
		log.Infof("required hash capacity at load factor %.2f: %s slots (%s)",
			loadFactor, humanize.Comma(int64(capacity)), humanize.Bytes(capacity*4))
	},
}

func init() {
	RootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().IntP("kmer-len", "k", 35, "k-mer (window) length")
	estimateCmd.Flags().IntP("minimizer-len", "l", 31, "minimizer (l-mer) length")
	estimateCmd.Flags().Int("minimizer-spaces", 7, "number of spaced-seed don't-care bit-pairs")
	estimateCmd.Flags().Float64P("load-factor", "", build.LoadFactorDefault, "target hash table load factor")
}
