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
	"io"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"
)

var mergeFnaCmd = &cobra.Command{
	Use:   "merge-fna",
	Short: "concatenate reference FASTA files into a database's library",
	Long: `concatenate reference FASTA files into a database's library

Streams every input file into --db/library/library.fna, transparently
gunzipping any .gz inputs, the way 'unikmer concat' streams its binary
blocks through xopen.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		ensureDir(dbDir + "/library")

		outPath := dbDir + "/library/library.fna"
		outfh, err := xopen.Wopen(outPath)
		checkError(err)
		defer outfh.Close()

		for _, path := range args {
			func() {
				infh, err := xopen.Ropen(path)
				checkError(err)
				defer infh.Close()
				_, err = io.Copy(outfh, infh)
				checkError(err)
			}()
			log.Infof("merged %s", path)
		}
	},
}

func init() {
	RootCmd.AddCommand(mergeFnaCmd)
	mergeFnaCmd.Flags().StringP("db", "", "", "database directory")
	mergeFnaCmd.MarkFlagRequired("db")
}
