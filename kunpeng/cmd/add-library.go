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
	"fmt"
	"io"
	"os"

	"github.com/shenwei356/xopen"
	"github.com/spf13/cobra"

	"github.com/eric9n/Kun-peng/build"
	"github.com/eric9n/Kun-peng/seqsrc"
)

var addLibraryCmd = &cobra.Command{
	Use:   "add-library",
	Short: "add reference sequences and their taxid assignments to a database",
	Long: `add reference sequences and their taxid assignments to a database

Appends every input FASTA file to --db/library/library.fna.gz, and records an
accession -> external taxid entry in --db/seqid2taxid.map for each of its
sequences: either all mapped to a single --taxid, or looked up from an
existing --map file carrying one accession<TAB>taxid pair per line.
`,
	Run: func(cmd *cobra.Command, args []string) {
		dbDir := getFlagString(cmd, "db")
		ensureDir(dbDir + "/library")
		taxid := getFlagNonNegativeInt(cmd, "taxid")
		mapFile := getFlagString(cmd, "map")

		var lookup map[string]uint32
		if mapFile != "" {
			var err error
			lookup, err = build.LoadSeqidToTaxid(mapFile)
			checkError(err)
		}
		if taxid == 0 && lookup == nil {
			checkError(fmt.Errorf("add-library: one of --taxid or --map is required"))
		}

		mapOut, err := os.OpenFile(dbDir+"/seqid2taxid.map", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		checkError(err)
		defer mapOut.Close()
		mw := bufio.NewWriter(mapOut)
		defer mw.Flush()

		libOut, err := xopen.WopenFile(dbDir+"/library/library.fna.gz", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		checkError(err)
		defer libOut.Close()

		for _, path := range args {
			src, err := seqsrc.Open(path)
			checkError(err)
			for {
				rec, ok, err := src.Next()
				checkError(err)
				if !ok {
					break
				}
				id := taxidFor(rec.ID, taxid, lookup)
				if id == 0 {
					log.Warningf("no taxid assignment for %s, skipping", rec.ID)
					continue
				}
				fmt.Fprintf(mw, "%s\t%d\n", rec.ID, id)
				fmt.Fprintf(libOut, ">%s\n", rec.ID)
				io.WriteString(libOut, string(rec.Seq))
				io.WriteString(libOut, "\n")
			}
			src.Close()
		}
	},
}

func taxidFor(accession string, defaultTaxid int, lookup map[string]uint32) uint32 {
	if lookup != nil {
		if id, ok := lookup[accession]; ok {
			return id
		}
		return 0
	}
	return uint32(defaultTaxid)
}

func init() {
	RootCmd.AddCommand(addLibraryCmd)
	addLibraryCmd.Flags().StringP("db", "", "", "database directory")
	addLibraryCmd.Flags().Int("taxid", 0, "external taxid assigned to every sequence in the input files")
	addLibraryCmd.Flags().String("map", "", "existing accession<TAB>taxid file to consult instead of --taxid")
	addLibraryCmd.MarkFlagRequired("db")
}
