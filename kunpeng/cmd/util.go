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
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/shenwei356/go-logging"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

var log = logging.MustGetLogger("kunpeng")

// Options bundles the global persistent flags every subcommand reads.
type Options struct {
	NumCPUs int
	Verbose bool
}

func getOptions(cmd *cobra.Command) *Options {
	return &Options{
		NumCPUs: getFlagPositiveInt(cmd, "threads"),
		Verbose: getFlagBool(cmd, "verbose"),
	}
}

// checkError prints err and exits the process. It is only used at the CLI
// boundary after a library/stage function has returned; stage workers
// collect errors onto a shared channel internally instead.
func checkError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func getFlagString(cmd *cobra.Command, flag string) string {
	s, err := cmd.Flags().GetString(flag)
	checkError(err)
	return s
}

func getFlagBool(cmd *cobra.Command, flag string) bool {
	b, err := cmd.Flags().GetBool(flag)
	checkError(err)
	return b
}

func getFlagInt(cmd *cobra.Command, flag string) int {
	i, err := cmd.Flags().GetInt(flag)
	checkError(err)
	return i
}

func getFlagPositiveInt(cmd *cobra.Command, flag string) int {
	i := getFlagInt(cmd, flag)
	if i <= 0 {
		checkError(fmt.Errorf("value of --%s should be a positive integer", flag))
	}
	return i
}

func getFlagNonNegativeInt(cmd *cobra.Command, flag string) int {
	i := getFlagInt(cmd, flag)
	if i < 0 {
		checkError(fmt.Errorf("value of --%s should be a non-negative integer", flag))
	}
	return i
}

func getFlagFloat64(cmd *cobra.Command, flag string) float64 {
	f, err := cmd.Flags().GetFloat64(flag)
	checkError(err)
	return f
}

// ParseByteSize parses a K/M/G-suffixed size flag (--hash-capacity) the
// way the teacher's split command sizes
// its chunk buffers, using go-humanize instead of hand-rolled suffix math.
func ParseByteSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return humanize.ParseBytes(s)
}

func getFlagByteSize(cmd *cobra.Command, flag string) uint64 {
	n, err := ParseByteSize(getFlagString(cmd, flag))
	checkError(err)
	return n
}

// checkDBDir fails fast if dir does not look like a usable database
// directory, the same way unikmer's commands validate -O/--out-dir before
// doing expensive work.
func checkDBDir(dir string) {
	ok, err := pathutil.DirExists(dir)
	checkError(err)
	if !ok {
		checkError(fmt.Errorf("database directory does not exist: %s", dir))
	}
}

func ensureDir(dir string) {
	checkError(os.MkdirAll(dir, 0o755))
}

func openTrunc(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

func isStdin(file string) bool { return file == "-" }

func isStdout(file string) bool { return file == "" || file == "-" }
