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
	"os"
	"path/filepath"

	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// loadedDB bundles everything a classify-side command needs to read
// a database built by build/build-db: the minimizer parameters, the
// sharding layout and the taxonomy tree.
type loadedDB struct {
	Opts     dbopt.Options
	ShardCfg hashtable.Config
	Taxo     *taxonomy.Tree
}

// loadDB opens opts.k2d, hash_config.k2d and taxo.k2d under dbDir. Every
// classify-side command (splitr, annotate, resolve, classify, direct,
// db-info) shares this one loader so the three files are always read the
// same way in the same order.
func loadDB(dbDir string) (loadedDB, error) {
	var db loadedDB

	optsFile, err := os.Open(filepath.Join(dbDir, "opts.k2d"))
	if err != nil {
		return db, err
	}
	db.Opts, err = dbopt.ReadFrom(optsFile)
	optsFile.Close()
	if err != nil {
		return db, err
	}

	cfgFile, err := os.Open(hashtable.ConfigPath(dbDir))
	if err != nil {
		return db, err
	}
	db.ShardCfg, err = hashtable.ReadConfig(cfgFile)
	cfgFile.Close()
	if err != nil {
		return db, err
	}

	taxoFile, err := os.Open(filepath.Join(dbDir, "taxo.k2d"))
	if err != nil {
		return db, err
	}
	db.Taxo, err = taxonomy.ReadFrom(taxoFile)
	taxoFile.Close()
	if err != nil {
		return db, err
	}
	db.Taxo.CacheLCA()

	return db, nil
}
