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

package hashtable

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// Config is the parsed form of hash_config.k2d: the partitioning parameters
// that let a shard's page be loaded and probed in isolation.
type Config struct {
	ValueBits             int
	ValueMask             uint32
	TotalCapacity         uint64
	TotalSize             uint64
	HashCapacityPerShard  uint64
	ShardCount            int
}

// ShardOf implements the partition function from §4.4: every key maps to
// exactly one shard, `(key mod total_capacity) / hash_capacity_per_shard`.
// The probe start within that shard's page does not come from this
// arithmetic; Page.probeStart hashes the key on its own.
func (c Config) ShardOf(key uint64) int {
	return int((key % c.TotalCapacity) / c.HashCapacityPerShard)
}

// configMagic identifies hash_config.k2d.
var configMagic = [8]byte{'.', 'k', 'p', 'h', 'c', 'f', 'g', 0}

// WriteConfig serializes Config as hash_config.k2d.
func WriteConfig(w io.Writer, c Config) error {
	var buf [8 + 1 + 3 + 4 + 4 + 8 + 8 + 8 + 4]byte
	copy(buf[0:8], configMagic[:])
	buf[8] = MainVersion
	off := 12
	le := binary.LittleEndian
	le.PutUint32(buf[off:], uint32(c.ValueBits))
	off += 4
	le.PutUint32(buf[off:], c.ValueMask)
	off += 4
	le.PutUint64(buf[off:], c.TotalCapacity)
	off += 8
	le.PutUint64(buf[off:], c.TotalSize)
	off += 8
	le.PutUint64(buf[off:], c.HashCapacityPerShard)
	off += 8
	le.PutUint32(buf[off:], uint32(c.ShardCount))
	off += 4
	_, err := w.Write(buf[:off])
	return err
}

// ReadConfig deserializes hash_config.k2d.
func ReadConfig(r io.Reader) (Config, error) {
	buf := make([]byte, 8+1+3+4+4+8+8+8+4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Config{}, err
	}
	var magic [8]byte
	copy(magic[:], buf[0:8])
	if magic != configMagic {
		return Config{}, ErrInvalidFileFormat
	}
	le := binary.LittleEndian
	off := 12
	c := Config{}
	c.ValueBits = int(le.Uint32(buf[off:]))
	off += 4
	c.ValueMask = le.Uint32(buf[off:])
	off += 4
	c.TotalCapacity = le.Uint64(buf[off:])
	off += 8
	c.TotalSize = le.Uint64(buf[off:])
	off += 8
	c.HashCapacityPerShard = le.Uint64(buf[off:])
	off += 8
	c.ShardCount = int(le.Uint32(buf[off:]))
	return c, nil
}

// MappedPage is a read-only page backed by an mmap'd hash_N.k2d file,
// avoiding a full in-memory copy of potentially multi-gigabyte shards. This
// mirrors the teacher's UnikIndex.Search technique of mmap.Map'ing an index
// file once and addressing into it directly.
type MappedPage struct {
	file *os.File
	mm   mmap.MMap
	page Page
}

// OpenMappedPage mmaps path read-only and wraps its cell region as a Page.
func OpenMappedPage(path string) (*MappedPage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	if len(m) < HeaderSize {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("hashtable: %s shorter than header", path)
	}
	valueBits, capacity, _, err := DecodeHeader(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, err
	}
	cells := decodeCellsLE(m[HeaderSize:], int(capacity))
	return &MappedPage{file: f, mm: m, page: Page{Cells: cells, ValueBits: valueBits}}, nil
}

// decodeCellsLE reinterprets raw mmap bytes in place as a []uint32, without
// copying the backing array; only safe on little-endian hosts, which the
// build target set for this project always is.
func decodeCellsLE(buf []byte, n int) []uint32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&buf[0])), n)
}

// Lookup proxies to the wrapped Page.
func (mp *MappedPage) Lookup(key uint64) (uint32, bool) {
	return mp.page.Lookup(key)
}

// Close unmaps and closes the underlying file.
func (mp *MappedPage) Close() error {
	if err := mp.mm.Unmap(); err != nil {
		mp.file.Close()
		return err
	}
	return mp.file.Close()
}

// PagePath returns the conventional path for shard i's page file.
func PagePath(dbDir string, shard int) string {
	return filepath.Join(dbDir, fmt.Sprintf("hash_%d.k2d", shard+1))
}

// ConfigPath returns the conventional path of hash_config.k2d.
func ConfigPath(dbDir string) string {
	return filepath.Join(dbDir, "hash_config.k2d")
}
