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

// Package hashtable implements the open-addressed, linear-probing compact
// hash page that backs one shard of the reference index, plus the sharded
// index that partitions the full key space across independently loadable
// page files.
package hashtable

import (
	"errors"

	"github.com/spaolacci/murmur3"
)

// ErrCapacityExhausted is returned by InsertOrMerge when a full probe of the
// page wraps around without finding an empty or matching slot.
var ErrCapacityExhausted = errors.New("hashtable: capacity exhausted")

// LCAFunc resolves the lowest common ancestor of two internal taxids,
// supplied by the caller so this package stays independent of the taxonomy
// tree's representation.
type LCAFunc func(a, b uint32) uint32

// Page is one shard's compact hash table: a flat buffer of u32 cells, each
// packing a truncated key fingerprint in the high bits and an internal
// taxid in the low `ValueBits` bits.
type Page struct {
	Cells     []uint32
	ValueBits int
}

// NewPage allocates a zeroed page with room for capacity slots.
func NewPage(capacity, valueBits int) *Page {
	return &Page{Cells: make([]uint32, capacity), ValueBits: valueBits}
}

func (p *Page) valueMask() uint32 {
	return uint32(1)<<uint(p.ValueBits) - 1
}

func (p *Page) fingerprintMask() uint32 {
	return uint32(1)<<uint(32-p.ValueBits) - 1
}

// fingerprintOf truncates a key's hash to the high bits of the cell,
// remapping an accidental zero to 1 so an occupied slot never reads as
// empty (slot value 0 is reserved to mean "unused").
func (p *Page) fingerprintOf(key uint64) uint32 {
	fp := uint32(key>>uint(p.ValueBits)) & p.fingerprintMask()
	if fp == 0 {
		fp = 1
	}
	return fp
}

func (p *Page) probeStart(key uint64) int {
	h := murmur3.Sum64([]byte{
		byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24),
		byte(key >> 32), byte(key >> 40), byte(key >> 48), byte(key >> 56),
	})
	return int(h % uint64(len(p.Cells)))
}

func makeCell(fingerprint, value, valueBits uint32) uint32 {
	return (fingerprint << valueBits) | value
}

func (p *Page) cellFingerprint(cell uint32) uint32 {
	return cell >> uint(p.ValueBits)
}

func (p *Page) cellValue(cell uint32) uint32 {
	return cell & p.valueMask()
}

// Lookup returns the internal taxid stored for key, and whether it was
// found. A miss either means the key was never inserted, or its chain
// probed through a full page without a match (treated identically to Kraken
// 2's CompactHashTable::Get).
func (p *Page) Lookup(key uint64) (taxid uint32, found bool) {
	n := len(p.Cells)
	if n == 0 {
		return 0, false
	}
	fp := p.fingerprintOf(key)
	start := p.probeStart(key)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		cell := p.Cells[idx]
		if cell == 0 {
			return 0, false
		}
		if p.cellFingerprint(cell) == fp {
			return p.cellValue(cell), true
		}
	}
	return 0, false
}

// InsertOrMerge writes taxid for key, or merges it via lca with whatever
// value is already stored under a matching fingerprint. Used only during
// build: a shard's page has exactly one writer, so there is no contention
// to guard against.
func (p *Page) InsertOrMerge(key uint64, taxid uint32, lca LCAFunc) error {
	n := len(p.Cells)
	if n == 0 {
		return ErrCapacityExhausted
	}
	fp := p.fingerprintOf(key)
	value := taxid & p.valueMask()
	start := p.probeStart(key)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		cell := p.Cells[idx]
		if cell == 0 {
			p.Cells[idx] = makeCell(fp, value, uint32(p.ValueBits))
			return nil
		}
		if p.cellFingerprint(cell) == fp {
			existing := p.cellValue(cell)
			if existing == value {
				return nil
			}
			merged := lca(existing, value) & p.valueMask()
			p.Cells[idx] = makeCell(fp, merged, uint32(p.ValueBits))
			return nil
		}
	}
	return ErrCapacityExhausted
}

// Size returns the number of occupied (non-zero) slots.
func (p *Page) Size() int {
	n := 0
	for _, c := range p.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}
