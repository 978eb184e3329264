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

// Package taxonomy holds the dense, DFS pre-order remapped taxonomy tree
// used for LCA queries during build and resolve, and its NCBI nodes.dmp /
// names.dmp ingestion.
package taxonomy

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shenwei356/breader"
)

// Unclassified is the reserved internal index meaning "no taxon assigned".
const Unclassified uint32 = 0

// Root is the internal index of the taxonomy root, always 1 after remapping.
const Root uint32 = 1

// ErrIllegalColumnIndex means a column index passed to NewFromNCBI-family
// constructors is not a positive integer.
var ErrIllegalColumnIndex = errors.New("taxonomy: illegal column index, positive integer needed")

// Node is one entry of the dense, DFS pre-order taxonomy array.
type Node struct {
	ParentIndex    uint32
	FirstChild     uint32
	ChildCount     uint32
	RankCode       byte
	ExternalID     uint32 // original NCBI taxid
	NameOffset     uint32 // offset into Tree.names
	depth          uint32
}

// Tree is the in-memory taxonomy: a flat array of Node indexed by internal
// id, plus the external (NCBI) taxid -> internal id side table required by
// §4.2 of the on-disk layout.
type Tree struct {
	Nodes      []Node // Nodes[0] is the Unclassified sentinel, unused otherwise
	ExternalID map[uint32]uint32
	names      []byte // concatenated, NUL-separated scientific names

	cacheLCA bool
	lcaCache map[uint64]uint32
}

var rankToCode = map[string]byte{
	"no rank":         0,
	"root":            'R',
	"superkingdom":    'D',
	"domain":          'D',
	"kingdom":         'K',
	"phylum":          'P',
	"class":           'C',
	"order":           'O',
	"family":          'F',
	"genus":           'G',
	"species":         'S',
}

// RankCode returns the single-letter rank code for an NCBI rank string,
// defaulting to 0 (caller should fall back to an intermediate X{n} code) for
// ranks that do not map onto the canonical Kraken/kreport2 set.
func RankCode(rank string) byte {
	return rankToCode[rank]
}

type rawNode struct {
	Taxid  uint32
	Parent uint32
	Rank   string
}

type rawName struct {
	Taxid uint32
	Name  string
}

// NewFromNCBI builds a Tree from a taxonomy dump directory's nodes.dmp and
// names.dmp, following the conventional 1-indexed, pipe-delimited NCBI dump
// column layout (taxid, parent taxid, rank, ...).
func NewFromNCBI(nodesFile, namesFile string) (*Tree, error) {
	nodeParse := func(line string) (interface{}, bool, error) {
		items := strings.SplitN(line, "\t|\t", 4)
		if len(items) < 3 {
			return nil, false, nil
		}
		taxid, e := strconv.Atoi(strings.TrimSpace(items[0]))
		if e != nil {
			return nil, false, e
		}
		parent, e := strconv.Atoi(strings.TrimSpace(items[1]))
		if e != nil {
			return nil, false, e
		}
		rank := strings.TrimSpace(items[2])
		return rawNode{Taxid: uint32(taxid), Parent: uint32(parent), Rank: rank}, true, nil
	}

	reader, err := breader.NewBufferedReader(nodesFile, 8, 100, nodeParse)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: reading %s: %w", nodesFile, err)
	}

	parents := make(map[uint32]uint32, 1<<16)
	ranks := make(map[uint32]string, 1<<16)
	var root uint32

	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, fmt.Errorf("taxonomy: parsing %s: %w", nodesFile, chunk.Err)
		}
		for _, data := range chunk.Data {
			n := data.(rawNode)
			parents[n.Taxid] = n.Parent
			ranks[n.Taxid] = n.Rank
			if n.Taxid == n.Parent {
				root = n.Taxid
			}
		}
	}
	if root == 0 {
		return nil, errors.New("taxonomy: no self-parenting root found in nodes.dmp")
	}

	names := make(map[uint32]string, len(parents))
	if namesFile != "" {
		nameParse := func(line string) (interface{}, bool, error) {
			items := strings.SplitN(line, "\t|\t", 4)
			if len(items) < 4 {
				return nil, false, nil
			}
			if !strings.HasPrefix(strings.TrimSpace(items[3]), "scientific name") {
				return nil, false, nil
			}
			taxid, e := strconv.Atoi(strings.TrimSpace(items[0]))
			if e != nil {
				return nil, false, e
			}
			return rawName{Taxid: uint32(taxid), Name: strings.TrimSpace(items[1])}, true, nil
		}
		nr, err := breader.NewBufferedReader(namesFile, 8, 100, nameParse)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: reading %s: %w", namesFile, err)
		}
		for chunk := range nr.Ch {
			if chunk.Err != nil {
				return nil, fmt.Errorf("taxonomy: parsing %s: %w", namesFile, chunk.Err)
			}
			for _, data := range chunk.Data {
				rn := data.(rawName)
				names[rn.Taxid] = rn.Name
			}
		}
	}

	return buildDense(root, parents, ranks, names)
}

// children indexes parents -> sorted child list, for a deterministic DFS.
func buildDense(root uint32, parents map[uint32]uint32, ranks map[uint32]string, names map[uint32]string) (*Tree, error) {
	children := make(map[uint32][]uint32, len(parents))
	for taxid, parent := range parents {
		if taxid == root {
			continue
		}
		children[parent] = append(children[parent], taxid)
	}
	for _, ch := range children {
		sort.Slice(ch, func(i, j int) bool { return ch[i] < ch[j] })
	}

	t := &Tree{
		ExternalID: make(map[uint32]uint32, len(parents)+1),
	}
	// Nodes[0] is the reserved Unclassified sentinel.
	t.Nodes = append(t.Nodes, Node{})

	var nameBuf []byte
	internOf := make(map[uint32]uint32, len(parents)+1)

	type frame struct {
		external uint32
		parentIdx uint32
		depth     uint32
	}
	stack := []frame{{external: root, parentIdx: Unclassified, depth: 0}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		idx := uint32(len(t.Nodes))
		internOf[f.external] = idx
		t.ExternalID[f.external] = idx

		nameOff := uint32(len(nameBuf))
		if name, ok := names[f.external]; ok {
			nameBuf = append(nameBuf, name...)
		}
		nameBuf = append(nameBuf, 0)

		t.Nodes = append(t.Nodes, Node{
			ParentIndex: f.parentIdx,
			RankCode:    RankCode(ranks[f.external]),
			ExternalID:  f.external,
			NameOffset:  nameOff,
			depth:       f.depth,
		})

		kids := children[f.external]
		if idx != Unclassified {
			t.Nodes[idx].FirstChild = 0
			t.Nodes[idx].ChildCount = uint32(len(kids))
		}
		// push in reverse so traversal visits children in ascending taxid order
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{external: kids[i], parentIdx: idx, depth: f.depth + 1})
		}
	}

	// second pass: FirstChild is the internal index of the first child in
	// DFS order, now that all indices are known.
	firstSeen := make(map[uint32]bool, len(t.Nodes))
	for i := 2; i < len(t.Nodes); i++ {
		p := t.Nodes[i].ParentIndex
		if !firstSeen[p] {
			t.Nodes[p].FirstChild = uint32(i)
			firstSeen[p] = true
		}
	}

	t.names = nameBuf
	return t, nil
}

// MaxInternalID returns the largest internal taxid assigned.
func (t *Tree) MaxInternalID() uint32 {
	if len(t.Nodes) == 0 {
		return 0
	}
	return uint32(len(t.Nodes) - 1)
}

// Name returns the scientific name stored for an internal taxid, if any.
func (t *Tree) Name(internal uint32) string {
	if int(internal) >= len(t.Nodes) {
		return ""
	}
	off := t.Nodes[internal].NameOffset
	end := off
	for end < uint32(len(t.names)) && t.names[end] != 0 {
		end++
	}
	return string(t.names[off:end])
}

// RankLabel returns the canonical single-letter rank code for a, or, for a
// "no rank" node, the nearest ranked ancestor's code followed by the number
// of steps between them (e.g. "D3"), matching kreport2's X{n} convention for
// intermediate ranks.
func (t *Tree) RankLabel(a uint32) string {
	if int(a) >= len(t.Nodes) {
		return "-"
	}
	if code := t.Nodes[a].RankCode; code != 0 {
		return string(code)
	}
	steps := 0
	cur := a
	for cur != Root {
		cur = t.Parent(cur)
		steps++
		if code := t.Nodes[cur].RankCode; code != 0 {
			return fmt.Sprintf("%c%d", code, steps)
		}
	}
	return fmt.Sprintf("R%d", steps)
}

// Parent returns the internal id of a's parent, or Unclassified at the root.
func (t *Tree) Parent(a uint32) uint32 {
	if int(a) >= len(t.Nodes) {
		return Unclassified
	}
	return t.Nodes[a].ParentIndex
}

// Depth returns a's distance from the root (root has depth 0).
func (t *Tree) Depth(a uint32) uint32 {
	if int(a) >= len(t.Nodes) {
		return 0
	}
	return t.Nodes[a].depth
}

// IsAncestor reports whether a is an ancestor of (or equal to) b.
func (t *Tree) IsAncestor(a, b uint32) bool {
	if a == Unclassified || b == Unclassified {
		return false
	}
	for b != Unclassified {
		if a == b {
			return true
		}
		if b == Root {
			break
		}
		b = t.Parent(b)
	}
	return a == Root && b == Root
}

// CacheLCA enables memoization of LCA query results.
func (t *Tree) CacheLCA() {
	t.cacheLCA = true
	if t.lcaCache == nil {
		t.lcaCache = make(map[uint64]uint32, 1024)
	}
}

// LCA returns the lowest common ancestor of two internal taxids. A zero
// argument (Unclassified) is treated as an identity element: LCA(0, b) = b.
func (t *Tree) LCA(a, b uint32) uint32 {
	if a == Unclassified {
		return b
	}
	if b == Unclassified {
		return a
	}
	if a == b {
		return a
	}

	var query uint64
	if t.cacheLCA {
		query = pack2uint32(a, b)
		if c, ok := t.lcaCache[query]; ok {
			return c
		}
	}

	// Walk both up to the same depth, then together, using the dense
	// parent-index array -- no map lookups on the hot path.
	da, db := t.Depth(a), t.Depth(b)
	for da > db {
		a = t.Parent(a)
		da--
	}
	for db > da {
		b = t.Parent(b)
		db--
	}
	for a != b {
		a = t.Parent(a)
		b = t.Parent(b)
	}

	if t.cacheLCA {
		t.lcaCache[query] = a
	}
	return a
}

func pack2uint32(a, b uint32) uint64 {
	if a < b {
		return (uint64(a) << 32) | uint64(b)
	}
	return (uint64(b) << 32) | uint64(a)
}
