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
//
// taxo.k2d layout (all integers little-endian):
//
//	offset   bytes  name           type
//	0        8      magic          [8]byte = ".kptaxo\0"
//	8        1      MainVersion    uint8
//	9        1      MinorVersion   uint8
//	10       2      reserved
//	12       4      NumNodes       uint32 (including the Unclassified sentinel)
//	16       4      NamesLen       uint32
//	20+i*20  20     Node record    see writeNode/readNode
//	...      *      names          NamesLen bytes, NUL-separated

package taxonomy

import (
	"encoding/binary"
	"errors"
	"io"
)

// MainVersion is the taxo.k2d format major version.
const MainVersion uint8 = 1

// MinorVersion is the taxo.k2d format minor version.
const MinorVersion uint8 = 0

// Magic identifies a taxo.k2d file.
var Magic = [8]byte{'.', 'k', 'p', 't', 'a', 'x', 'o', 0}

// ErrInvalidFileFormat means the magic number did not match.
var ErrInvalidFileFormat = errors.New("taxonomy: invalid taxo.k2d format")

// ErrVersionMismatch means the file was written by an incompatible version.
var ErrVersionMismatch = errors.New("taxonomy: incompatible taxo.k2d version")

var le = binary.LittleEndian

const nodeRecordSize = 20

func writeNode(w io.Writer, n Node) error {
	var buf [nodeRecordSize]byte
	le.PutUint32(buf[0:4], n.ParentIndex)
	le.PutUint32(buf[4:8], n.FirstChild)
	le.PutUint32(buf[8:12], n.ChildCount)
	buf[12] = n.RankCode
	le.PutUint32(buf[13:17], n.ExternalID)
	le.PutUint16(buf[17:19], 0) // reserved
	_ = buf[19]
	_, err := w.Write(buf[:])
	return err
}

func readNode(r io.Reader) (Node, error) {
	var buf [nodeRecordSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Node{}, err
	}
	return Node{
		ParentIndex: le.Uint32(buf[0:4]),
		FirstChild:  le.Uint32(buf[4:8]),
		ChildCount:  le.Uint32(buf[8:12]),
		RankCode:    buf[12],
		ExternalID:  le.Uint32(buf[13:17]),
	}, nil
}

// WriteTo serializes the Tree as taxo.k2d to w.
func (t *Tree) WriteTo(w io.Writer) (err error) {
	if _, err = w.Write(Magic[:]); err != nil {
		return err
	}
	if _, err = w.Write([]byte{MainVersion, MinorVersion, 0, 0}); err != nil {
		return err
	}
	var hdr [8]byte
	le.PutUint32(hdr[0:4], uint32(len(t.Nodes)))
	le.PutUint32(hdr[4:8], uint32(len(t.names)))
	if _, err = w.Write(hdr[:]); err != nil {
		return err
	}
	for _, n := range t.Nodes {
		if err = writeNode(w, n); err != nil {
			return err
		}
	}
	_, err = w.Write(t.names)
	return err
}

// ReadFrom deserializes a Tree previously written by WriteTo, rebuilding the
// name offsets, the depth cache and the external-id side table from the node
// array and the names block.
func ReadFrom(r io.Reader) (*Tree, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrInvalidFileFormat
	}
	var verBuf [4]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return nil, err
	}
	if verBuf[0] != MainVersion {
		return nil, ErrVersionMismatch
	}

	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	numNodes := le.Uint32(hdr[0:4])
	namesLen := le.Uint32(hdr[4:8])

	t := &Tree{
		Nodes:      make([]Node, numNodes),
		ExternalID: make(map[uint32]uint32, numNodes),
	}
	for i := range t.Nodes {
		n, err := readNode(r)
		if err != nil {
			return nil, err
		}
		t.Nodes[i] = n
		if i != int(Unclassified) {
			t.ExternalID[n.ExternalID] = uint32(i)
		}
	}

	t.names = make([]byte, namesLen)
	if namesLen > 0 {
		if _, err := io.ReadFull(r, t.names); err != nil {
			return nil, err
		}
	}

	// name offsets were not persisted; names are stored in node order, one
	// NUL-terminated entry per node after the Unclassified sentinel.
	var off uint32
	for i := 1; i < len(t.Nodes); i++ {
		t.Nodes[i].NameOffset = off
		for off < namesLen && t.names[off] != 0 {
			off++
		}
		off++
	}

	// depth was not persisted; recompute by walking parent pointers, which
	// works because DFS pre-order guarantees ParentIndex < child index.
	for i := 2; i < len(t.Nodes); i++ {
		t.Nodes[i].depth = t.Nodes[t.Nodes[i].ParentIndex].depth + 1
	}

	return t, nil
}
