package taxonomy

import (
	"bytes"
	"testing"
)

// buildToy assembles a small tree directly through buildDense, bypassing
// NCBI dump parsing, so the DFS remapping and LCA logic can be unit tested
// without fixture files on disk.
//
//	1 (root)
//	├── 2
//	│   ├── 4
//	│   └── 5
//	└── 3
func buildToy(t *testing.T) *Tree {
	t.Helper()
	parents := map[uint32]uint32{1: 1, 2: 1, 3: 1, 4: 2, 5: 2}
	ranks := map[uint32]string{1: "root", 2: "phylum", 3: "phylum", 4: "species", 5: "species"}
	names := map[uint32]string{1: "root", 2: "Bacteria", 3: "Archaea", 4: "E. coli", 5: "B. subtilis"}
	tree, err := buildDense(1, parents, ranks, names)
	if err != nil {
		t.Fatalf("buildDense: %v", err)
	}
	return tree
}

func TestDenseRemapIsContiguousDFS(t *testing.T) {
	tree := buildToy(t)
	if tree.MaxInternalID() != 5 {
		t.Fatalf("expected 5 real nodes, got %d", tree.MaxInternalID())
	}
	root := tree.ExternalID[1]
	if root != Root {
		t.Fatalf("expected external taxid 1 to map to internal Root, got %d", root)
	}
}

func TestLCA(t *testing.T) {
	tree := buildToy(t)
	a := tree.ExternalID[4]
	b := tree.ExternalID[5]
	lca := tree.LCA(a, b)
	if lca != tree.ExternalID[2] {
		t.Fatalf("LCA(4,5) should be internal id of 2, got %d", lca)
	}

	c := tree.ExternalID[3]
	lca2 := tree.LCA(a, c)
	if lca2 != Root {
		t.Fatalf("LCA(4,3) should be root, got %d", lca2)
	}

	if tree.LCA(a, Unclassified) != a {
		t.Fatalf("LCA(x, 0) should be identity, got %d", tree.LCA(a, Unclassified))
	}
}

func TestIsAncestor(t *testing.T) {
	tree := buildToy(t)
	p2 := tree.ExternalID[2]
	p4 := tree.ExternalID[4]
	if !tree.IsAncestor(p2, p4) {
		t.Fatalf("2 should be an ancestor of 4")
	}
	if tree.IsAncestor(p4, p2) {
		t.Fatalf("4 should not be an ancestor of 2")
	}
}

func TestSerializationRoundTrip(t *testing.T) {
	tree := buildToy(t)
	tree.CacheLCA()

	var buf bytes.Buffer
	if err := tree.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if loaded.MaxInternalID() != tree.MaxInternalID() {
		t.Fatalf("node count mismatch after round-trip")
	}
	for ext, internal := range tree.ExternalID {
		if loaded.ExternalID[ext] != internal {
			t.Fatalf("external id %d mapped to %d before, %d after", ext, internal, loaded.ExternalID[ext])
		}
		if loaded.Name(internal) != tree.Name(internal) {
			t.Fatalf("name mismatch for %d: %q != %q", ext, tree.Name(internal), loaded.Name(internal))
		}
	}

	a := tree.ExternalID[4]
	b := tree.ExternalID[5]
	if loaded.LCA(a, b) != tree.LCA(a, b) {
		t.Fatalf("LCA mismatch after round-trip")
	}
}
