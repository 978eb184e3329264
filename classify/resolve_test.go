package classify

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// toyResolveTree builds root(1) -> genus(2) -> speciesA(3), speciesB(4).
func toyResolveTree(t *testing.T) *taxonomy.Tree {
	t.Helper()
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.dmp")
	namesPath := filepath.Join(dir, "names.dmp")

	nodes := "" +
		"1\t|\t1\t|\troot\n" +
		"2\t|\t1\t|\tgenus\n" +
		"3\t|\t2\t|\tspecies\n" +
		"4\t|\t2\t|\tspecies\n"
	if err := os.WriteFile(nodesPath, []byte(nodes), 0o644); err != nil {
		t.Fatalf("write nodes.dmp: %v", err)
	}
	names := "" +
		"1\t|\troot\t|\t\t|\tscientific name\t|\n" +
		"2\t|\tEscherichia\t|\t\t|\tscientific name\t|\n" +
		"3\t|\tE. coli\t|\t\t|\tscientific name\t|\n" +
		"4\t|\tE. albertii\t|\t\t|\tscientific name\t|\n"
	if err := os.WriteFile(namesPath, []byte(names), 0o644); err != nil {
		t.Fatalf("write names.dmp: %v", err)
	}
	tree, err := taxonomy.NewFromNCBI(nodesPath, namesPath)
	if err != nil {
		t.Fatalf("NewFromNCBI: %v", err)
	}
	return tree
}

func writeHitFile(t *testing.T, path string, recs []chunkfmt.HitRecord) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create hit file: %v", err)
	}
	defer f.Close()
	w := chunkfmt.NewHitWriter(bufio.NewWriter(f))
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("write hit: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func sumRunLength(tokens []RunToken) int {
	n := 0
	for _, tok := range tokens {
		if tok.Separator {
			continue
		}
		n += tok.Count
	}
	return n
}

func TestResolveRunLengthSumsToTotalKmers(t *testing.T) {
	tree := toyResolveTree(t)
	speciesA := tree.ExternalID[3]

	const total = 20
	dir := t.TempDir()
	hitPath := filepath.Join(dir, "sample_0.bin")
	recs := make([]chunkfmt.HitRecord, 0, total)
	for i := 0; i < total; i++ {
		taxid := uint32(0)
		if i%2 == 0 {
			taxid = speciesA
		}
		recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: uint16(i), Taxid: taxid})
	}
	writeHitFile(t, hitPath, recs)

	staging := []chunkfmt.ReadStaging{{ReadSerial: 0, ReadID: "r0", Length1: 50, TotalKmers: total}}

	stage := &ResolveStage{Taxo: tree, ConfidenceThreshold: 0, MinHitGroups: 1}
	calls, err := stage.ResolveBatch(hitPath, staging)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if got := sumRunLength(calls[0].RunLength); got != total {
		t.Fatalf("run-length token counts sum to %d, want %d", got, total)
	}
}

func TestResolveConfidenceThresholdBoundary(t *testing.T) {
	tree := toyResolveTree(t)
	speciesA := tree.ExternalID[3]
	speciesAExternal := tree.Nodes[speciesA].ExternalID

	const total = 50
	const hits = 40
	dir := t.TempDir()
	hitPath := filepath.Join(dir, "sample_0.bin")
	recs := make([]chunkfmt.HitRecord, 0, total)
	for i := 0; i < total; i++ {
		taxid := uint32(0)
		if i < hits {
			taxid = speciesA
		}
		recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: uint16(i), Taxid: taxid})
	}
	writeHitFile(t, hitPath, recs)
	staging := []chunkfmt.ReadStaging{{ReadSerial: 0, ReadID: "r0", Length1: 70, TotalKmers: total}}

	strict := &ResolveStage{Taxo: tree, ConfidenceThreshold: 0.9, MinHitGroups: 1}
	callsStrict, err := strict.ResolveBatch(hitPath, staging)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if callsStrict[0].Classified {
		t.Fatalf("expected unclassified at confidence threshold 0.9 (actual confidence 0.8), got taxid %d", callsStrict[0].CalledTaxid)
	}

	lenient := &ResolveStage{Taxo: tree, ConfidenceThreshold: 0.5, MinHitGroups: 1}
	callsLenient, err := lenient.ResolveBatch(hitPath, staging)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if !callsLenient[0].Classified {
		t.Fatalf("expected classified at confidence threshold 0.5")
	}
	if callsLenient[0].CalledTaxid != speciesAExternal {
		t.Fatalf("expected call to species A (external %d), got %d", speciesAExternal, callsLenient[0].CalledTaxid)
	}
}

func TestResolvePairedReadRollsUpToSiblingLCA(t *testing.T) {
	tree := toyResolveTree(t)
	speciesA := tree.ExternalID[3]
	speciesB := tree.ExternalID[4]
	genus := tree.ExternalID[2]
	genusExternal := tree.Nodes[genus].ExternalID

	const mateKmers = 10
	dir := t.TempDir()
	hitPath := filepath.Join(dir, "sample_0.bin")
	var recs []chunkfmt.HitRecord
	for i := 0; i < mateKmers; i++ {
		recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: uint16(i), Taxid: speciesA})
	}
	recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: chunkfmt.PairedSeparatorIndex, Taxid: 0})
	for i := 0; i < mateKmers; i++ {
		recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: uint16(mateKmers + i), Taxid: speciesB})
	}
	writeHitFile(t, hitPath, recs)

	staging := []chunkfmt.ReadStaging{{
		ReadSerial: 0, ReadID: "p0", Length1: 30, Length2: 30,
		Kmers1: mateKmers, TotalKmers: 2 * mateKmers,
	}}

	stage := &ResolveStage{Taxo: tree, ConfidenceThreshold: 0.9, MinHitGroups: 1}
	calls, err := stage.ResolveBatch(hitPath, staging)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if !calls[0].Classified {
		t.Fatalf("expected the pair to classify to the siblings' LCA")
	}
	if calls[0].CalledTaxid != genusExternal {
		t.Fatalf("expected call to genus (external %d), got %d", genusExternal, calls[0].CalledTaxid)
	}

	foundSeparator := false
	for _, tok := range calls[0].RunLength {
		if tok.Separator {
			foundSeparator = true
		}
	}
	if !foundSeparator {
		t.Fatalf("expected a separator token in the paired run-length list")
	}
}

func TestResolveMinHitGroupsRejectsSingleClusteredRun(t *testing.T) {
	tree := toyResolveTree(t)
	speciesA := tree.ExternalID[3]

	const total = 20
	dir := t.TempDir()
	hitPath := filepath.Join(dir, "sample_0.bin")
	var recs []chunkfmt.HitRecord
	for i := 0; i < total; i++ {
		taxid := uint32(0)
		if i < 15 {
			taxid = speciesA // one contiguous run: a single hit group
		}
		recs = append(recs, chunkfmt.HitRecord{ReadSerial: 0, KmerIndex: uint16(i), Taxid: taxid})
	}
	writeHitFile(t, hitPath, recs)
	staging := []chunkfmt.ReadStaging{{ReadSerial: 0, ReadID: "r0", Length1: 40, TotalKmers: total}}

	stage := &ResolveStage{Taxo: tree, ConfidenceThreshold: 0.1, MinHitGroups: 2}
	calls, err := stage.ResolveBatch(hitPath, staging)
	if err != nil {
		t.Fatalf("ResolveBatch: %v", err)
	}
	if calls[0].Classified {
		t.Fatalf("expected unclassified: only one hit group present but MinHitGroups=2")
	}
}
