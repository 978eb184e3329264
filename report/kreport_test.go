package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eric9n/Kun-peng/classify"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// toyReportTree builds:
//
//	1 (root)
//	├── 2 (genus)
//	│   ├── 3 (species)
//	│   └── 4 (species)
//	└── 5 (no rank)
//	    └── 6 (species)
func toyReportTree(t *testing.T) *taxonomy.Tree {
	t.Helper()
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.dmp")
	namesPath := filepath.Join(dir, "names.dmp")

	nodes := "" +
		"1\t|\t1\t|\troot\n" +
		"2\t|\t1\t|\tgenus\n" +
		"3\t|\t2\t|\tspecies\n" +
		"4\t|\t2\t|\tspecies\n" +
		"5\t|\t1\t|\tno rank\n" +
		"6\t|\t5\t|\tspecies\n"
	if err := os.WriteFile(nodesPath, []byte(nodes), 0o644); err != nil {
		t.Fatalf("write nodes.dmp: %v", err)
	}
	names := "" +
		"1\t|\troot\t|\t\t|\tscientific name\t|\n" +
		"2\t|\tG\t|\t\t|\tscientific name\t|\n" +
		"3\t|\tA\t|\t\t|\tscientific name\t|\n" +
		"4\t|\tB\t|\t\t|\tscientific name\t|\n" +
		"5\t|\tMid\t|\t\t|\tscientific name\t|\n" +
		"6\t|\tC\t|\t\t|\tscientific name\t|\n"
	if err := os.WriteFile(namesPath, []byte(names), 0o644); err != nil {
		t.Fatalf("write names.dmp: %v", err)
	}
	tree, err := taxonomy.NewFromNCBI(nodesPath, namesPath)
	if err != nil {
		t.Fatalf("NewFromNCBI: %v", err)
	}
	return tree
}

func TestCladeCountsRollUpToAncestors(t *testing.T) {
	tree := toyReportTree(t)
	speciesA := tree.ExternalID[3]
	speciesB := tree.ExternalID[4]
	genus := tree.ExternalID[2]
	root := tree.ExternalID[1]

	direct := map[uint32]int{speciesA: 3, speciesB: 2}
	clade := cladeCounts(tree, direct)

	if clade[speciesA] != 3 || clade[speciesB] != 2 {
		t.Fatalf("leaf clade counts should equal direct counts: got %d, %d", clade[speciesA], clade[speciesB])
	}
	if clade[genus] != 5 {
		t.Fatalf("genus clade count should sum its two children: got %d, want 5", clade[genus])
	}
	if clade[root] != 5 {
		t.Fatalf("root clade count should equal total hits: got %d, want 5", clade[root])
	}
}

func TestWriteCallsReportsUnclassifiedRow(t *testing.T) {
	tree := toyReportTree(t)
	speciesAExternal := tree.Nodes[tree.ExternalID[3]].ExternalID

	calls := []classify.Call{
		{Classified: true, CalledTaxid: speciesAExternal},
		{Classified: false},
		{Classified: false},
	}

	var buf bytes.Buffer
	kw := NewKreportWriter(&buf, tree, false)
	if err := kw.WriteCalls(calls); err != nil {
		t.Fatalf("WriteCalls: %v", err)
	}
	kw.Flush()

	out := buf.String()
	if !strings.Contains(out, "unclassified") {
		t.Fatalf("expected an unclassified row, got:\n%s", out)
	}
	if !strings.Contains(out, "root") {
		t.Fatalf("expected a root row, got:\n%s", out)
	}
}

func TestWriteCallsOmitsZeroRowsByDefault(t *testing.T) {
	tree := toyReportTree(t)
	speciesAExternal := tree.Nodes[tree.ExternalID[3]].ExternalID

	calls := []classify.Call{{Classified: true, CalledTaxid: speciesAExternal}}

	var buf bytes.Buffer
	kw := NewKreportWriter(&buf, tree, false)
	if err := kw.WriteCalls(calls); err != nil {
		t.Fatalf("WriteCalls: %v", err)
	}
	kw.Flush()

	out := buf.String()
	if strings.Contains(out, "    B\n") {
		t.Fatalf("species B had zero hits and ReportZeroCounts is false, should be omitted:\n%s", out)
	}
}

func TestWriteCallsIncludesZeroRowsWhenRequested(t *testing.T) {
	tree := toyReportTree(t)
	speciesAExternal := tree.Nodes[tree.ExternalID[3]].ExternalID

	calls := []classify.Call{{Classified: true, CalledTaxid: speciesAExternal}}

	var buf bytes.Buffer
	kw := NewKreportWriter(&buf, tree, true)
	if err := kw.WriteCalls(calls); err != nil {
		t.Fatalf("WriteCalls: %v", err)
	}
	kw.Flush()

	out := buf.String()
	if !strings.Contains(out, "B\n") {
		t.Fatalf("expected species B's zero-count row when ReportZeroCounts is set:\n%s", out)
	}
}

func TestRankLabelMarksIntermediateRanks(t *testing.T) {
	tree := toyReportTree(t)
	noRankNode := tree.ExternalID[5]
	if got := tree.RankLabel(noRankNode); got != "R1" {
		t.Fatalf("expected intermediate rank label R1 for a no-rank node one step below root, got %q", got)
	}
	speciesC := tree.ExternalID[6]
	if got := tree.RankLabel(speciesC); got != "S" {
		t.Fatalf("expected rank label S for a species node, got %q", got)
	}
}
