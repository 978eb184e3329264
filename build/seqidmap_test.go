package build

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSeqidToTaxidParsesTabDelimitedPairs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seqid2taxid.map")
	content := "NC_000001.1\t9606\nNC_000002.1\t10090\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	m, err := LoadSeqidToTaxid(path)
	if err != nil {
		t.Fatalf("LoadSeqidToTaxid: %v", err)
	}
	if m["NC_000001.1"] != 9606 {
		t.Errorf("got %d, want 9606", m["NC_000001.1"])
	}
	if m["NC_000002.1"] != 10090 {
		t.Errorf("got %d, want 10090", m["NC_000002.1"])
	}
	if len(m) != 2 {
		t.Errorf("got %d entries, want 2", len(m))
	}
}

func TestLoadSeqidToTaxidMissingFile(t *testing.T) {
	if _, err := LoadSeqidToTaxid(filepath.Join(t.TempDir(), "missing.map")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
