package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eric9n/Kun-peng/dbopt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/taxonomy"
)

func toyTreeForTest(t *testing.T) *taxonomy.Tree {
	t.Helper()
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.dmp")
	namesPath := filepath.Join(dir, "names.dmp")

	nodes := "" +
		"1\t|\t1\t|\troot\n" +
		"2\t|\t1\t|\tphylum\n" +
		"3\t|\t2\t|\tspecies\n" +
		"4\t|\t2\t|\tspecies\n"
	if err := os.WriteFile(nodesPath, []byte(nodes), 0o644); err != nil {
		t.Fatalf("write nodes.dmp: %v", err)
	}

	names := "" +
		"1\t|\troot\t|\t\t|\tscientific name\t|\n" +
		"2\t|\tBacteria\t|\t\t|\tscientific name\t|\n" +
		"3\t|\tE. coli\t|\t\t|\tscientific name\t|\n" +
		"4\t|\tB. subtilis\t|\t\t|\tscientific name\t|\n"
	if err := os.WriteFile(namesPath, []byte(names), 0o644); err != nil {
		t.Fatalf("write names.dmp: %v", err)
	}

	tree, err := taxonomy.NewFromNCBI(nodesPath, namesPath)
	if err != nil {
		t.Fatalf("NewFromNCBI: %v", err)
	}
	return tree
}

func writeFasta(t *testing.T, path string, records map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fasta: %v", err)
	}
	defer f.Close()
	for id, seq := range records {
		if _, err := f.WriteString(">" + id + "\n" + seq + "\n"); err != nil {
			t.Fatalf("write fasta: %v", err)
		}
	}
}

func TestPassAThenPassBProducesLookupablePages(t *testing.T) {
	dir := t.TempDir()
	fastaPath := filepath.Join(dir, "library.fna")
	seq := "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"
	writeFasta(t, fastaPath, map[string]string{"seq1": seq})

	cfg := Config{
		Opts: dbopt.Options{
			K: 20, L: 15, Spaces: 3, ToggleMask: dbopt.DefaultToggleMask,
			ValueBits: 24, Flags: dbopt.DNADBFlag,
		},
		HashCapacityPerShard: 4096,
		ShardCount:           2,
		OutDir:               dir,
		Threads:              2,
	}

	seqidToTaxid := map[string]uint32{"seq1": 3}

	b := &Builder{cfg: cfg, taxo: nil, seqidToTaxid: seqidToTaxid}
	// a minimal four-node tree parsed from toy nodes.dmp/names.dmp files
	b.taxo = toyTreeForTest(t)

	_, err := b.PassA([]string{fastaPath})
	if err != nil {
		t.Fatalf("PassA: %v", err)
	}
	if err := b.PassB(); err != nil {
		t.Fatalf("PassB: %v", err)
	}

	cfgFile, err := os.Open(hashtable.ConfigPath(dir))
	if err != nil {
		t.Fatalf("open hash_config.k2d: %v", err)
	}
	defer cfgFile.Close()
	shardCfg, err := hashtable.ReadConfig(cfgFile)
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if shardCfg.ShardCount != cfg.ShardCount {
		t.Fatalf("shard count mismatch: %d != %d", shardCfg.ShardCount, cfg.ShardCount)
	}

	// every shard's page file should at least exist and be openable
	for i := 0; i < cfg.ShardCount; i++ {
		pf, err := os.Open(hashtable.PagePath(dir, i))
		if err != nil {
			t.Fatalf("open page %d: %v", i, err)
		}
		page, err := hashtable.ReadPage(pf)
		pf.Close()
		if err != nil {
			t.Fatalf("ReadPage %d: %v", i, err)
		}
		if len(page.Cells) != int(cfg.HashCapacityPerShard) {
			t.Fatalf("page %d has %d cells, want %d", i, len(page.Cells), cfg.HashCapacityPerShard)
		}
	}
}
