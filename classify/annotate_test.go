package classify

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
)

func writePage(t *testing.T, path string, page *hashtable.Page) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create page file: %v", err)
	}
	defer f.Close()
	if _, err := page.WriteTo(f); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
}

func writeSplitChunk(t *testing.T, path string, recs []chunkfmt.SplitRecord) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create split chunk: %v", err)
	}
	defer f.Close()
	w := chunkfmt.NewSplitWriter(f)
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			t.Fatalf("write split record: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func readAllHits(t *testing.T, path string) []chunkfmt.HitRecord {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open hit file: %v", err)
	}
	defer f.Close()
	hr := chunkfmt.NewHitReader(bufio.NewReader(f))
	var out []chunkfmt.HitRecord
	for {
		rec, err := hr.Read()
		if err != nil {
			break
		}
		out = append(out, rec)
	}
	return out
}

func TestAnnotateBatchLooksUpHitsAgainstPage(t *testing.T) {
	dbDir := t.TempDir()
	chunkDir := t.TempDir()

	page := hashtable.NewPage(1024, 24)
	key := uint64(12345)
	if err := page.InsertOrMerge(key, 7, func(a, b uint32) uint32 { return a }); err != nil {
		t.Fatalf("InsertOrMerge: %v", err)
	}
	writePage(t, hashtable.PagePath(dbDir, 0), page)
	// shard 1 is left absent: every key routed there must come back as a miss

	chunk0 := filepath.Join(chunkDir, "sample_0_0.k2")
	writeSplitChunk(t, chunk0, []chunkfmt.SplitRecord{
		{ReadSerial: 0, KmerIndex: 0, Key: key},
		{ReadSerial: 0, KmerIndex: 1, Key: 99999}, // not inserted: miss
	})
	chunk1 := filepath.Join(chunkDir, "sample_0_1.k2")
	writeSplitChunk(t, chunk1, []chunkfmt.SplitRecord{
		{ReadSerial: 1, KmerIndex: 0, Key: 55},
	})

	stage := &AnnotateStage{DBDir: dbDir, ShardCfg: hashtable.Config{ShardCount: 2}}
	batch := Batch{Index: 0, ShardFiles: []string{chunk0, chunk1}}

	hitPath, err := stage.AnnotateBatch(chunkDir, batch)
	if err != nil {
		t.Fatalf("AnnotateBatch: %v", err)
	}

	hits := readAllHits(t, hitPath)
	if len(hits) != 3 {
		t.Fatalf("expected 3 hit records, got %d", len(hits))
	}

	byReadAndIndex := make(map[[2]uint32]uint32)
	for _, h := range hits {
		byReadAndIndex[[2]uint32{h.ReadSerial, uint32(h.KmerIndex)}] = h.Taxid
	}
	if got := byReadAndIndex[[2]uint32{0, 0}]; got != 7 {
		t.Fatalf("expected hit taxid 7 for read 0 kmer 0, got %d", got)
	}
	if got := byReadAndIndex[[2]uint32{0, 1}]; got != 0 {
		t.Fatalf("expected miss (0) for read 0 kmer 1, got %d", got)
	}
	if got := byReadAndIndex[[2]uint32{1, 0}]; got != 0 {
		t.Fatalf("expected miss (0) for absent shard 1, got %d", got)
	}
}

func TestAnnotateBatchPassesThroughPairedSeparator(t *testing.T) {
	dbDir := t.TempDir()
	chunkDir := t.TempDir()

	chunk0 := filepath.Join(chunkDir, "sample_0_0.k2")
	writeSplitChunk(t, chunk0, []chunkfmt.SplitRecord{
		{ReadSerial: 0, KmerIndex: chunkfmt.PairedSeparatorIndex, Key: 0},
	})

	stage := &AnnotateStage{DBDir: dbDir, ShardCfg: hashtable.Config{ShardCount: 1}}
	batch := Batch{Index: 0, ShardFiles: []string{chunk0}}

	hitPath, err := stage.AnnotateBatch(chunkDir, batch)
	if err != nil {
		t.Fatalf("AnnotateBatch: %v", err)
	}
	hits := readAllHits(t, hitPath)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit record, got %d", len(hits))
	}
	if hits[0].KmerIndex != chunkfmt.PairedSeparatorIndex {
		t.Fatalf("expected the separator record to pass through unchanged")
	}
}
