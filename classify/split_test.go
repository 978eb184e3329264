package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/hashtable"
	"github.com/eric9n/Kun-peng/kmer"
	"github.com/eric9n/Kun-peng/seqsrc"
)

type fakeSource struct {
	recs []seqsrc.Record
	i    int
}

func (f *fakeSource) Next() (seqsrc.Record, bool, error) {
	if f.i >= len(f.recs) {
		return seqsrc.Record{}, false, nil
	}
	r := f.recs[f.i]
	f.i++
	return r, true, nil
}

func (f *fakeSource) Close() error { return nil }

func toySpec() *kmer.Spec {
	return &kmer.Spec{K: 20, L: 15, S: 3, T: 0}
}

func toyShardCfg() hashtable.Config {
	return hashtable.Config{
		ValueBits:            24,
		ValueMask:            1<<24 - 1,
		TotalCapacity:        8192,
		HashCapacityPerShard: 4096,
		ShardCount:           2,
	}
}

func TestScanReadSuppressesConsecutiveDuplicates(t *testing.T) {
	// a homopolymer run yields the same canonical l-mer over and over;
	// every window should collapse to a single surviving call.
	seq := []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	calls, total, err := scanRead(seq, toySpec())
	if err != nil {
		t.Fatalf("scanRead: %v", err)
	}
	if total == 0 {
		t.Fatalf("expected at least one k-window for a 40bp read")
	}
	if len(calls) != 1 {
		t.Fatalf("expected duplicate suppression to collapse to 1 call, got %d", len(calls))
	}
}

func TestScanReadTooShortYieldsNoCalls(t *testing.T) {
	calls, total, err := scanRead([]byte("ACGT"), toySpec())
	if err != nil {
		t.Fatalf("scanRead: %v", err)
	}
	if len(calls) != 0 || total != 0 {
		t.Fatalf("expected no calls for a read shorter than k, got %d calls, %d total", len(calls), total)
	}
}

func TestCheckChunkDirCleanDetectsLeftovers(t *testing.T) {
	dir := t.TempDir()
	if err := CheckChunkDirClean(dir); err != nil {
		t.Fatalf("empty dir should be clean: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sample_0_0.k2"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write leftover: %v", err)
	}
	err := CheckChunkDirClean(dir)
	if err == nil {
		t.Fatalf("expected ErrChunkDirNotClean for a dir with leftover split files")
	}
}

func TestSplitStageRunProducesShardFilesAndStaging(t *testing.T) {
	dir := t.TempDir()
	stage := &SplitStage{Spec: toySpec(), ShardCfg: toyShardCfg(), ChunkDir: dir, BatchSize: 10}

	seq := "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"
	src := &fakeSource{recs: []seqsrc.Record{{ID: "read1", Seq: []byte(seq)}, {ID: "read2", Seq: []byte(seq)}}}

	batches, err := stage.Run(src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch for 2 reads under batch size 10, got %d", len(batches))
	}
	b := batches[0]
	if len(b.ShardFiles) != 2 {
		t.Fatalf("expected 2 shard files, got %d", len(b.ShardFiles))
	}

	totalRecords := 0
	for _, path := range b.ShardFiles {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open shard file: %v", err)
		}
		sr := chunkfmt.NewSplitReader(f)
		for {
			_, err := sr.Read()
			if err != nil {
				break
			}
			totalRecords++
		}
		f.Close()
	}
	if totalRecords == 0 {
		t.Fatalf("expected at least one split record across shards")
	}

	stagingF, err := os.Open(b.StagingFile)
	if err != nil {
		t.Fatalf("open staging file: %v", err)
	}
	defer stagingF.Close()
	sr := chunkfmt.NewStagingReader(stagingF)
	count := 0
	for {
		st, err := sr.Read()
		if err != nil {
			break
		}
		if st.ReadID != "read1" && st.ReadID != "read2" {
			t.Fatalf("unexpected read id in staging: %q", st.ReadID)
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 staging records, got %d", count)
	}
}

func TestSplitStageRunPairedInsertsSeparator(t *testing.T) {
	dir := t.TempDir()
	stage := &SplitStage{Spec: toySpec(), ShardCfg: toyShardCfg(), ChunkDir: dir, BatchSize: 10}

	seq1 := "ACGTACGTACGTACGTACGTACGTACGTACGTACGTACGT"
	seq2 := "TGCATGCATGCATGCATGCATGCATGCATGCATGCATGCA"
	m1 := &fakeSource{recs: []seqsrc.Record{{ID: "p1", Seq: []byte(seq1)}}}
	m2 := &fakeSource{recs: []seqsrc.Record{{ID: "p1", Seq: []byte(seq2)}}}
	paired := seqsrc.NewPaired(m1, m2)

	batches, err := stage.RunPaired(paired)
	if err != nil {
		t.Fatalf("RunPaired: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}

	foundSeparator := false
	for _, path := range batches[0].ShardFiles {
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("open shard file: %v", err)
		}
		sr := chunkfmt.NewSplitReader(f)
		for {
			rec, err := sr.Read()
			if err != nil {
				break
			}
			if rec.KmerIndex == chunkfmt.PairedSeparatorIndex {
				foundSeparator = true
			}
		}
		f.Close()
	}
	if !foundSeparator {
		t.Fatalf("expected a paired separator record in one of the shard files")
	}
}
