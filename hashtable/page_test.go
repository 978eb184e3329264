package hashtable

import (
	"bytes"
	"testing"
)

func TestInsertThenLookup(t *testing.T) {
	p := NewPage(1024, 20)
	lca := func(a, b uint32) uint32 {
		if a < b {
			return a
		}
		return b
	}

	keys := []uint64{1, 2, 3, 1000000, 0xdeadbeef}
	for i, k := range keys {
		if err := p.InsertOrMerge(k, uint32(i+1), lca); err != nil {
			t.Fatalf("InsertOrMerge(%d): %v", k, err)
		}
	}

	for i, k := range keys {
		got, ok := p.Lookup(k)
		if !ok {
			t.Fatalf("Lookup(%d): miss", k)
		}
		if got != uint32(i+1) {
			t.Fatalf("Lookup(%d) = %d, want %d", k, got, i+1)
		}
	}
}

func TestLookupMissOnEmptyPage(t *testing.T) {
	p := NewPage(16, 20)
	if _, ok := p.Lookup(42); ok {
		t.Fatalf("expected miss on empty page")
	}
}

func TestInsertOrMergeMergesOnFingerprintCollision(t *testing.T) {
	p := NewPage(1, 20) // capacity 1 forces every key to the same slot
	calls := 0
	lca := func(a, b uint32) uint32 {
		calls++
		if a < b {
			return a
		}
		return b
	}
	if err := p.InsertOrMerge(1, 5, lca); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := p.InsertOrMerge(1, 3, lca); err != nil {
		t.Fatalf("second insert: %v", err)
	}
	got, ok := p.Lookup(1)
	if !ok || got != 3 {
		t.Fatalf("expected merged value 3, got %d ok=%v", got, ok)
	}
}

func TestCapacityExhausted(t *testing.T) {
	p := NewPage(2, 20)
	lca := func(a, b uint32) uint32 { return a }
	// with ValueBits=20, keys 1<<20, 2<<20 and 3<<20 carry the distinct
	// fingerprints 1, 2 and 3: the first two fill both slots, and the third
	// probes the whole page without finding an empty or matching slot.
	for k := uint64(1); k <= 2; k++ {
		if err := p.InsertOrMerge(k<<20, 1, lca); err != nil {
			t.Fatalf("InsertOrMerge(%d): %v", k<<20, err)
		}
	}
	if err := p.InsertOrMerge(3<<20, 1, lca); err != ErrCapacityExhausted {
		t.Fatalf("expected ErrCapacityExhausted on a full page, got %v", err)
	}
	if p.Size() > 2 {
		t.Fatalf("page holds more cells than its capacity")
	}
}

func TestPageSerializationRoundTrip(t *testing.T) {
	p := NewPage(8, 20)
	lca := func(a, b uint32) uint32 { return a }
	p.InsertOrMerge(1, 7, lca)
	p.InsertOrMerge(2, 9, lca)

	var buf bytes.Buffer
	if _, err := p.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	loaded, err := ReadPage(&buf)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if len(loaded.Cells) != len(p.Cells) {
		t.Fatalf("cell count mismatch")
	}
	for i := range p.Cells {
		if p.Cells[i] != loaded.Cells[i] {
			t.Fatalf("cell %d mismatch: %d != %d", i, p.Cells[i], loaded.Cells[i])
		}
	}
}

func TestShardOfIsDeterministicPartition(t *testing.T) {
	cfg := Config{
		ValueBits:            20,
		TotalCapacity:        1000,
		HashCapacityPerShard: 100,
		ShardCount:           10,
	}
	for key := uint64(0); key < 5000; key++ {
		shard := cfg.ShardOf(key)
		if shard < 0 || shard >= cfg.ShardCount {
			t.Fatalf("key %d mapped to out-of-range shard %d", key, shard)
		}
	}
}
