package build

import "testing"

func TestRequiredCapacity(t *testing.T) {
	got := RequiredCapacity(700, 0.7)
	if got != 1000 {
		t.Fatalf("RequiredCapacity(700, 0.7) = %d, want 1000", got)
	}
}

func TestRequiredCapacityDefaultsLoadFactor(t *testing.T) {
	a := RequiredCapacity(700, 0)
	b := RequiredCapacity(700, LoadFactorDefault)
	if a != b {
		t.Fatalf("zero load factor should fall back to the default: %d != %d", a, b)
	}
}

func TestShardCount(t *testing.T) {
	got := ShardCount(2500, 1000)
	if got != 3 {
		t.Fatalf("ShardCount(2500, 1000) = %d, want 3", got)
	}
}

func TestCapacityEstimatorCountsDistinctKeys(t *testing.T) {
	est, err := NewCapacityEstimator(0.01)
	if err != nil {
		t.Fatalf("NewCapacityEstimator: %v", err)
	}
	for i := uint64(0); i < 10000; i++ {
		est.Add(i)
		est.Add(i) // duplicate, should not inflate the estimate
	}
	got := est.DistinctCount()
	if got < 9000 || got > 11000 {
		t.Fatalf("distinct count estimate %d too far from true cardinality 10000", got)
	}
}
