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

package build

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	boom "github.com/tylertreat/BoomFilters"
)

// CapacityEstimator tracks the approximate number of distinct minimizer
// keys seen so far, so `estimate`/`build-db` can size the index
// without a full pass that materializes every key. Mirrors the teacher's
// reach for a BoomFilters structure when only an approximate count is
// needed, swapping its ScalableBloomFilter (set membership) for a
// HyperLogLog (cardinality) since capacity planning only needs the count.
type CapacityEstimator struct {
	hll *boom.HyperLogLog
	buf [8]byte
}

// NewCapacityEstimator returns an estimator accurate to about errorRate
// (e.g. 0.01 for 1%).
func NewCapacityEstimator(errorRate float64) (*CapacityEstimator, error) {
	hll, err := boom.NewDefaultHyperLogLog(errorRate)
	if err != nil {
		return nil, err
	}
	return &CapacityEstimator{hll: hll}, nil
}

// Add folds one minimizer key into the estimator. Keys are re-hashed with
// xxhash first: adjacent minimizers along a reference tend to differ by a
// shifted-in/out base pair, which otherwise clusters their raw bytes and
// would bias a sketch that buckets by leading-byte value.
func (e *CapacityEstimator) Add(key uint64) {
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], key)
	binary.LittleEndian.PutUint64(e.buf[:], xxhash.Sum64(raw[:]))
	e.hll.Add(e.buf[:])
}

// DistinctCount returns the current cardinality estimate.
func (e *CapacityEstimator) DistinctCount() uint64 {
	return e.hll.Count()
}

// LoadFactorDefault is the default target load factor for sizing an index:
// required_capacity = ceil(distinct_key_count / load_factor).
const LoadFactorDefault = 0.7

// RequiredCapacity computes required_capacity from a distinct key estimate
// and a target load factor, per §4.5's capacity-estimation formula.
func RequiredCapacity(distinctKeys uint64, loadFactor float64) uint64 {
	if loadFactor <= 0 {
		loadFactor = LoadFactorDefault
	}
	q := float64(distinctKeys) / loadFactor
	// a quotient that is whole up to float rounding (700/0.7 evaluates to
	// 1000.0000000000001) is not rounded up to the next slot
	if r := math.Round(q); math.Abs(q-r) <= 1e-9*r {
		return uint64(r)
	}
	return uint64(math.Ceil(q))
}

// ShardCount computes shard count = ceil(required_capacity / hash_capacity_per_shard).
func ShardCount(requiredCapacity, hashCapacityPerShard uint64) int {
	if hashCapacityPerShard == 0 {
		return 1
	}
	return int(math.Ceil(float64(requiredCapacity) / float64(hashCapacityPerShard)))
}
