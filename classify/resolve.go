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

package classify

import (
	"bufio"
	"os"
	"sort"

	"github.com/eric9n/Kun-peng/chunkfmt"
	"github.com/eric9n/Kun-peng/taxonomy"
)

// ResolveStage turns a batch's hit file and staging sidecar into one Call
// per read.
type ResolveStage struct {
	Taxo                *taxonomy.Tree
	ConfidenceThreshold float64
	MinHitGroups        int
}

// Call is the resolved outcome for one read, ready for report formatting.
type Call struct {
	ReadSerial  uint32
	ReadID      string
	Classified  bool
	CalledTaxid uint32 // external NCBI taxid, 0 if unclassified
	Length1     int
	Length2     int // 0 for unpaired
	RunLength   []RunToken
}

// RunToken is one element of the Kraken run-length list: either a taxid run,
// an ambiguous run ("A"), a miss run ("0"), or the paired separator ("|:|").
type RunToken struct {
	Taxid     uint32 // external taxid; meaningless unless this is a taxid run
	Count     int
	Ambiguous bool
	Miss      bool
	Separator bool
}

// ResolveBatch reads hitFile and staging (already parsed) and returns one
// Call per read, sorted by ReadSerial to guarantee output follows strict
// input order regardless of how hits interleaved across shards.
func (r *ResolveStage) ResolveBatch(hitFile string, staging []chunkfmt.ReadStaging) ([]Call, error) {
	perRead := make(map[uint32][]uint32, len(staging))
	for _, st := range staging {
		perRead[st.ReadSerial] = make([]uint32, st.TotalKmers)
	}

	f, err := os.Open(hitFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	hr := chunkfmt.NewHitReader(bufio.NewReader(f))
	for {
		rec, err := hr.Read()
		if err != nil {
			break
		}
		if rec.KmerIndex == chunkfmt.PairedSeparatorIndex {
			continue
		}
		slots, ok := perRead[rec.ReadSerial]
		if !ok || int(rec.KmerIndex) >= len(slots) {
			continue
		}
		slots[rec.KmerIndex] = rec.Taxid
	}

	calls := make([]Call, 0, len(staging))
	for _, st := range staging {
		calls = append(calls, r.resolveRead(st, perRead[st.ReadSerial]))
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].ReadSerial < calls[j].ReadSerial })
	return calls, nil
}

func (r *ResolveStage) resolveRead(st chunkfmt.ReadStaging, internalTaxids []uint32) Call {
	call := Call{ReadSerial: st.ReadSerial, ReadID: st.ReadID, Length1: st.Length1, Length2: st.Length2}

	direct := make(map[uint32]int)
	totalNonAmbiguous := 0
	for _, t := range internalTaxids {
		if t == chunkfmt.AmbiguousTaxid {
			continue
		}
		totalNonAmbiguous++
		if t == taxonomy.Unclassified {
			continue
		}
		direct[t]++
	}

	// score[t] rolls up every hit in t's subtree, including t itself, by
	// walking each directly-hit taxon's ancestor chain and crediting every
	// node on the way to the root.
	score := make(map[uint32]int)
	for t, c := range direct {
		for anc := t; ; {
			score[anc] += c
			if anc == taxonomy.Root {
				break
			}
			anc = r.Taxo.Parent(anc)
			if anc == taxonomy.Unclassified {
				break
			}
		}
	}

	var best uint32
	bestScore := -1
	for t, sc := range score {
		if sc > bestScore || (sc == bestScore && t > best) {
			best = t
			bestScore = sc
		}
	}

	groups := countHitGroups(internalTaxids)

	classified := best != taxonomy.Unclassified && groups >= r.MinHitGroups && totalNonAmbiguous > 0
	if classified {
		confidence := float64(bestScore) / float64(totalNonAmbiguous)
		for confidence < r.ConfidenceThreshold {
			if best == taxonomy.Root {
				classified = false
				break
			}
			best = r.Taxo.Parent(best)
			bestScore = score[best]
			confidence = float64(bestScore) / float64(totalNonAmbiguous)
		}
	}

	if classified {
		call.Classified = true
		call.CalledTaxid = r.Taxo.Nodes[best].ExternalID
	}
	call.RunLength = runLengthTokens(internalTaxids, st.Kmers1, r.Taxo)
	return call
}

// countHitGroups counts maximal runs of consecutive k-mers mapped to the
// same non-zero, non-ambiguous taxid; the minimum-hit-groups filter rejects
// a call supported by only a single clustered run of identical minimizers.
func countHitGroups(taxids []uint32) int {
	groups := 0
	var prev uint32
	inRun := false
	for _, t := range taxids {
		if t == taxonomy.Unclassified || t == chunkfmt.AmbiguousTaxid {
			inRun = false
			continue
		}
		if !inRun || t != prev {
			groups++
		}
		prev = t
		inRun = true
	}
	return groups
}

// runLengthTokens compresses a read's per-k-mer taxid sequence into the
// Kraken output's run-length list, splicing in the `|:|` separator at
// kmers1 for a paired read (kmers1 == 0 for unpaired reads).
func runLengthTokens(taxids []uint32, kmers1 int, taxo *taxonomy.Tree) []RunToken {
	var tokens []RunToken
	if kmers1 > 0 && kmers1 <= len(taxids) {
		tokens = append(tokens, runsOf(taxids[:kmers1], taxo)...)
		tokens = append(tokens, RunToken{Separator: true, Count: 1})
		tokens = append(tokens, runsOf(taxids[kmers1:], taxo)...)
		return tokens
	}
	return runsOf(taxids, taxo)
}

func runsOf(taxids []uint32, taxo *taxonomy.Tree) []RunToken {
	var tokens []RunToken
	if len(taxids) == 0 {
		return tokens
	}

	classify := func(t uint32) (isAmbig, isMiss bool) {
		return t == chunkfmt.AmbiguousTaxid, t == taxonomy.Unclassified
	}

	runStart := 0
	cur := taxids[0]
	curAmbig, curMiss := classify(cur)
	for i := 1; i <= len(taxids); i++ {
		if i < len(taxids) {
			t := taxids[i]
			a, m := classify(t)
			if t == cur && a == curAmbig && m == curMiss {
				continue
			}
		}
		tok := RunToken{Count: i - runStart, Ambiguous: curAmbig, Miss: curMiss}
		if !curAmbig && !curMiss {
			tok.Taxid = taxo.Nodes[cur].ExternalID
		}
		tokens = append(tokens, tok)
		if i < len(taxids) {
			cur = taxids[i]
			curAmbig, curMiss = classify(cur)
			runStart = i
		}
	}
	return tokens
}
