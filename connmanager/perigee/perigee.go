// Package perigee implements the Perigee-style peer-ranking and eviction
// policy: ranks derived per peer, folded into lowest_rank /
// highest_none_latency_rank, and two selection operators used
// by the connection manager's eviction and retention decisions. New
// subsystem with no direct reference implementation, so it is built in the
// sibling connmanager package's idiom (ConnectionManager struct + exported
// operations over a snapshot, no background goroutine of its own).
package perigee

import (
	"math/rand"
	"sort"
	"time"
)

// RETAIN_RATIO is the fraction of peers (by lowest_rank) that are never
// evicted, named for Bitcoin's inspiration.7.
const RetainRatio = 0.4

// Sample is the raw per-peer measurement the connection manager gathers
// each Perigee round, before ranks are derived.
type Sample struct {
	PeerID            string
	IPPrefixBucket    string
	TimeConnected     time.Duration
	LastPingDuration  time.Duration
	LastBlockTransfer *time.Duration
	LastTxTransfer    *time.Duration
}

// Ranks holds the five derived ranks for one peer plus the two folded
// scores, all in [0, n-1] with 0 best (ties split evenly.7).
type Ranks struct {
	PeerID                 string
	IPPrefixBucket         float64
	TimeConnected          float64
	LastPingDuration       float64
	LastBlockTransfer      float64
	LastTxTransfer         float64
	LowestRank             float64
	HighestNoneLatencyRank float64
}

// ComputeRanks derives Ranks for every sample.7's five-rank
// scheme with equal-split ties.
func ComputeRanks(samples []Sample) []Ranks {
	n := len(samples)
	if n == 0 {
		return nil
	}

	prefixCounts := make(map[string]int, n)
	for _, s := range samples {
		prefixCounts[s.IPPrefixBucket]++
	}

	ipPrefixRank := rankBy(samples, func(s Sample) float64 {
		// Fewer peers sharing a prefix bucket is better (lower rank),
		// rewarding prefix diversity.
		return float64(prefixCounts[s.IPPrefixBucket])
	})
	timeConnectedRank := rankBy(samples, func(s Sample) float64 {
		// Longer-connected is better: rank by negative duration so sort
		// ascending puts the longest-connected first.
		return -float64(s.TimeConnected)
	})
	pingRank := rankBy(samples, func(s Sample) float64 {
		return float64(s.LastPingDuration)
	})
	blockTransferRank := rankBy(samples, func(s Sample) float64 {
		return optionalRankKey(s.LastBlockTransfer)
	})
	txTransferRank := rankBy(samples, func(s Sample) float64 {
		return optionalRankKey(s.LastTxTransfer)
	})

	out := make([]Ranks, n)
	for i, s := range samples {
		r := Ranks{
			PeerID:           s.PeerID,
			IPPrefixBucket:   ipPrefixRank[i],
			TimeConnected:    timeConnectedRank[i],
			LastPingDuration: pingRank[i],
			LastBlockTransfer: blockTransferRank[i],
			LastTxTransfer:    txTransferRank[i],
		}
		r.LowestRank = min5(r.IPPrefixBucket, r.TimeConnected, r.LastPingDuration, r.LastBlockTransfer, r.LastTxTransfer)
		r.HighestNoneLatencyRank = max2(r.TimeConnected, r.IPPrefixBucket)
		out[i] = r
	}
	return out
}

// optionalRankKey maps Some(t) to t (lower better) and None to 2^62, a
// value larger than any realistic duration, so None always sorts worst.
func optionalRankKey(d *time.Duration) float64 {
	if d == nil {
		return float64(1) << 62
	}
	return float64(*d)
}

// rankBy assigns each sample a rank in [0, n-1] by ascending key, splitting
// ties equally (each tied member gets the mean rank of its tie group).
func rankBy(samples []Sample, key func(Sample) float64) []float64 {
	n := len(samples)
	type indexed struct {
		idx int
		key float64
	}
	sorted := make([]indexed, n)
	for i, s := range samples {
		sorted[i] = indexed{idx: i, key: key(s)}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && sorted[j].key == sorted[i].key {
			j++
		}
		groupRank := float64(i+j-1) / 2
		for k := i; k < j; k++ {
			ranks[sorted[k].idx] = groupRank
		}
		i = j
	}
	return ranks
}

func min5(a, b, c, d, e float64) float64 {
	m := a
	for _, v := range []float64{b, c, d, e} {
		if v < m {
			m = v
		}
	}
	return m
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// RetainLowestRankPeers implements retain_lowest_rank_peers(n): sorts by
// lowest_rank ascending with a random tie-break and returns everyone after
// skipping the first n (the protected top performers).
func RetainLowestRankPeers(ranks []Ranks, n int) []Ranks {
	shuffled := make([]Ranks, len(ranks))
	copy(shuffled, ranks)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	sort.SliceStable(shuffled, func(i, j int) bool { return shuffled[i].LowestRank < shuffled[j].LowestRank })
	if n >= len(shuffled) {
		return nil
	}
	return shuffled[n:]
}

// ProtectedCount returns how many of n peers are protected under
// RetainRatio: the top RetainRatio fraction of peers are never evicted.
func ProtectedCount(n int) int {
	return int(float64(n) * RetainRatio)
}

// EvictByHighestNoneLatencyRankWeighted implements
// evict_by_highest_none_latency_rank_weighted(k): a weighted random
// selection of k evictees, weight = highest_none_latency_rank + 1, drawn
// without replacement.
func EvictByHighestNoneLatencyRankWeighted(candidates []Ranks, k int) []Ranks {
	pool := make([]Ranks, len(candidates))
	copy(pool, candidates)

	evicted := make([]Ranks, 0, k)
	for len(evicted) < k && len(pool) > 0 {
		total := 0.0
		for _, r := range pool {
			total += r.HighestNoneLatencyRank + 1
		}
		pick := rand.Float64() * total
		running := 0.0
		chosenIdx := len(pool) - 1
		for i, r := range pool {
			running += r.HighestNoneLatencyRank + 1
			if pick <= running {
				chosenIdx = i
				break
			}
		}
		evicted = append(evicted, pool[chosenIdx])
		pool = append(pool[:chosenIdx], pool[chosenIdx+1:]...)
	}
	return evicted
}
