package perigee

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func durPtr(d time.Duration) *time.Duration { return &d }

func sampleSet() []Sample {
	return []Sample{
		{PeerID: "a", IPPrefixBucket: "1.2.3", TimeConnected: 10 * time.Minute, LastPingDuration: 50 * time.Millisecond, LastBlockTransfer: durPtr(time.Second), LastTxTransfer: durPtr(time.Second)},
		{PeerID: "b", IPPrefixBucket: "1.2.3", TimeConnected: 5 * time.Minute, LastPingDuration: 80 * time.Millisecond, LastBlockTransfer: nil, LastTxTransfer: durPtr(2 * time.Second)},
		{PeerID: "c", IPPrefixBucket: "4.5.6", TimeConnected: 20 * time.Minute, LastPingDuration: 20 * time.Millisecond, LastBlockTransfer: durPtr(500 * time.Millisecond), LastTxTransfer: nil},
		{PeerID: "d", IPPrefixBucket: "4.5.6", TimeConnected: time.Minute, LastPingDuration: 100 * time.Millisecond, LastBlockTransfer: nil, LastTxTransfer: nil},
	}
}

// TestComputeRanks_RankSumInvariant checks that each of the five per-peer
// rank columns sums to n*(n-1)/2 across all peers, the invariant that holds
// for any tie-splitting assignment of ranks over [0, n-1].
func TestComputeRanks_RankSumInvariant(t *testing.T) {
	samples := sampleSet()
	ranks := ComputeRanks(samples)
	require.Len(t, ranks, len(samples))

	n := float64(len(samples))
	expectedSum := n * (n - 1) / 2

	var ipSum, timeSum, pingSum, blockSum, txSum float64
	for _, r := range ranks {
		ipSum += r.IPPrefixBucket
		timeSum += r.TimeConnected
		pingSum += r.LastPingDuration
		blockSum += r.LastBlockTransfer
		txSum += r.LastTxTransfer
	}
	require.InDelta(t, expectedSum, ipSum, 1e-9)
	require.InDelta(t, expectedSum, timeSum, 1e-9)
	require.InDelta(t, expectedSum, pingSum, 1e-9)
	require.InDelta(t, expectedSum, blockSum, 1e-9)
	require.InDelta(t, expectedSum, txSum, 1e-9)
}

// TestComputeRanks_NoneSortsWorseThanSome checks that a missing (None)
// latency-style sample always ranks worse than any present (Some) sample.
func TestComputeRanks_NoneSortsWorseThanSome(t *testing.T) {
	ranks := ComputeRanks(sampleSet())
	byID := make(map[string]Ranks, len(ranks))
	for _, r := range ranks {
		byID[r.PeerID] = r
	}

	// b has no block transfer (None); a, c have one (Some). b must rank
	// worse (higher) on LastBlockTransfer than both.
	require.Greater(t, byID["b"].LastBlockTransfer, byID["a"].LastBlockTransfer)
	require.Greater(t, byID["b"].LastBlockTransfer, byID["c"].LastBlockTransfer)
}

func TestProtectedCount(t *testing.T) {
	require.Equal(t, 4, ProtectedCount(10))
	require.Equal(t, 0, ProtectedCount(2))
}

func TestRetainLowestRankPeers_SizeAndExclusion(t *testing.T) {
	ranks := ComputeRanks(sampleSet())
	protected := ProtectedCount(len(ranks))
	evictable := RetainLowestRankPeers(ranks, protected)

	require.Len(t, evictable, len(ranks)-protected)

	evictableIDs := make(map[string]bool)
	for _, r := range evictable {
		evictableIDs[r.PeerID] = true
	}
	// Every returned peer must actually be one of the originals.
	knownIDs := map[string]bool{"a": true, "b": true, "c": true, "d": true}
	for id := range evictableIDs {
		require.True(t, knownIDs[id])
	}
	// No protected (excluded) peer may rank worse than a returned one.
	for _, r := range ranks {
		if evictableIDs[r.PeerID] {
			continue
		}
		for _, e := range evictable {
			require.LessOrEqual(t, r.LowestRank, e.LowestRank)
		}
	}
}

func TestRetainLowestRankPeers_AllProtectedReturnsNone(t *testing.T) {
	ranks := ComputeRanks(sampleSet())
	require.Nil(t, RetainLowestRankPeers(ranks, len(ranks)))
}

func TestEvictByHighestNoneLatencyRankWeighted_DrawsWithoutReplacement(t *testing.T) {
	ranks := ComputeRanks(sampleSet())
	evicted := EvictByHighestNoneLatencyRankWeighted(ranks, 3)
	require.Len(t, evicted, 3)

	seen := make(map[string]bool)
	for _, r := range evicted {
		require.False(t, seen[r.PeerID], "must not evict the same peer twice")
		seen[r.PeerID] = true
	}
}

func TestEvictByHighestNoneLatencyRankWeighted_CapsAtPoolSize(t *testing.T) {
	ranks := ComputeRanks(sampleSet())
	evicted := EvictByHighestNoneLatencyRankWeighted(ranks, 100)
	require.Len(t, evicted, len(ranks))
}
