package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
	"github.com/kasparite/node/domain/dagconfig"
	"github.com/kasparite/node/infrastructure/config"
	"github.com/kasparite/node/infrastructure/db/database/memdb"
	"github.com/kasparite/node/infrastructure/logger"
)

const testBits = 0x207fffff

func newTestConsensus(t *testing.T, params *dagconfig.Params) *Consensus {
	t.Helper()
	cfg := config.Defaults()
	cfg.SkipProofOfWork = true
	cfg.MaxBlockLevel = 0

	backend := logger.NewBackend(zapcore.ErrorLevel)
	c := New(memdb.New(), params, cfg, backend)
	require.NoError(t, c.Init(nil))
	return c
}

func hashByte(b byte) *externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return &h
}

func genesisHeader() *externalapi.DomainHeader {
	return &externalapi.DomainHeader{
		Bits:      testBits,
		BlueScore: 0,
	}
}

// childHeader builds a header whose fields the pipeline will accept as
// self-consistent: parent set, bits (uniform, so the short-window
// difficulty manager trivially agrees), and the hand-computed blue_score /
// blue_work the new header must declare to pass step 7 of the pipeline.
func childHeader(hash *externalapi.DomainHash, parents []*externalapi.DomainHash, blueScore uint64, blueWork blueworks.BlueWork) *externalapi.DomainHeader {
	return &externalapi.DomainHeader{
		Hash:           *hash,
		ParentsByLevel: [][]*externalapi.DomainHash{parents},
		Bits:           testBits,
		BlueScore:      blueScore,
		BlueWorkBytes:  blueWork.Bytes(),
	}
}

// TestScenario1_GenesisOnly exercises a fresh consensus whose only
// committed header is genesis.
func TestScenario1_GenesisOnly(t *testing.T) {
	c := newTestConsensus(t, dagconfig.SimNet())

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	status, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	data, ok := c.GhostdagData.Get(0, &genesis.Hash)
	require.True(t, ok)
	require.Equal(t, uint64(0), data.BlueScore)
	require.True(t, data.SelectedParent.IsOrigin())

	tip, ok := c.SelectedChain.Tip()
	require.True(t, ok)
	require.True(t, tip.Equal(&genesis.Hash))
}

// TestScenario2_LinearChain exercises genesis followed by three blocks in
// a straight line, each one's blue_score counting exactly the real blocks
// in its own past.
func TestScenario2_LinearChain(t *testing.T) {
	c := newTestConsensus(t, dagconfig.SimNet())

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	_, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)

	perBlock := blueworks.WorkFromBits(testBits)

	h1Hash := hashByte(0x02)
	h1 := childHeader(h1Hash, []*externalapi.DomainHash{&genesis.Hash}, 1, perBlock)
	status, err := c.Process(h1)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	h2Hash := hashByte(0x03)
	h2Work := perBlock.Add(perBlock)
	h2 := childHeader(h2Hash, []*externalapi.DomainHash{h1Hash}, 2, h2Work)
	status, err = c.Process(h2)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	h3Hash := hashByte(0x04)
	h3Work := h2Work.Add(perBlock)
	h3 := childHeader(h3Hash, []*externalapi.DomainHash{h2Hash}, 3, h3Work)
	status, err = c.Process(h3)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	h3Data, ok := c.GhostdagData.Get(0, h3Hash)
	require.True(t, ok)
	require.Equal(t, uint64(3), h3Data.BlueScore)

	tip, ok := c.SelectedChain.Tip()
	require.True(t, ok)
	require.True(t, tip.Equal(h3Hash))

	isAncestor, err := c.ReachabilityManager.IsChainAncestorOf(&genesis.Hash, h3Hash)
	require.NoError(t, err)
	require.True(t, isAncestor)
}

// TestScenario3_ForkTie exercises two equal-work children of genesis,
// merged by a third block whose selected parent must be the fork tip with
// the lexicographically smaller hash.
func TestScenario3_ForkTie(t *testing.T) {
	c := newTestConsensus(t, dagconfig.SimNet())

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	_, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)

	perBlock := blueworks.WorkFromBits(testBits)

	smallerHash := hashByte(0x02)
	smaller := childHeader(smallerHash, []*externalapi.DomainHash{&genesis.Hash}, 1, perBlock)
	_, err = c.Process(smaller)
	require.NoError(t, err)

	largerHash := hashByte(0x03)
	larger := childHeader(largerHash, []*externalapi.DomainHash{&genesis.Hash}, 1, perBlock)
	_, err = c.Process(larger)
	require.NoError(t, err)

	mergeHash := hashByte(0x04)
	// selected parent (smaller) contributes its own blue_work (perBlock) plus
	// this block's own mergeset_blues sum (smaller and larger, one perBlock
	// each): perBlock + perBlock + perBlock.
	mergeWork := perBlock.Add(perBlock).Add(perBlock)
	merge := childHeader(mergeHash, []*externalapi.DomainHash{smallerHash, largerHash}, 3, mergeWork)
	status, err := c.Process(merge)
	require.NoError(t, err)
	require.Equal(t, externalapi.StatusHeaderOnly, status)

	mergeData, ok := c.GhostdagData.Get(0, mergeHash)
	require.True(t, ok)
	require.True(t, mergeData.SelectedParent.Equal(smallerHash), "selected parent must be the smaller hash on a blue_work tie")
	require.True(t, mergeData.IsBlue(largerHash))

	tip, ok := c.SelectedChain.Tip()
	require.True(t, ok)
	require.True(t, tip.Equal(mergeHash))
}

// TestRejectsBadBlueScore exercises header rejection: a header that
// understates its own blue_score must be rejected as invalid rather than
// silently accepted with the pipeline's own computed value.
func TestRejectsBadBlueScore(t *testing.T) {
	c := newTestConsensus(t, dagconfig.SimNet())

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	_, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)

	perBlock := blueworks.WorkFromBits(testBits)
	h1Hash := hashByte(0x02)
	h1 := childHeader(h1Hash, []*externalapi.DomainHash{&genesis.Hash}, 99, perBlock)

	status, err := c.Process(h1)
	require.Error(t, err)
	require.Equal(t, externalapi.StatusInvalid, status)

	stored, ok := c.Statuses.Status(h1Hash)
	require.True(t, ok)
	require.Equal(t, externalapi.StatusInvalid, stored)
}

// TestRejectsUnknownParent exercises rejection of a header naming a
// parent the consensus has never seen, which must not be silently
// defaulted to ORIGIN.
func TestRejectsUnknownParent(t *testing.T) {
	c := newTestConsensus(t, dagconfig.SimNet())

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	_, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)

	ghost := hashByte(0xee)
	orphan := childHeader(hashByte(0x02), []*externalapi.DomainHash{ghost}, 1, blueworks.WorkFromBits(testBits))

	status, err := c.Process(orphan)
	require.Error(t, err)
	require.Equal(t, externalapi.StatusInvalid, status)
}

// TestPruningPointAdvancesExactlyAtDepth exercises the exactly-at-depth
// pruning boundary: the pruning point must not move until a
// selected-chain candidate is at least PruningDepth blue-score below the
// current tip, and must move as soon as one is.
func TestPruningPointAdvancesExactlyAtDepth(t *testing.T) {
	params := dagconfig.SimNet()
	params.PruningDepth = 3
	c := newTestConsensus(t, params)

	genesis := genesisHeader()
	genesis.Hash = *hashByte(0x01)
	_, err := c.ProcessGenesis(genesis)
	require.NoError(t, err)

	perBlock := blueworks.WorkFromBits(testBits)
	prevHash := &genesis.Hash
	work := blueworks.Zero()
	for i := byte(1); i <= 3; i++ {
		work = work.Add(perBlock)
		h := hashByte(i + 0x10)
		header := childHeader(h, []*externalapi.DomainHash{prevHash}, uint64(i), work)
		_, err := c.Process(header)
		require.NoError(t, err)

		_, _, havePoint := c.Pruning.PruningPoint()
		if i < 3 {
			require.False(t, havePoint, "pruning point must not move before a candidate reaches PruningDepth")
		} else {
			require.True(t, havePoint, "pruning point must move once a candidate reaches PruningDepth")
		}
		prevHash = h
	}

	point, _, ok := c.Pruning.PruningPoint()
	require.True(t, ok)
	require.True(t, point.Equal(&genesis.Hash), "genesis is the only candidate exactly PruningDepth below the tip")
}
