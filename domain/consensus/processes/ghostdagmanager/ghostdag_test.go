package ghostdagmanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasparite/node/domain/consensus/datastructures/ghostdagdatastore"
	"github.com/kasparite/node/domain/consensus/datastructures/headerstore"
	"github.com/kasparite/node/domain/consensus/datastructures/reachabilitydatastore"
	"github.com/kasparite/node/domain/consensus/datastructures/relationsstore"
	"github.com/kasparite/node/domain/consensus/model"
	"github.com/kasparite/node/domain/consensus/model/externalapi"
	"github.com/kasparite/node/domain/consensus/processes/reachabilitymanager"
	"github.com/kasparite/node/domain/consensus/utils/blueworks"
	"github.com/kasparite/node/domain/dagconfig"
	"github.com/kasparite/node/infrastructure/db/database/memdb"
)

// harness wires a Manager against bare in-memory stores so a test can drive
// GHOSTDAG computation directly, without the header-processor pipeline
// wrapped around it.
type harness struct {
	t            *testing.T
	manager      *Manager
	ghostdag     *ghostdagdatastore.Store
	relations    *relationsstore.Store
	headers      *headerstore.Store
	reachability *reachabilitymanager.Manager
}

func newHarness(t *testing.T, k dagconfig.KType) *harness {
	t.Helper()
	db := memdb.New()
	ghostdag := ghostdagdatastore.New(db)
	relations := relationsstore.New()
	headers := headerstore.New(db)
	reachStore := reachabilitydatastore.New()
	reachability := reachabilitymanager.New(reachStore)

	stagingArea := model.NewStagingArea()
	reachability.Init(stagingArea)
	ghostdag.Stage(stagingArea, 0, &externalapi.Origin, &externalapi.GhostdagData{})
	require.NoError(t, stagingArea.Commit())

	params := &dagconfig.Params{K: k}
	manager := New(ghostdag, relations, headers, reachability, params)
	return &harness{t: t, manager: manager, ghostdag: ghostdag, relations: relations, headers: headers, reachability: reachability}
}

// addBlock computes GHOSTDAG data for a block with the given parents and
// bits, then commits it to every store the way headerprocessor.commit does.
func (h *harness) addBlock(hash *externalapi.DomainHash, parents []*externalapi.DomainHash, bits uint32) *externalapi.GhostdagData {
	h.t.Helper()
	data, err := h.manager.GHOSTDAG(nil, 0, parents)
	require.NoError(h.t, err)

	stagingArea := model.NewStagingArea()
	h.headers.Stage(stagingArea, hash, &externalapi.DomainHeader{Bits: bits})
	h.ghostdag.Stage(stagingArea, 0, hash, data)
	h.relations.StageParents(stagingArea, 0, hash, parents)

	var filteredMergeset []*externalapi.DomainHash
	for _, member := range data.Mergeset() {
		if member.Equal(data.SelectedParent) {
			continue
		}
		filteredMergeset = append(filteredMergeset, member)
	}
	require.NoError(h.t, h.reachability.AddBlock(stagingArea, hash, data.SelectedParent, filteredMergeset))
	require.NoError(h.t, stagingArea.Commit())
	return data
}

func hashByte(b byte) *externalapi.DomainHash {
	var h externalapi.DomainHash
	h[0] = b
	return &h
}

const bits = 0x207fffff

// TestLinearChain_BlueScore exercises a linear chain of three blocks after
// genesis, each block's blue_score counting exactly the real (non-ORIGIN)
// blocks in its own past.
func TestLinearChain_BlueScore(t *testing.T) {
	h := newHarness(t, 18)

	genesis := hashByte(0x01)
	genesisData := h.addBlock(genesis, []*externalapi.DomainHash{&externalapi.Origin}, bits)
	require.Equal(t, uint64(0), genesisData.BlueScore, "genesis must start the chain at blue_score 0")

	h1 := hashByte(0x02)
	h1Data := h.addBlock(h1, []*externalapi.DomainHash{genesis}, bits)
	require.Equal(t, uint64(1), h1Data.BlueScore)

	h2 := hashByte(0x03)
	h2Data := h.addBlock(h2, []*externalapi.DomainHash{h1}, bits)
	require.Equal(t, uint64(2), h2Data.BlueScore)

	h3 := hashByte(0x04)
	h3Data := h.addBlock(h3, []*externalapi.DomainHash{h2}, bits)
	require.Equal(t, uint64(3), h3Data.BlueScore)

	perBlock := blueworks.WorkFromBits(bits)
	expectedWork := perBlock.Add(perBlock).Add(perBlock)
	require.Equal(t, 0, h3Data.BlueWork.Cmp(expectedWork))
}

// TestForkTie_SmallerHashWinsSelectedParent exercises two children of
// genesis with equal blue_work; the merging block's selected parent must
// be the one with the lexicographically smaller hash.
func TestForkTie_SmallerHashWinsSelectedParent(t *testing.T) {
	h := newHarness(t, 18)

	genesis := hashByte(0x01)
	h.addBlock(genesis, []*externalapi.DomainHash{&externalapi.Origin}, bits)

	smaller := hashByte(0x02)
	larger := hashByte(0x03)
	h.addBlock(smaller, []*externalapi.DomainHash{genesis}, bits)
	h.addBlock(larger, []*externalapi.DomainHash{genesis}, bits)

	merge := hashByte(0x04)
	mergeData := h.addBlock(merge, []*externalapi.DomainHash{smaller, larger}, bits)

	require.True(t, mergeData.SelectedParent.Equal(smaller))
	require.Len(t, mergeData.MergesetBlues, 2, "both fork tips fit inside K=18's anticone bound")
	require.True(t, mergeData.IsBlue(larger))
	require.Equal(t, uint64(3), mergeData.BlueScore, "selected parent's blue_score (1) plus both mergeset_blues entries (smaller, larger)")
}

// TestKBoundRejectsOversizedAnticone exercises the mergeset classification
// loop's K-cluster bound: with K=0 a merging block's non-selected-parent
// fork tip can never be blue.
func TestKBoundRejectsOversizedAnticone(t *testing.T) {
	h := newHarness(t, 0)

	genesis := hashByte(0x01)
	h.addBlock(genesis, []*externalapi.DomainHash{&externalapi.Origin}, bits)

	smaller := hashByte(0x02)
	larger := hashByte(0x03)
	h.addBlock(smaller, []*externalapi.DomainHash{genesis}, bits)
	h.addBlock(larger, []*externalapi.DomainHash{genesis}, bits)

	merge := hashByte(0x04)
	mergeData := h.addBlock(merge, []*externalapi.DomainHash{smaller, larger}, bits)

	require.True(t, mergeData.SelectedParent.Equal(smaller))
	require.False(t, mergeData.IsBlue(larger), "K=0 leaves no room for a second blue in the mergeset")
	require.Contains(t, mergeData.MergesetReds, larger)
	require.Equal(t, uint64(2), mergeData.BlueScore, "a red mergeset member does not add to blue_score")
}
