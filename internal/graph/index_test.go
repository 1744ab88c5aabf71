package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edges(pairs ...[2]string) []Edge {
	out := make([]Edge, len(pairs))
	for i, p := range pairs {
		out[i] = Edge{ParentID: p[0], ChildID: p[1]}
	}
	return out
}

// diamond: R -> P1, R -> P2, P1 -> D, P2 -> D
func diamond() *Index {
	return NewIndex(edges(
		[2]string{"R", "P1"},
		[2]string{"R", "P2"},
		[2]string{"P1", "D"},
		[2]string{"P2", "D"},
	))
}

func TestIsDescendant_Chain(t *testing.T) {
	idx := NewIndex(edges([2]string{"A", "B"}, [2]string{"B", "C"}))

	assert.True(t, idx.IsDescendant("C", "A"))
	assert.True(t, idx.IsDescendant("B", "A"))
	assert.False(t, idx.IsDescendant("A", "C"))
	assert.False(t, idx.IsDescendant("A", "A"))
	assert.False(t, idx.IsDescendant("unknown", "A"))
}

func TestIsDescendant_TerminatesOnExistingCycle(t *testing.T) {
	idx := NewIndex(edges([2]string{"A", "B"}, [2]string{"B", "A"}))
	assert.False(t, idx.IsDescendant("A", "Z"))
	assert.True(t, idx.IsDescendant("A", "B"))
}

func TestAncestorIDs_Diamond(t *testing.T) {
	idx := diamond()
	got := idx.AncestorIDs("D")
	assert.ElementsMatch(t, []string{"P1", "P2", "R"}, got)
	assert.Equal(t, "R", got[len(got)-1], "root is farthest and comes last")
	assert.Empty(t, idx.AncestorIDs("R"))
	assert.Equal(t, "D", idx.Ancestry("D")[0])
}

func TestNewIndex_SkipsSelfLoopsAndDuplicates(t *testing.T) {
	idx := NewIndex(edges([2]string{"A", "A"}, [2]string{"A", "B"}, [2]string{"A", "B"}))
	assert.Equal(t, []string{"B"}, idx.Children("A"))
	assert.Equal(t, []string{"A"}, idx.Parents("B"))
	assert.True(t, idx.HasEdge("A", "B"))
	assert.False(t, idx.HasEdge("B", "A"))
}

func TestWaves_ChildrenFirst(t *testing.T) {
	idx := diamond()
	waves, err := idx.Waves([]string{"R", "P1", "P2", "D"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"D"}, {"P1", "P2"}, {"R"}}, waves)
}

func TestWaves_ChildrenOutsideSetAreFinal(t *testing.T) {
	idx := diamond()
	waves, err := idx.Waves([]string{"R", "P1"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"P1"}, {"R"}}, waves)
}

func TestWaves_CycleReturnsPartial(t *testing.T) {
	idx := NewIndex(edges(
		[2]string{"A", "B"},
		[2]string{"B", "A"},
		[2]string{"C", "D"},
	))
	waves, err := idx.Waves([]string{"A", "B", "C", "D"})
	assert.ErrorIs(t, err, ErrCycle)
	assert.Equal(t, [][]string{{"D"}, {"C"}}, waves)
}
