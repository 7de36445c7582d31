package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWouldCycle_SelfParent(t *testing.T) {
	parents := map[string]string{"a": ""}

	assert.True(t, WouldCycle(parents, "a", "a"))
}

func TestWouldCycle_Descendant(t *testing.T) {
	// a -> b -> c
	parents := map[string]string{
		"a": "",
		"b": "a",
		"c": "b",
	}

	assert.True(t, WouldCycle(parents, "a", "c"), "moving a under its grandchild must cycle")
	assert.True(t, WouldCycle(parents, "a", "b"))
	assert.True(t, WouldCycle(parents, "b", "c"))
}

func TestWouldCycle_LegalMoves(t *testing.T) {
	parents := map[string]string{
		"a": "",
		"b": "a",
		"c": "b",
		"x": "",
	}

	assert.False(t, WouldCycle(parents, "c", "a"), "moving a leaf up the tree is fine")
	assert.False(t, WouldCycle(parents, "b", "x"), "moving a subtree under a sibling tree is fine")
	assert.False(t, WouldCycle(parents, "a", ""), "moving to top level is always fine")
	assert.False(t, WouldCycle(parents, "x", "c"))
}

func TestWouldCycle_UnknownParentTreatedAsRoot(t *testing.T) {
	parents := map[string]string{"a": ""}

	assert.False(t, WouldCycle(parents, "a", "ghost"))
}

func TestWouldCycle_CorruptDataDepthBound(t *testing.T) {
	// Build a pre-existing cycle not involving the moved book; the walk
	// must terminate and reject rather than loop forever.
	parents := map[string]string{"p": "q", "q": "p"}

	assert.True(t, WouldCycle(parents, "a", "p"))
}

func TestWouldCycle_DeepChainWithinBound(t *testing.T) {
	parents := map[string]string{}
	prev := ""
	for i := range 50 {
		id := fmt.Sprintf("b%d", i)
		parents[id] = prev
		prev = id
	}

	assert.False(t, WouldCycle(parents, "new", prev))
	assert.True(t, WouldCycle(parents, "b0", prev))
}
