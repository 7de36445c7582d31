package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_HasPrefix(t *testing.T) {
	got, err := Generate("page")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "page-"))
	// prefix + dash + 21 char nanoid
	assert.Len(t, got, len("page")+1+21)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		got, err := Generate("book")
		require.NoError(t, err)
		assert.False(t, seen[got], "duplicate id generated: %s", got)
		seen[got] = true
	}
}

func TestGenerateLocal_IsLocal(t *testing.T) {
	got, err := GenerateLocal("page")
	require.NoError(t, err)
	assert.True(t, IsLocal(got))
	assert.True(t, strings.HasPrefix(got, "page-local-"))
}

func TestIsLocal_ServerIDs(t *testing.T) {
	assert.False(t, IsLocal("page-V1StGXR8_Z5jdHi6B-myT"))
	assert.False(t, IsLocal(MustGenerate("book")))
	assert.True(t, IsLocal(MustGenerateLocal("book")))
}
