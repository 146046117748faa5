package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumStableAcrossClones(t *testing.T) {
	s := sampleState()
	s.Log = []LogEntry{}

	a, err := ComputeChecksum(s)
	require.NoError(t, err)
	b, err := ComputeChecksum(s.Clone())
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.Equal(t, ChecksumVersion, a.Version)
	assert.Len(t, a.Hash, 64)
}

func TestChecksumDetectsChanges(t *testing.T) {
	s := sampleState()
	before, err := ComputeChecksum(s)
	require.NoError(t, err)

	s.Player.Lanes[0][1].IsFaceUp = true
	after, err := ComputeChecksum(s)
	require.NoError(t, err)

	assert.False(t, before.Equal(after))
}
