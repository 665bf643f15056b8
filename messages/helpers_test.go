package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGossipCopyIsIndependent(t *testing.T) {
	original := &Gossip{Beats: map[string]uint64{"node-0": 3, "node-1": 7}}

	clone := original.Copy()
	clone.Beats["node-0"] = 99

	assert.Equal(t, uint64(3), original.Beats["node-0"])
	assert.Equal(t, uint64(7), clone.Beats["node-1"])
}

func TestCopyNilMessages(t *testing.T) {
	var gossip *Gossip
	var reply *GossipReply
	var multicast *CatastropheMulticast
	var catastropheReply *CatastropheReply

	require.Nil(t, gossip.Copy())
	require.Nil(t, reply.Copy())
	require.Nil(t, multicast.Copy())
	require.Nil(t, catastropheReply.Copy())
}

func TestTimerMessagesToString(t *testing.T) {
	assert.Equal(t, "Fail{node-1;3}", (&Fail{Peer: "node-1", Token: 3}).ToString())
	assert.Equal(t, "Miss{node-2;1}", (&Miss{Peer: "node-2", Token: 1}).ToString())
	assert.Equal(t, "Cleanup{node-3;0}", (&Cleanup{Peer: "node-3", Token: 0}).ToString())
}

func TestBeatsToStringIsSorted(t *testing.T) {
	gossip := &Gossip{Beats: map[string]uint64{"b": 2, "a": 1}}

	assert.Equal(t, "Gossip{ (a, 1) (b, 2) }", gossip.ToString())
}

func TestPickStrategyNames(t *testing.T) {
	assert.Equal(t, "uniform", PickUniform.String())
	assert.Equal(t, "linear", PickLinear.String())
	assert.Equal(t, "quadratic", PickQuadratic.String())
	assert.Equal(t, "unknown", PickStrategy(9).String())
}
