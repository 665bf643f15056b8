package messages

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func copyBeats(beats map[string]uint64) map[string]uint64 {
	if beats == nil {
		return nil
	}
	c := make(map[string]uint64, len(beats))
	for id, beat := range beats {
		c[id] = beat
	}
	return c
}

func beatsToString(beats map[string]uint64) string {
	ids := maps.Keys(beats)
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString("{ ")
	for _, id := range ids {
		fmt.Fprintf(&b, "(%s, %d) ", id, beats[id])
	}
	b.WriteString("}")
	return b.String()
}

func (m *Gossip) Copy() *Gossip {
	if m == nil {
		return nil
	}
	return &Gossip{Beats: copyBeats(m.Beats)}
}

func (m *Gossip) ToString() string {
	return "Gossip" + beatsToString(m.Beats)
}

func (m *GossipReply) Copy() *GossipReply {
	if m == nil {
		return nil
	}
	return &GossipReply{Beats: copyBeats(m.Beats)}
}

func (m *GossipReply) ToString() string {
	return "GossipReply" + beatsToString(m.Beats)
}

func (m *CatastropheMulticast) Copy() *CatastropheMulticast {
	if m == nil {
		return nil
	}
	return &CatastropheMulticast{Beats: copyBeats(m.Beats)}
}

func (m *CatastropheMulticast) ToString() string {
	return "CatastropheMulticast" + beatsToString(m.Beats)
}

func (m *CatastropheReply) Copy() *CatastropheReply {
	if m == nil {
		return nil
	}
	return &CatastropheReply{Beats: copyBeats(m.Beats)}
}

func (m *CatastropheReply) ToString() string {
	return "CatastropheReply" + beatsToString(m.Beats)
}

func (m *Fail) ToString() string {
	return fmt.Sprintf("Fail{%s;%d}", m.Peer, m.Token)
}

func (m *Miss) ToString() string {
	return fmt.Sprintf("Miss{%s;%d}", m.Peer, m.Token)
}

func (m *Cleanup) ToString() string {
	return fmt.Sprintf("Cleanup{%s;%d}", m.Peer, m.Token)
}
