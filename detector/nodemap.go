package detector

import (
	"fmt"
	"strings"

	"github.com/asynkron/protoactor-go/actor"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"gossip-failure-detection/utils"
)

// NodeMap is the heartbeat view one node keeps of the whole system,
// including itself. The owner actor holds the only reference; callers
// outside the actor only ever see the beats snapshot.
type NodeMap struct {
	self  string
	nodes map[string]*NodeInfo
}

// NewNodeMap builds the view for an experiment from the node list in the
// start bundle. Every counter starts at zero and every peer is correct.
func NewNodeMap(self *actor.PID, all []*actor.PID) *NodeMap {
	m := new(NodeMap)
	m.self = utils.IdFromPid(self)
	m.nodes = make(map[string]*NodeInfo, len(all))
	for _, pid := range all {
		id := utils.IdFromPid(pid)
		m.nodes[id] = NewNodeInfo(id, pid)
	}
	return m
}

func (m *NodeMap) SelfId() string {
	return m.self
}

// Get returns the info for the given id, or nil if the peer is unknown
// or already cleaned up.
func (m *NodeMap) Get(id string) *NodeInfo {
	return m.nodes[id]
}

// Self returns the owner's own entry.
func (m *NodeMap) Self() *NodeInfo {
	return m.nodes[m.self]
}

func (m *NodeMap) Len() int {
	return len(m.nodes)
}

// Remove forgets a peer entirely. Terminal state of the peer lifecycle.
func (m *NodeMap) Remove(id string) {
	if info := m.nodes[id]; info != nil {
		info.CancelTimer()
	}
	delete(m.nodes, id)
}

// CorrectPeers returns the peers eligible as gossip targets: correct
// status, owner excluded. Sorted by id for stable iteration.
func (m *NodeMap) CorrectPeers() []*NodeInfo {
	peers := make([]*NodeInfo, 0, len(m.nodes))
	for id, info := range m.nodes {
		if id == m.self || info.Status() != StatusCorrect {
			continue
		}
		peers = append(peers, info)
	}
	slices.SortFunc(peers, func(a, b *NodeInfo) bool { return a.Id() < b.Id() })
	return peers
}

// ActivePeers returns the correct and missing peers, owner excluded.
// These are the multicast targets and the entries carried in gossip.
func (m *NodeMap) ActivePeers() []*NodeInfo {
	peers := make([]*NodeInfo, 0, len(m.nodes))
	for id, info := range m.nodes {
		if id == m.self || info.Status() == StatusFailed {
			continue
		}
		peers = append(peers, info)
	}
	slices.SortFunc(peers, func(a, b *NodeInfo) bool { return a.Id() < b.Id() })
	return peers
}

// CurrentBeats snapshots the heartbeat counters of the correct and
// missing peers plus the owner itself. Failed peers are never advertised.
func (m *NodeMap) CurrentBeats() map[string]uint64 {
	beats := make(map[string]uint64, len(m.nodes))
	for id, info := range m.nodes {
		if info.Status() == StatusFailed {
			continue
		}
		beats[id] = info.BeatCount()
	}
	return beats
}

// Merge applies an incoming view. For every correct or missing peer with
// an entry in the view, a strictly greater counter is adopted (resetting
// quiescence and recovering a missing peer to correct), any other entry
// bumps the peer's quiescence. The owner's own entry is ignored. Merge
// returns the peers whose counters advanced; the engine must reschedule
// their failure timers.
func (m *NodeMap) Merge(beats map[string]uint64) []*NodeInfo {
	var advanced []*NodeInfo
	for id, info := range m.nodes {
		if id == m.self || info.Status() == StatusFailed {
			continue
		}
		incoming, ok := beats[id]
		if !ok {
			continue
		}
		if incoming > info.BeatCount() {
			info.SetBeatCount(incoming)
			if info.Status() == StatusMissing {
				info.SetStatus(StatusCorrect)
			}
			advanced = append(advanced, info)
		} else {
			info.Quiescent()
		}
	}
	slices.SortFunc(advanced, func(a, b *NodeInfo) bool { return a.Id() < b.Id() })
	return advanced
}

// ResetAllQuiescence clears the staleness score of every active peer;
// called right after a catastrophe multicast.
func (m *NodeMap) ResetAllQuiescence() {
	for id, info := range m.nodes {
		if id == m.self || info.Status() == StatusFailed {
			continue
		}
		info.ResetQuiescence()
	}
}

// CancelAllTimers eagerly cancels every outstanding timer; called on
// Stop and on a simulated crash.
func (m *NodeMap) CancelAllTimers() {
	for _, info := range m.nodes {
		info.CancelTimer()
	}
}

// Clear empties the view.
func (m *NodeMap) Clear() {
	m.CancelAllTimers()
	m.nodes = make(map[string]*NodeInfo)
}

func (m *NodeMap) BeatsToString() string {
	ids := maps.Keys(m.nodes)
	slices.Sort(ids)

	var b strings.Builder
	b.WriteString("{ ")
	for _, id := range ids {
		fmt.Fprintf(&b, "(%s, %d) ", id, m.nodes[id].BeatCount())
	}
	b.WriteString("}")
	return b.String()
}
