// Package messages defines every message exchanged in the system: the
// control messages between the tracker and the nodes, the gossip protocol
// messages between nodes, and the self-messages the actors schedule as
// timers.
package messages

import (
	"time"

	"github.com/asynkron/protoactor-go/actor"
)

// PickStrategy selects the probability distribution used when drawing a
// gossip target among the peers believed correct.
type PickStrategy int

const (
	// PickUniform draws each correct peer with probability 1/n.
	PickUniform PickStrategy = iota
	// PickLinear weights each peer by quiescence+1.
	PickLinear
	// PickQuadratic weights each peer by quiescence^2+1.
	PickQuadratic
)

func (s PickStrategy) String() string {
	switch s {
	case PickUniform:
		return "uniform"
	case PickLinear:
		return "linear"
	case PickQuadratic:
		return "quadratic"
	}
	return "unknown"
}

// Registration is sent by a node to the tracker when the node boots.
type Registration struct{}

// StartExperiment carries the parameter bundle of one experiment from the
// tracker to a node. Faulty tells whether this node must simulate a crash
// after SimulateCrashAt; on a correct node SimulateCrashAt is meaningless.
type StartExperiment struct {
	Nodes []*actor.PID

	Faulty          bool
	SimulateCrashAt time.Duration

	GossipDelta  time.Duration
	FailureDelta time.Duration
	MissDelta    time.Duration

	PushPull bool
	Pick     PickStrategy

	EnableMulticast  bool
	MulticastParam   float64
	MulticastMaxWait int
}

// StopExperiment tells a node to reset its state and become idle.
type StopExperiment struct{}

// Shutdown tells a node that no more experiments will run.
type Shutdown struct{}

// Crash is sent by a node to the tracker when it simulates its scheduled
// crash. Informational only: the tracker scheduled the crash itself.
type Crash struct{}

// CrashReport is sent by a node to the tracker when it suspects a peer
// to have crashed.
type CrashReport struct {
	Node *actor.PID
}

// ReappearReport is sent by a node to the tracker when a peer it already
// reported as failed shows up again.
type ReappearReport struct {
	Node *actor.PID
}

// Gossip carries the sender's heartbeat view to a single peer.
type Gossip struct {
	Beats map[string]uint64
}

// GossipReply carries the receiver's view back to the gossip sender when
// the push-pull strategy is enabled.
type GossipReply struct {
	Beats map[string]uint64
}

// CatastropheMulticast carries the sender's view to every peer it still
// believes alive, as a defence against catastrophic simultaneous crashes.
type CatastropheMulticast struct {
	Beats map[string]uint64
}

// CatastropheReply answers a CatastropheMulticast with the receiver's view.
// Unlike GossipReply it is sent regardless of the push-pull flag.
type CatastropheReply struct {
	Beats map[string]uint64
}

// GossipReminder is the node's periodic self-message to gossip again.
type GossipReminder struct{}

// MulticastReminder is the node's periodic self-message to evaluate the
// multicast probability once more.
type MulticastReminder struct{}

// SelfCrash is the node's one-shot self-message to simulate its crash.
type SelfCrash struct{}

// Fail fires when a peer's heartbeat counter has not advanced for the
// failure delta. Token snapshots the peer's timeout token at schedule time;
// a mismatch on delivery marks the timer as stale.
type Fail struct {
	Peer  string
	Token int
}

// Miss fires when a missing peer did not recover within the miss delta.
type Miss struct {
	Peer  string
	Token int
}

// Cleanup fires when a failed peer must be forgotten entirely.
type Cleanup struct {
	Peer  string
	Token int
}

// ScheduleExperimentStart is the tracker's self-message to begin the
// experiment at the given index.
type ScheduleExperimentStart struct {
	Index int
}

// ScheduleExperimentStop is the tracker's self-message to end the
// experiment at the given index.
type ScheduleExperimentStop struct {
	Index int
}
