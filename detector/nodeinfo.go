package detector

import (
	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
)

// Status of a peer as seen from one node.
type Status int

const (
	// StatusCorrect means the peer's heartbeat counter keeps advancing.
	StatusCorrect Status = iota
	// StatusMissing means the failure delta expired while catastrophe
	// recovery is enabled; the peer gets a second chance until the miss
	// delta expires.
	StatusMissing
	// StatusFailed means the peer has been reported as crashed. It stays
	// in this state until its cleanup timer removes it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCorrect:
		return "correct"
	case StatusMissing:
		return "missing"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// NodeInfo tracks the heartbeat counter, the staleness score and the
// failure timeout of a single peer. Exactly one timer is outstanding per
// peer at any time; its identity is the timeout token, bumped on every
// reschedule so that a stale firing can be recognized and dropped.
type NodeInfo struct {
	id  string
	pid *actor.PID

	beatCount  uint64
	quiescence int
	status     Status

	token  int
	cancel scheduler.CancelFunc
}

func NewNodeInfo(id string, pid *actor.PID) *NodeInfo {
	info := new(NodeInfo)
	info.id = id
	info.pid = pid
	info.status = StatusCorrect
	return info
}

func (info *NodeInfo) Id() string {
	return info.id
}

func (info *NodeInfo) Pid() *actor.PID {
	return info.pid
}

func (info *NodeInfo) BeatCount() uint64 {
	return info.beatCount
}

// SetBeatCount records a higher counter observed via gossip and resets
// the staleness score.
func (info *NodeInfo) SetBeatCount(beatCount uint64) {
	info.beatCount = beatCount
	info.quiescence = 0
}

// Heartbeat advances the counter; used only on the owner's own entry.
func (info *NodeInfo) Heartbeat() {
	info.beatCount++
}

func (info *NodeInfo) Quiescence() int {
	return info.quiescence
}

// Quiescent records one more gossip exchange during which the peer's
// counter did not advance.
func (info *NodeInfo) Quiescent() {
	info.quiescence++
}

func (info *NodeInfo) ResetQuiescence() {
	info.quiescence = 0
}

func (info *NodeInfo) Status() Status {
	return info.status
}

func (info *NodeInfo) SetStatus(status Status) {
	info.status = status
}

func (info *NodeInfo) Token() int {
	return info.token
}

// NextToken returns the token a fresh timer for this peer must carry.
func (info *NodeInfo) NextToken() int {
	return info.token + 1
}

// ArmTimer installs the first timer for this peer, keeping the current
// token.
func (info *NodeInfo) ArmTimer(cancel scheduler.CancelFunc) {
	info.cancel = cancel
}

// ResetTimeout cancels the outstanding timer, if any, and installs the
// new one under the given token. The token must come from NextToken so
// the in-flight firing of the old timer is dropped on delivery.
func (info *NodeInfo) ResetTimeout(token int, cancel scheduler.CancelFunc) {
	if info.cancel != nil {
		info.cancel()
	}
	info.token = token
	info.cancel = cancel
}

// CancelTimer eagerly cancels the outstanding timer. The token check on
// delivery makes this an optimization, not a correctness requirement.
func (info *NodeInfo) CancelTimer() {
	if info.cancel != nil {
		info.cancel()
		info.cancel = nil
	}
}
