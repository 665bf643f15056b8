// Package detector implements the gossip-style failure detection node:
// the heartbeat view, the peer selector and the protocol engine actor.
package detector

import (
	"log"
	"math"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"golang.org/x/exp/rand"

	"gossip-failure-detection/eventlogger"
	"gossip-failure-detection/messages"
	"gossip-failure-detection/telemetry"
	"gossip-failure-detection/utils"
)

// MulticastPeriod is the cadence at which a node re-evaluates the
// multicast probability while catastrophe recovery is enabled.
const MulticastPeriod = time.Second

// NodeActor is the node protocol engine. It is a two-state actor: idle
// until a StartExperiment arrives, then running the heartbeat protocol
// until StopExperiment or a simulated crash brings it back to idle.
// Every handler runs to completion before the next message is delivered;
// all time-based events are self-messages scheduled through the timer
// scheduler.
type NodeActor struct {
	tracker *actor.PID
	logger  *log.Logger

	id     string
	log    *eventlogger.EventLogger
	timers *scheduler.TimerScheduler
	rnd    *rand.Rand

	ready bool

	nodes    *NodeMap
	selector *Selector

	gossipDelta  time.Duration
	failureDelta time.Duration
	missDelta    time.Duration
	cleanupDelta time.Duration

	pushPull bool

	enableMulticast  bool
	multicastParam   float64
	multicastMaxWait int
	multicastWait    int

	cancelSelfCrash scheduler.CancelFunc
	cancelGossip    scheduler.CancelFunc
	cancelMulticast scheduler.CancelFunc
}

// NewNodeActor creates a node that will register itself on the tracker
// and wait for instructions.
func NewNodeActor(tracker *actor.PID, logger *log.Logger) *NodeActor {
	n := new(NodeActor)
	n.tracker = tracker
	n.logger = logger
	return n
}

func (n *NodeActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		n.id = utils.IdFromPid(ctx.Self())
		n.log = eventlogger.InitEventLogger("Node ["+n.id+"]", n.logger)
		n.timers = scheduler.NewTimerScheduler(ctx)
		n.rnd = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
		n.log.Printf("start, register on the tracker")
		ctx.Request(n.tracker, &messages.Registration{})
	case *actor.Stopping, *actor.Stopped, *actor.Restarting:
	default:
		if n.ready {
			n.receiveReady(ctx, msg)
		} else {
			n.receiveNotReady(ctx, msg)
		}
	}
}

// receiveNotReady honours only Start, Stop and Shutdown; everything else
// is dropped.
func (n *NodeActor) receiveNotReady(ctx actor.Context, message any) {
	switch msg := message.(type) {
	case *messages.StartExperiment:
		n.onStart(ctx, msg)
	case *messages.StopExperiment:
		n.onStop()
	case *messages.Shutdown:
		ctx.Stop(ctx.Self())
	default:
		n.log.OnDroppedMessage(message)
	}
}

func (n *NodeActor) receiveReady(ctx actor.Context, message any) {
	switch msg := message.(type) {
	case *messages.StartExperiment:
		n.onStart(ctx, msg)
	case *messages.StopExperiment:
		n.onStop()
	case *messages.Shutdown:
		ctx.Stop(ctx.Self())
	case *messages.SelfCrash:
		n.onSelfCrash(ctx)
	case *messages.GossipReminder:
		n.sendGossip(ctx)
	case *messages.Gossip:
		n.onGossip(ctx, msg)
	case *messages.GossipReply:
		n.onGossipReply(ctx, msg)
	case *messages.Fail:
		n.onFail(ctx, msg)
	case *messages.Miss:
		n.onMiss(ctx, msg)
	case *messages.Cleanup:
		n.onCleanup(msg)
	case *messages.MulticastReminder:
		n.sendMulticast(ctx)
	case *messages.CatastropheMulticast:
		n.onMulticast(ctx, msg)
	case *messages.CatastropheReply:
		n.onCatastropheReply(ctx, msg)
	default:
		n.log.OnUnknownMessage(message)
	}
}

func (n *NodeActor) onStart(ctx actor.Context, msg *messages.StartExperiment) {
	if n.ready {
		n.reset()
	}
	n.ready = true

	n.gossipDelta = msg.GossipDelta
	n.failureDelta = msg.FailureDelta
	n.missDelta = msg.MissDelta
	n.cleanupDelta = 2 * msg.FailureDelta
	n.pushPull = msg.PushPull

	n.selector = NewSelector(msg.Pick, n.rnd.Uint64())

	// a fresh view: every counter at zero, every peer correct, one Fail
	// timer per peer armed with token 0
	n.nodes = NewNodeMap(ctx.Self(), msg.Nodes)
	for _, info := range n.nodes.ActivePeers() {
		peer := info.Id()
		token := info.Token()
		info.ArmTimer(n.timers.SendOnce(n.failureDelta, ctx.Self(), &messages.Fail{Peer: peer, Token: token}))
	}

	if msg.Faulty {
		n.cancelSelfCrash = n.timers.SendOnce(msg.SimulateCrashAt, ctx.Self(), &messages.SelfCrash{})
	}

	n.cancelGossip = n.timers.SendOnce(n.gossipDelta, ctx.Self(), &messages.GossipReminder{})

	n.enableMulticast = msg.EnableMulticast
	n.multicastParam = msg.MulticastParam
	n.multicastMaxWait = msg.MulticastMaxWait
	n.multicastWait = 0
	if n.enableMulticast {
		n.cancelMulticast = n.timers.SendOnce(MulticastPeriod, ctx.Self(), &messages.MulticastReminder{})
	}

	n.log.OnStart(msg.Faulty, msg.SimulateCrashAt)
}

func (n *NodeActor) onStop() {
	n.reset()
	n.log.OnStop()
}

// onSelfCrash simulates the scheduled crash: the node goes silent as if
// it had died. The Crash message to the tracker is informational only.
func (n *NodeActor) onSelfCrash(ctx actor.Context) {
	n.reset()
	ctx.Request(n.tracker, &messages.Crash{})
	n.log.OnSelfCrash()
}

func (n *NodeActor) reset() {
	if n.cancelSelfCrash != nil {
		n.cancelSelfCrash()
		n.cancelSelfCrash = nil
	}
	if n.cancelGossip != nil {
		n.cancelGossip()
		n.cancelGossip = nil
	}
	if n.cancelMulticast != nil {
		n.cancelMulticast()
		n.cancelMulticast = nil
	}
	if n.nodes != nil {
		n.nodes.Clear()
	}
	n.ready = false
}

func (n *NodeActor) sendGossip(ctx actor.Context) {
	n.nodes.Self().Heartbeat()

	target, ok := n.selector.Pick(n.nodes.CorrectPeers())
	if !ok {
		n.log.OnGossipSkipped()
	} else {
		ctx.Request(target.Pid(), &messages.Gossip{Beats: n.nodes.CurrentBeats()})
		target.ResetQuiescence()
		telemetry.GossipsSent.WithLabelValues(n.id).Inc()
		n.log.OnGossip(target.Id(), n.nodes.BeatsToString())
	}

	n.cancelGossip = n.timers.SendOnce(n.gossipDelta, ctx.Self(), &messages.GossipReminder{})
}

func (n *NodeActor) onGossip(ctx actor.Context, msg *messages.Gossip) {
	n.checkReappeared(ctx)
	n.merge(ctx, msg.Beats)
	if n.pushPull && ctx.Sender() != nil {
		ctx.Request(ctx.Sender(), &messages.GossipReply{Beats: n.nodes.CurrentBeats()})
	}
}

func (n *NodeActor) onGossipReply(ctx actor.Context, msg *messages.GossipReply) {
	n.checkReappeared(ctx)
	n.merge(ctx, msg.Beats)
}

// merge applies an incoming view and reschedules the failure timer of
// every peer whose counter advanced.
func (n *NodeActor) merge(ctx actor.Context, beats map[string]uint64) {
	for _, info := range n.nodes.Merge(beats) {
		n.rescheduleFail(ctx, info)
	}
}

func (n *NodeActor) rescheduleFail(ctx actor.Context, info *NodeInfo) {
	peer := info.Id()
	token := info.NextToken()
	info.ResetTimeout(token, n.timers.SendOnce(n.failureDelta, ctx.Self(), &messages.Fail{Peer: peer, Token: token}))
}

// checkReappeared reports peers that keep talking after having been
// reported as failed. The local state is left untouched: the entry stays
// failed until its cleanup timer erases it.
func (n *NodeActor) checkReappeared(ctx actor.Context) {
	sender := ctx.Sender()
	if sender == nil {
		return
	}
	info := n.nodes.Get(utils.IdFromPid(sender))
	if info == nil || info.Status() != StatusFailed {
		return
	}
	ctx.Request(n.tracker, &messages.ReappearReport{Node: info.Pid()})
	n.log.OnPeerReappeared(info.Id())
}

func (n *NodeActor) onFail(ctx actor.Context, msg *messages.Fail) {
	info := n.nodes.Get(msg.Peer)
	if info == nil || info.Token() != msg.Token {
		n.dropStaleTimer(msg.ToString())
		return
	}

	// with catastrophe recovery enabled the peer gets a grace period in
	// the missing state before being declared failed
	if n.enableMulticast {
		info.SetStatus(StatusMissing)
		peer := info.Id()
		token := info.NextToken()
		info.ResetTimeout(token, n.timers.SendOnce(n.missDelta, ctx.Self(), &messages.Miss{Peer: peer, Token: token}))
		n.log.OnPeerMissing(peer)
		return
	}

	n.failPeer(ctx, info)
}

func (n *NodeActor) onMiss(ctx actor.Context, msg *messages.Miss) {
	info := n.nodes.Get(msg.Peer)
	if info == nil || info.Token() != msg.Token {
		n.dropStaleTimer(msg.ToString())
		return
	}
	n.failPeer(ctx, info)
}

func (n *NodeActor) failPeer(ctx actor.Context, info *NodeInfo) {
	info.SetStatus(StatusFailed)
	ctx.Request(n.tracker, &messages.CrashReport{Node: info.Pid()})
	telemetry.CrashReportsSent.WithLabelValues(n.id).Inc()

	peer := info.Id()
	token := info.NextToken()
	info.ResetTimeout(token, n.timers.SendOnce(n.cleanupDelta, ctx.Self(), &messages.Cleanup{Peer: peer, Token: token}))
	n.log.OnPeerFailed(peer)
}

func (n *NodeActor) onCleanup(msg *messages.Cleanup) {
	info := n.nodes.Get(msg.Peer)
	if info == nil || info.Token() != msg.Token {
		n.dropStaleTimer(msg.ToString())
		return
	}
	n.nodes.Remove(msg.Peer)
	n.log.OnPeerCleanup(msg.Peer)
}

func (n *NodeActor) dropStaleTimer(timer string) {
	telemetry.StaleTimers.WithLabelValues(n.id).Inc()
	n.log.OnStaleTimer(timer)
}

// sendMulticast evaluates the multicast probability (wait/maxWait)^a and
// either multicasts the view to every node still believed alive or
// postpones once more. Once the multicast fires the reminder is not
// re-armed: the parameters are tuned for the time of the first multicast.
func (n *NodeActor) sendMulticast(ctx actor.Context) {
	prob := math.Pow(float64(n.multicastWait)/float64(n.multicastMaxWait), n.multicastParam)

	if n.rnd.Float64() < prob {
		n.nodes.Self().Heartbeat()
		beats := n.nodes.CurrentBeats()
		targets := n.nodes.ActivePeers()
		for _, info := range targets {
			ctx.Request(info.Pid(), &messages.CatastropheMulticast{Beats: beats})
		}
		n.multicastWait = 0
		n.nodes.ResetAllQuiescence()
		telemetry.MulticastsSent.WithLabelValues(n.id).Inc()
		n.log.OnMulticast(len(targets))
		return
	}

	if n.multicastWait < n.multicastMaxWait {
		n.multicastWait++
	}
	n.cancelMulticast = n.timers.SendOnce(MulticastPeriod, ctx.Self(), &messages.MulticastReminder{})
}

func (n *NodeActor) onMulticast(ctx actor.Context, msg *messages.CatastropheMulticast) {
	n.checkReappeared(ctx)
	n.merge(ctx, msg.Beats)
	n.multicastWait = 0
	// the reply carries the receiver's view back regardless of push-pull
	if ctx.Sender() != nil {
		ctx.Request(ctx.Sender(), &messages.CatastropheReply{Beats: n.nodes.CurrentBeats()})
	}
}

func (n *NodeActor) onCatastropheReply(ctx actor.Context, msg *messages.CatastropheReply) {
	n.checkReappeared(ctx)
	n.merge(ctx, msg.Beats)
}
