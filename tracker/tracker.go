// Package tracker implements the central coordinator: it waits for the
// nodes to register, generates the experiment matrix, drives the
// experiments one at a time and writes one JSON report per experiment.
package tracker

import (
	"log"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"gossip-failure-detection/config"
	"gossip-failure-detection/eventlogger"
	"gossip-failure-detection/experiment"
	"gossip-failure-detection/messages"
	"gossip-failure-detection/telemetry"
	"gossip-failure-detection/utils"
)

// TrackerActor tracks the nodes, bootstraps the experiments, collects
// the crash reports and generates the reports. Experiments run strictly
// sequentially; at most one is active at any time.
type TrackerActor struct {
	cfg    *config.TrackerConfig
	logger *log.Logger
	done   chan<- struct{}

	log    *eventlogger.EventLogger
	timers *scheduler.TimerScheduler

	registered map[string]*actor.PID
	pids       []*actor.PID

	experiments []*experiment.Experiment
	current     *experiment.Experiment
}

// NewTrackerActor creates the tracker. The done channel is closed once
// the last experiment finished and Shutdown was broadcast, so the caller
// can terminate the process.
func NewTrackerActor(cfg *config.TrackerConfig, logger *log.Logger, done chan<- struct{}) *TrackerActor {
	t := new(TrackerActor)
	t.cfg = cfg
	t.logger = logger
	t.done = done
	t.registered = make(map[string]*actor.PID)
	return t
}

func (t *TrackerActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		t.log = eventlogger.InitEventLogger("Tracker ["+utils.IdFromPid(ctx.Self())+"]", t.logger)
		t.timers = scheduler.NewTimerScheduler(ctx)
		t.log.Printf("tracker started, expect %d nodes to start the experiments", t.cfg.Nodes)
	case *actor.Stopping, *actor.Stopped, *actor.Restarting:
	case *messages.Registration:
		t.onNodeRegistration(ctx)
	case *messages.ScheduleExperimentStart:
		t.onExperimentStart(ctx, msg.Index)
	case *messages.ScheduleExperimentStop:
		t.onExperimentEnd(ctx, msg.Index)
	case *messages.Crash:
		t.log.OnNodeCrash(utils.IdFromPid(ctx.Sender()))
	case *messages.CrashReport:
		t.onReportCrash(ctx, msg)
	case *messages.ReappearReport:
		t.onReappear(ctx, msg)
	default:
		t.log.OnUnknownMessage(msg)
	}
}

// onNodeRegistration accepts registrations until the expected number of
// nodes is reached, then generates the experiments and starts the first
// one. Further registrations are refused.
func (t *TrackerActor) onNodeRegistration(ctx actor.Context) {
	sender := ctx.Sender()
	if sender == nil {
		t.log.OnUnknownMessage(ctx.Message())
		return
	}
	id := utils.IdFromPid(sender)

	if len(t.registered) >= t.cfg.Nodes {
		t.log.OnRegistrationOverflow(id)
		return
	}

	t.log.OnRegistration(id)
	t.registered[id] = sender

	if len(t.registered) == t.cfg.Nodes {
		t.log.OnReady(len(t.registered))
		t.onReady(ctx)
	}
}

func (t *TrackerActor) onReady(ctx actor.Context) {
	ids := maps.Keys(t.registered)
	slices.Sort(ids)

	t.pids = make([]*actor.PID, 0, len(ids))
	for _, id := range ids {
		t.pids = append(t.pids, t.registered[id])
	}

	t.experiments = experiment.Generate(t.cfg, ids)
	t.log.OnExperimentsGenerated(len(t.experiments))

	t.onExperimentStart(ctx, 0)
}

func (t *TrackerActor) onExperimentStart(ctx actor.Context, index int) {
	t.current = t.experiments[index]

	crashesByNode := make(map[string]experiment.ExpectedCrash, len(t.current.ExpectedCrashes))
	for _, crash := range t.current.ExpectedCrashes {
		crashesByNode[crash.Node] = crash
	}

	t.log.OnExperimentStart(index, len(t.experiments), t.current.String())
	t.current.Start()

	for _, pid := range t.pids {
		bundle := &messages.StartExperiment{
			Nodes:            t.pids,
			GossipDelta:      t.current.GossipDelta,
			FailureDelta:     t.current.FailureDelta,
			MissDelta:        t.current.MissDelta,
			PushPull:         t.current.PushPull,
			Pick:             t.current.Pick,
			EnableMulticast:  t.current.EnableMulticast,
			MulticastParam:   t.current.MulticastParam,
			MulticastMaxWait: t.current.MulticastMaxWait,
		}
		if crash, ok := crashesByNode[utils.IdFromPid(pid)]; ok {
			bundle.Faulty = true
			bundle.SimulateCrashAt = crash.Delta
		}
		ctx.Request(pid, bundle)
	}

	t.timers.SendOnce(t.current.Duration, ctx.Self(), &messages.ScheduleExperimentStop{Index: index})
}

func (t *TrackerActor) onExperimentEnd(ctx actor.Context, index int) {
	t.log.OnExperimentEnd(index, len(t.experiments))

	for _, pid := range t.pids {
		ctx.Request(pid, &messages.StopExperiment{})
	}

	finished := t.experiments[index]
	finished.Stop()
	t.current = nil

	// a report that cannot be written is fatal for this experiment only
	if path, err := finished.GenerateReport(t.cfg.ReportPath); err != nil {
		t.log.OnReportError(finished.ID, err)
	} else {
		t.log.OnReportWritten(finished.ID, path)
	}
	telemetry.ExperimentsCompleted.Inc()

	if index+1 == len(t.experiments) {
		t.log.OnShutdown()
		for _, pid := range t.pids {
			ctx.Request(pid, &messages.Shutdown{})
		}
		if t.done != nil {
			close(t.done)
		}
		ctx.Stop(ctx.Self())
		return
	}

	t.timers.SendOnce(t.cfg.TimeBetweenExperiments, ctx.Self(), &messages.ScheduleExperimentStart{Index: index + 1})
}

func (t *TrackerActor) onReportCrash(ctx actor.Context, msg *messages.CrashReport) {
	node := utils.IdFromPid(msg.Node)
	reporter := utils.IdFromPid(ctx.Sender())

	if t.current == nil || !t.current.Active() {
		t.log.OnReportOutsideExperiment(node, reporter)
		return
	}

	t.log.OnCrashReported(node, reporter)
	t.current.AddCrash(node, reporter)
	telemetry.CrashReportsReceived.Inc()
}

func (t *TrackerActor) onReappear(ctx actor.Context, msg *messages.ReappearReport) {
	node := utils.IdFromPid(msg.Node)
	reporter := utils.IdFromPid(ctx.Sender())

	if t.current == nil || !t.current.Active() {
		t.log.OnReportOutsideExperiment(node, reporter)
		return
	}

	t.log.OnPeerReappeared(node)
	t.current.AddReappearance(node, reporter)
}
