// Package experiment models a single parameterized run of the failure
// detection protocol: its settings, its expected and reported crashes and
// the JSON report.
package experiment

import (
	"fmt"
	"time"

	"gossip-failure-detection/messages"
	"gossip-failure-detection/utils"
)

// ExpectedCrash is a crash the generator scheduled: the node crashes
// Delta after the experiment starts.
type ExpectedCrash struct {
	Delta time.Duration
	Node  string
}

// ReportedCrash is a detection (or a reappearance) collected by the
// tracker: Reporter claimed Node crashed Delta after the start.
type ReportedCrash struct {
	Delta    time.Duration
	Node     string
	Reporter string
}

// Experiment holds the immutable settings of one run plus the results
// collected while it is active. Start, AddCrash and Stop must be called
// in that partial order, each at most once for Start and Stop; misuse is
// a programming error and panics.
type Experiment struct {
	ID         string
	Seed       int
	Repetition int

	NumberOfNodes       int
	SimulateCatastrophe bool
	Duration            time.Duration

	GossipDelta  time.Duration
	FailureDelta time.Duration
	MissDelta    time.Duration

	PushPull bool
	Pick     messages.PickStrategy

	EnableMulticast  bool
	MulticastParam   float64
	MulticastMaxWait int

	ExpectedCrashes []ExpectedCrash

	reportedCrashes []ReportedCrash
	reappeared      []ReportedCrash

	// epoch milliseconds; zero means not yet started or stopped
	start int64
	stop  int64
}

// Start marks the beginning of the experiment.
func (e *Experiment) Start() {
	if e.start != 0 {
		panic("experiment: Start called twice")
	}
	e.start = utils.NowMillis()
}

// Stop marks the end of the experiment.
func (e *Experiment) Stop() {
	if e.start == 0 {
		panic("experiment: Stop called before Start")
	}
	if e.stop != 0 {
		panic("experiment: Stop called twice")
	}
	e.stop = utils.NowMillis()
}

// Active reports whether the experiment is between Start and Stop.
func (e *Experiment) Active() bool {
	return e.start != 0 && e.stop == 0
}

// AddCrash records a crash report received while the experiment runs.
// Duplicate and stale reports are recorded as-is; the analysis pipeline
// classifies them.
func (e *Experiment) AddCrash(node string, reporter string) {
	if e.start == 0 {
		panic("experiment: AddCrash called before Start")
	}
	if e.stop != 0 {
		panic("experiment: AddCrash called after Stop")
	}
	delta := time.Duration(utils.NowMillis()-e.start) * time.Millisecond
	e.reportedCrashes = append(e.reportedCrashes, ReportedCrash{Delta: delta, Node: node, Reporter: reporter})
}

// AddReappearance records a node that was reported failed and then
// showed up again.
func (e *Experiment) AddReappearance(node string, reporter string) {
	if e.start == 0 {
		panic("experiment: AddReappearance called before Start")
	}
	delta := time.Duration(utils.NowMillis()-e.start) * time.Millisecond
	e.reappeared = append(e.reappeared, ReportedCrash{Delta: delta, Node: node, Reporter: reporter})
}

// ReportedCrashes returns a copy of the crash reports collected so far.
func (e *Experiment) ReportedCrashes() []ReportedCrash {
	out := make([]ReportedCrash, len(e.reportedCrashes))
	copy(out, e.reportedCrashes)
	return out
}

func (e *Experiment) String() string {
	return fmt.Sprintf(
		"Experiment{id=%s, seed=%d, repetition=%d, nodes=%d, catastrophe=%t, duration=%v, "+
			"gossipDelta=%v, failureDelta=%v, missDelta=%v, pushPull=%t, pick=%s, "+
			"multicast=%t, expectedCrashes=%d}",
		e.ID, e.Seed, e.Repetition, e.NumberOfNodes, e.SimulateCatastrophe, e.Duration,
		e.GossipDelta, e.FailureDelta, e.MissDelta, e.PushPull, e.Pick,
		e.EnableMulticast, len(e.ExpectedCrashes))
}
