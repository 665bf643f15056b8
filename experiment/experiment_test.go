package experiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gossip-failure-detection/messages"
)

func sampleExperiment() *Experiment {
	return &Experiment{
		ID:            "000001",
		Seed:          17,
		Repetition:    0,
		NumberOfNodes: 3,
		Duration:      5 * time.Second,
		GossipDelta:   200 * time.Millisecond,
		FailureDelta:  1200 * time.Millisecond,
		MissDelta:     1200 * time.Millisecond,
		Pick:          messages.PickLinear,
		ExpectedCrashes: []ExpectedCrash{
			{Delta: time.Second, Node: "node-1"},
		},
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	e := sampleExperiment()

	assert.False(t, e.Active())
	e.Start()
	assert.True(t, e.Active())
	e.AddCrash("node-1", "node-0")
	e.AddCrash("node-1", "node-2")
	e.Stop()
	assert.False(t, e.Active())

	reports := e.ReportedCrashes()
	require.Len(t, reports, 2)
	assert.Equal(t, "node-1", reports[0].Node)
	assert.Equal(t, "node-0", reports[0].Reporter)
	assert.GreaterOrEqual(t, reports[0].Delta, time.Duration(0))
}

func TestStartTwicePanics(t *testing.T) {
	e := sampleExperiment()
	e.Start()

	assert.Panics(t, func() { e.Start() })
}

func TestStopBeforeStartPanics(t *testing.T) {
	e := sampleExperiment()

	assert.Panics(t, func() { e.Stop() })
}

func TestStopTwicePanics(t *testing.T) {
	e := sampleExperiment()
	e.Start()
	e.Stop()

	assert.Panics(t, func() { e.Stop() })
}

func TestAddCrashBeforeStartPanics(t *testing.T) {
	e := sampleExperiment()

	assert.Panics(t, func() { e.AddCrash("node-1", "node-0") })
}

func TestGenerateReportBeforeStopPanics(t *testing.T) {
	e := sampleExperiment()

	assert.Panics(t, func() { _, _ = e.GenerateReport(t.TempDir()) })

	e.Start()
	assert.Panics(t, func() { _, _ = e.GenerateReport(t.TempDir()) })
}

func TestExpectedFirstMulticastBounds(t *testing.T) {
	for _, maxWait := range []int{1, 2} {
		for _, a := range []float64{1, 2} {
			e := ExpectedFirstMulticast(7, maxWait, a)
			assert.GreaterOrEqual(t, e, 0.0)
			assert.LessOrEqual(t, e, float64(maxWait))
		}
	}
}

func TestExpectedFirstMulticastGrowsWithExponent(t *testing.T) {
	// a larger exponent postpones the first multicast
	small := ExpectedFirstMulticast(7, 2, 1)
	large := ExpectedFirstMulticast(7, 2, 4)

	assert.LessOrEqual(t, small, large)
}

func TestFindMulticastParamApproximatesTarget(t *testing.T) {
	const (
		n       = 10
		maxWait = 2
	)
	target := ExpectedFirstMulticast(n, maxWait, 3)

	a := FindMulticastParam(n, maxWait, target)

	assert.InDelta(t, 3, a, 0.5)
}
