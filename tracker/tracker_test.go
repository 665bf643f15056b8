package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gossip-failure-detection/config"
	"gossip-failure-detection/detector"
	"gossip-failure-detection/messages"
	"gossip-failure-detection/utils"
)

type probeEvent struct {
	message any
	sender  string
}

func startProbe(t *testing.T, system *actor.ActorSystem, name string) (*actor.PID, chan probeEvent) {
	t.Helper()
	events := make(chan probeEvent, 4096)
	pid, err := system.Root.SpawnNamed(actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case *actor.Started, *actor.Stopping, *actor.Stopped, *actor.Restarting:
		default:
			events <- probeEvent{message: ctx.Message(), sender: utils.IdFromPid(ctx.Sender())}
		}
	}), name)
	require.NoError(t, err)
	return pid, events
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func miniConfig(t *testing.T) *config.TrackerConfig {
	cfg := &config.TrackerConfig{
		Nodes:                  2,
		Duration:               100 * time.Millisecond,
		Experiments:            1,
		Repetitions:            1,
		InitialSeed:            7,
		GossipDelta:            20 * time.Millisecond,
		MinFailureRounds:       2,
		MaxFailureRounds:       2,
		MissDeltaRounds:        2,
		TimeBetweenExperiments: 10 * time.Millisecond,
		ReportPath:             t.TempDir(),
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func spawnTracker(t *testing.T, system *actor.ActorSystem, cfg *config.TrackerConfig, done chan struct{}) *actor.PID {
	t.Helper()
	pid, err := system.Root.SpawnNamed(
		actor.PropsFromProducer(func() actor.Actor {
			return NewTrackerActor(cfg, testLogger(), done)
		}),
		"tracker",
	)
	require.NoError(t, err)
	return pid
}

func waitFor(events <-chan probeEvent, timeout time.Duration, match func(probeEvent) bool) (probeEvent, bool) {
	deadline := time.After(timeout)
	for {
		select {
		case e := <-events:
			if match(e) {
				return e, true
			}
		case <-deadline:
			return probeEvent{}, false
		}
	}
}

func isStartExperiment(e probeEvent) bool {
	_, ok := e.message.(*messages.StartExperiment)
	return ok
}

func TestExperimentsStartOnceAllNodesRegistered(t *testing.T) {
	system := actor.NewActorSystem()
	cfg := miniConfig(t)
	tracker := spawnTracker(t, system, cfg, make(chan struct{}))

	first, firstEvents := startProbe(t, system, "fake-node-0")
	second, secondEvents := startProbe(t, system, "fake-node-1")

	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, first)

	// one node is not enough
	_, started := waitFor(firstEvents, 300*time.Millisecond, isStartExperiment)
	require.False(t, started)

	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, second)

	e, started := waitFor(firstEvents, 2*time.Second, isStartExperiment)
	require.True(t, started)
	_, started = waitFor(secondEvents, 2*time.Second, isStartExperiment)
	require.True(t, started)

	bundle := e.message.(*messages.StartExperiment)
	assert.Len(t, bundle.Nodes, 2)
	assert.Equal(t, cfg.GossipDelta, bundle.GossipDelta)
	assert.Equal(t, 2*cfg.GossipDelta, bundle.FailureDelta)
	assert.Equal(t, 2*cfg.GossipDelta, bundle.MissDelta)
}

func TestRegistrationOverflowIsIgnored(t *testing.T) {
	system := actor.NewActorSystem()
	cfg := miniConfig(t)
	tracker := spawnTracker(t, system, cfg, make(chan struct{}))

	first, firstEvents := startProbe(t, system, "fake-node-0")
	second, _ := startProbe(t, system, "fake-node-1")
	late, lateEvents := startProbe(t, system, "fake-node-2")

	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, first)
	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, second)

	_, started := waitFor(firstEvents, 2*time.Second, isStartExperiment)
	require.True(t, started)

	// the late node never becomes part of the experiments
	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, late)
	_, started = waitFor(lateEvents, 500*time.Millisecond, isStartExperiment)
	assert.False(t, started)
}

func TestCrashReportOutsideExperimentIsTolerated(t *testing.T) {
	system := actor.NewActorSystem()
	cfg := miniConfig(t)
	tracker := spawnTracker(t, system, cfg, make(chan struct{}))

	reporter, reporterEvents := startProbe(t, system, "fake-node-0")
	peer, _ := startProbe(t, system, "fake-node-1")

	// no experiment is active: the report is logged and dropped
	system.Root.RequestWithCustomSender(tracker, &messages.CrashReport{Node: peer}, reporter)

	// the tracker still works afterwards
	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, reporter)
	system.Root.RequestWithCustomSender(tracker, &messages.Registration{}, peer)
	_, started := waitFor(reporterEvents, 2*time.Second, isStartExperiment)
	assert.True(t, started)
}

// Full harness run: tracker plus real detector nodes, every generated
// experiment produces a parseable JSON report and the tracker shuts the
// run down afterwards.
func TestEndToEndRunWritesAllReports(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end run in short mode")
	}

	system := actor.NewActorSystem()
	cfg := &config.TrackerConfig{
		Nodes:                  3,
		Duration:               250 * time.Millisecond,
		Experiments:            1,
		Repetitions:            1,
		InitialSeed:            7,
		GossipDelta:            50 * time.Millisecond,
		MinFailureRounds:       2,
		MaxFailureRounds:       2,
		MissDeltaRounds:        2,
		TimeBetweenExperiments: 20 * time.Millisecond,
		ReportPath:             t.TempDir(),
	}
	require.NoError(t, cfg.Validate())

	done := make(chan struct{})
	tracker := spawnTracker(t, system, cfg, done)

	for i := 0; i < cfg.Nodes; i++ {
		_, err := system.Root.SpawnNamed(
			actor.PropsFromProducer(func() actor.Actor {
				return detector.NewNodeActor(tracker, testLogger())
			}),
			fmt.Sprintf("node-%d", i),
		)
		require.NoError(t, err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Minute):
		t.Fatal("tracker did not finish the experiments in time")
	}

	// catastrophe * pushPull * picks * (1 + 4 multicast combinations)
	expected := 2 * 2 * 3 * 5
	entries, err := os.ReadDir(cfg.ReportPath)
	require.NoError(t, err)
	require.Len(t, entries, expected)

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(cfg.ReportPath, entry.Name()))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded), "report %s", entry.Name())

		settings := decoded["settings"].(map[string]any)
		assert.Equal(t, float64(cfg.Nodes), settings["number_of_nodes"])

		result := decoded["result"].(map[string]any)
		expectedCrashes := result["expected_crashes"].([]any)
		if settings["simulate_catastrophe"] == true {
			assert.Len(t, expectedCrashes, 2, "report %s", entry.Name())
		} else {
			assert.Len(t, expectedCrashes, 1, "report %s", entry.Name())
		}
		assert.GreaterOrEqual(t, result["end_time"], result["start_time"])
	}
}
