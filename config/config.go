// Package config loads and validates the tracker configuration from the
// environment. All durations are given in milliseconds by the launcher.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// TrackerConfig bundles every tuning parameter the tracker needs to
// generate and drive the experiments.
type TrackerConfig struct {
	// Nodes is the number of nodes expected to register.
	Nodes int

	// Duration of a single experiment.
	Duration time.Duration

	// Experiments is the number of distinct seeds to enumerate.
	Experiments int

	// Repetitions of each parameter combination.
	Repetitions int

	// InitialSeed for the first experiment; subsequent seeds increase by one.
	InitialSeed int

	// GossipDelta is the gossip period.
	GossipDelta time.Duration

	// MinFailureRounds and MaxFailureRounds bound the failure delta as
	// multiples of the gossip delta.
	MinFailureRounds int
	MaxFailureRounds int

	// MissDeltaRounds fixes the miss delta as a multiple of the gossip delta.
	MissDeltaRounds int

	// TimeBetweenExperiments is the pause between two experiments, so that
	// every node has time to reset its state.
	TimeBetweenExperiments time.Duration

	// ReportPath is the directory where the JSON reports are written.
	ReportPath string
}

func intFromEnv(key string) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, fmt.Errorf("missing required environment variable %s", key)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s is not an integer: %q", key, raw)
	}
	return value, nil
}

func millisFromEnv(key string) (time.Duration, error) {
	value, err := intFromEnv(key)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * time.Millisecond, nil
}

// FromEnv reads the tracker configuration from the environment and
// validates it. Any missing or invalid variable is a fatal startup error
// for the caller.
func FromEnv() (*TrackerConfig, error) {
	c := new(TrackerConfig)

	var err error
	if c.Nodes, err = intFromEnv("NODES"); err != nil {
		return nil, err
	}
	if c.Duration, err = millisFromEnv("DURATION"); err != nil {
		return nil, err
	}
	if c.Experiments, err = intFromEnv("EXPERIMENTS"); err != nil {
		return nil, err
	}
	if c.Repetitions, err = intFromEnv("REPETITIONS"); err != nil {
		return nil, err
	}
	if c.InitialSeed, err = intFromEnv("INITIAL_SEED"); err != nil {
		return nil, err
	}
	if c.GossipDelta, err = millisFromEnv("GOSSIP_DELTA"); err != nil {
		return nil, err
	}
	if c.MinFailureRounds, err = intFromEnv("MIN_FAILURE_ROUNDS"); err != nil {
		return nil, err
	}
	if c.MaxFailureRounds, err = intFromEnv("MAX_FAILURE_ROUNDS"); err != nil {
		return nil, err
	}
	if c.MissDeltaRounds, err = intFromEnv("MISS_DELTA_ROUNDS"); err != nil {
		return nil, err
	}
	if c.TimeBetweenExperiments, err = millisFromEnv("TIME_BETWEEN_EXPERIMENTS"); err != nil {
		return nil, err
	}
	reportPath, ok := os.LookupEnv("REPORT_PATH")
	if !ok {
		return nil, fmt.Errorf("missing required environment variable REPORT_PATH")
	}
	c.ReportPath = reportPath

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the internal consistency of the configuration.
func (c *TrackerConfig) Validate() error {
	if c.Nodes < 2 {
		return fmt.Errorf("NODES must be at least 2, got %d", c.Nodes)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("DURATION must be positive, got %v", c.Duration)
	}
	if c.Experiments < 1 {
		return fmt.Errorf("EXPERIMENTS must be at least 1, got %d", c.Experiments)
	}
	if c.Repetitions < 1 {
		return fmt.Errorf("REPETITIONS must be at least 1, got %d", c.Repetitions)
	}
	if c.GossipDelta <= 0 {
		return fmt.Errorf("GOSSIP_DELTA must be positive, got %v", c.GossipDelta)
	}
	if c.MinFailureRounds < 1 {
		return fmt.Errorf("MIN_FAILURE_ROUNDS must be at least 1, got %d", c.MinFailureRounds)
	}
	if c.MaxFailureRounds < c.MinFailureRounds {
		return fmt.Errorf("MAX_FAILURE_ROUNDS (%d) must not be smaller than MIN_FAILURE_ROUNDS (%d)",
			c.MaxFailureRounds, c.MinFailureRounds)
	}
	if c.MissDeltaRounds < 1 {
		return fmt.Errorf("MISS_DELTA_ROUNDS must be at least 1, got %d", c.MissDeltaRounds)
	}
	if c.TimeBetweenExperiments < 0 {
		return fmt.Errorf("TIME_BETWEEN_EXPERIMENTS must not be negative, got %v", c.TimeBetweenExperiments)
	}
	if c.ReportPath == "" {
		return fmt.Errorf("REPORT_PATH must not be empty")
	}
	return nil
}
