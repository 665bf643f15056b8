package experiment

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/slices"

	"gossip-failure-detection/config"
	"gossip-failure-detection/messages"
)

// Generate enumerates the whole experiment matrix for the given node set:
// the Cartesian product of seed, repetition, catastrophe flag, failure
// rounds (from max down to min in steps of two), push-pull flag, pick
// strategy and multicast parameters. The per-experiment crash set is
// fixed here, deterministically from the seed; it is the only randomness
// the test suite must be able to reproduce.
func Generate(cfg *config.TrackerConfig, nodeIds []string) []*Experiment {
	missDelta := cfg.GossipDelta * time.Duration(cfg.MissDeltaRounds)

	var experiments []*Experiment
	for seed := cfg.InitialSeed; seed < cfg.InitialSeed+cfg.Experiments; seed++ {
		for repetition := 0; repetition < cfg.Repetitions; repetition++ {
			for _, catastrophe := range []bool{false, true} {
				for round := cfg.MaxFailureRounds; round >= cfg.MinFailureRounds; round -= 2 {
					for _, pushPull := range []bool{false, true} {
						for _, pick := range []messages.PickStrategy{
							messages.PickUniform, messages.PickLinear, messages.PickQuadratic,
						} {
							base := Experiment{
								Seed:                seed,
								Repetition:          repetition,
								NumberOfNodes:       len(nodeIds),
								SimulateCatastrophe: catastrophe,
								Duration:            cfg.Duration,
								GossipDelta:         cfg.GossipDelta,
								FailureDelta:        cfg.GossipDelta * time.Duration(round),
								MissDelta:           missDelta,
								PushPull:            pushPull,
								Pick:                pick,
							}

							// only with multicast enabled its parameters vary
							for _, enableMulticast := range []bool{false, true} {
								if enableMulticast {
									for _, a := range []float64{1, 2} {
										for _, maxWait := range []int{1, 2} {
											e := base
											e.EnableMulticast = true
											e.MulticastParam = a
											e.MulticastMaxWait = maxWait
											experiments = append(experiments, &e)
										}
									}
								} else {
									e := base
									experiments = append(experiments, &e)
								}
							}
						}
					}
				}
			}
		}
	}

	for i, e := range experiments {
		e.ID = fmt.Sprintf("%06d", i)
		e.ExpectedCrashes = generateCrashes(nodeIds, e.Seed, e.SimulateCatastrophe, e.Duration)
	}
	return experiments
}

// generateCrashes fixes which nodes crash and when. The PRNG is seeded
// and its calls happen in a fixed order (shuffle, then the crash time);
// reproducibility depends on that order. All chosen nodes crash at the
// same instant, which is what makes a catastrophe catastrophic.
func generateCrashes(nodeIds []string, seed int, catastrophe bool, duration time.Duration) []ExpectedCrash {
	random := rand.New(rand.NewSource(int64(seed)))

	permutation := make([]string, len(nodeIds))
	copy(permutation, nodeIds)
	slices.Sort(permutation)
	random.Shuffle(len(permutation), func(i, j int) {
		permutation[i], permutation[j] = permutation[j], permutation[i]
	})

	crashes := 1
	if catastrophe {
		crashes = int(math.Ceil(2 * float64(len(nodeIds)) / 3))
	}

	half := int(duration.Milliseconds()) / 2
	if half < 1 {
		half = 1
	}
	crashTime := time.Duration(random.Intn(half)) * time.Millisecond

	expected := make([]ExpectedCrash, 0, crashes)
	for _, node := range permutation[:crashes] {
		expected = append(expected, ExpectedCrash{Delta: crashTime, Node: node})
	}
	return expected
}
