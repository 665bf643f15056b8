package detector

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"gossip-failure-detection/messages"
)

// Selector draws a gossip target among the correct peers under one of
// the configured probability distributions. Node-local randomness; no
// determinism across processes is required.
type Selector struct {
	strategy messages.PickStrategy
	src      rand.Source
}

func NewSelector(strategy messages.PickStrategy, seed uint64) *Selector {
	s := new(Selector)
	s.strategy = strategy
	s.src = rand.NewSource(seed)
	return s
}

func (s *Selector) Strategy() messages.PickStrategy {
	return s.strategy
}

// Pick draws one peer, or reports false when there is none to draw from.
// Weights: 1 for uniform, quiescence+1 for linear, quiescence^2+1 for
// quadratic; the +1 keeps every peer reachable.
func (s *Selector) Pick(peers []*NodeInfo) (*NodeInfo, bool) {
	if len(peers) == 0 {
		return nil, false
	}

	weights := make([]float64, len(peers))
	for i, peer := range peers {
		q := float64(peer.Quiescence())
		switch s.strategy {
		case messages.PickLinear:
			weights[i] = q + 1
		case messages.PickQuadratic:
			weights[i] = q*q + 1
		default:
			weights[i] = 1
		}
	}

	idx, ok := sampleuv.NewWeighted(weights, s.src).Take()
	if !ok {
		return nil, false
	}
	return peers[idx], true
}
