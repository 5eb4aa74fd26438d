package mesh

import (
	"fmt"

	"github.com/siherrmann/mesher/helper"
)

const (
	pageRankDamping    = 0.85
	pageRankTolerance  = 1e-9
	pageRankIterations = 100
)

// pageRank computes weighted PageRank over the mesh. Rank flows along edges
// proportionally to edge weight. With a seed id the teleport mass
// concentrates on that node (personalized PageRank); with nil it spreads
// uniformly. Returns an error when the iteration does not converge.
func (m *Mesh) pageRank(seedID *string) (map[string]float64, error) {
	n := len(m.order)
	if n == 0 {
		return map[string]float64{}, nil
	}

	// Teleport distribution
	teleport := make(map[string]float64, n)
	if seedID != nil {
		teleport[*seedID] = 1
	} else {
		for _, id := range m.order {
			teleport[id] = 1 / float64(n)
		}
	}

	strength := make(map[string]float64, n)
	for _, id := range m.order {
		for _, weight := range m.adjacency[id] {
			strength[id] += weight
		}
	}

	ranks := make(map[string]float64, n)
	for _, id := range m.order {
		ranks[id] = 1 / float64(n)
	}

	for iteration := 0; iteration < pageRankIterations; iteration++ {
		next := make(map[string]float64, n)

		// Rank lost to dangling nodes is redistributed via the teleport
		// distribution
		var danglingMass float64
		for _, id := range m.order {
			if strength[id] == 0 {
				danglingMass += ranks[id]
			}
		}

		for _, id := range m.order {
			next[id] = (1 - pageRankDamping) * teleport[id]
			next[id] += pageRankDamping * danglingMass * teleport[id]
		}

		for _, id := range m.order {
			if strength[id] == 0 {
				continue
			}
			for neighborID, weight := range m.adjacency[id] {
				next[neighborID] += pageRankDamping * ranks[id] * weight / strength[id]
			}
		}

		var delta float64
		for _, id := range m.order {
			diff := next[id] - ranks[id]
			if diff < 0 {
				diff = -diff
			}
			delta += diff
		}

		ranks = next
		if delta < pageRankTolerance {
			return ranks, nil
		}
	}

	return nil, helper.NewError("pagerank", fmt.Errorf("no convergence after %d iterations", pageRankIterations))
}
