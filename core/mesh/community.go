package mesh

import (
	"log/slog"
	"sort"

	"github.com/siherrmann/mesher/model"
)

// detectCommunities partitions the mesh with Louvain modularity
// optimization weighted by edge weight. Communities smaller than minSize
// are dropped: their members stay in the graph but keep Community = -1.
func (m *Mesh) detectCommunities(minSize int) {
	assignment := louvain(m.adjacency)

	// Group members per community, keyed by deterministic new ids
	members := make(map[int][]string)
	for id, community := range assignment {
		members[community] = append(members[community], id)
	}

	communityIDs := make([]int, 0, len(members))
	for id := range members {
		communityIDs = append(communityIDs, id)
	}
	sort.Ints(communityIDs)

	m.communities = nil
	for _, node := range m.nodes {
		node.Community = -1
	}

	next := 0
	for _, communityID := range communityIDs {
		ids := members[communityID]
		if len(ids) < minSize {
			continue // Members stay communityless
		}

		sort.Strings(ids)
		for _, id := range ids {
			m.nodes[id].Community = next
		}
		m.communities = append(m.communities, &model.Community{
			ID:      next,
			Members: ids,
			Size:    len(ids),
		})
		next++
	}

	m.log.Info("Detected communities",
		slog.Int("communities", len(m.communities)),
		slog.Int("min_size", minSize))
}

// louvain runs Louvain modularity optimization on a weighted undirected
// adjacency. Returns a community id per node id.
func louvain(adjacency map[string]map[string]float64) map[string]int {
	// Work on an integer-indexed copy of the graph
	ids := make([]string, 0, len(adjacency))
	for id := range adjacency {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	indexOf := make(map[string]int, len(ids))
	for i, id := range ids {
		indexOf[id] = i
	}

	n := len(ids)
	weights := make([]map[int]float64, n)
	for i, id := range ids {
		weights[i] = make(map[int]float64)
		for neighbor, weight := range adjacency[id] {
			weights[i][indexOf[neighbor]] = weight
		}
	}

	// membership maps original node index to its community through all levels
	membership := make([]int, n)
	for i := range membership {
		membership[i] = i
	}

	for {
		assignment, improved := louvainLevel(weights)
		if !improved {
			break
		}

		// Renumber this level's communities densely so the labels are
		// valid node indexes into the aggregated graph of the next level
		renumber := make(map[int]int)
		for _, community := range assignment {
			if _, ok := renumber[community]; !ok {
				renumber[community] = len(renumber)
			}
		}
		for i, community := range assignment {
			assignment[i] = renumber[community]
		}

		// Apply this level's assignment to the original nodes
		for i := range membership {
			membership[i] = assignment[membership[i]]
		}

		// Aggregate communities into super-nodes for the next level
		weights = aggregate(weights, assignment, len(renumber))
		if len(weights) == len(assignment) {
			break
		}
	}

	// Renumber communities densely
	renumber := make(map[int]int)
	result := make(map[string]int, n)
	for i, id := range ids {
		community := membership[i]
		if _, ok := renumber[community]; !ok {
			renumber[community] = len(renumber)
		}
		result[id] = renumber[community]
	}

	return result
}

// louvainLevel performs one level of local moving. Returns the community
// assignment per node and whether any node moved.
func louvainLevel(weights []map[int]float64) ([]int, bool) {
	n := len(weights)
	assignment := make([]int, n)
	strength := make([]float64, n)
	communityTotal := make([]float64, n)

	var totalWeight float64
	for i := range weights {
		assignment[i] = i
		for _, weight := range weights[i] {
			strength[i] += weight
		}
		communityTotal[i] = strength[i]
		totalWeight += strength[i]
	}
	totalWeight /= 2
	if totalWeight == 0 {
		return assignment, false
	}

	improved := false
	for pass := 0; pass < 100; pass++ {
		moved := false

		for i := 0; i < n; i++ {
			current := assignment[i]

			// Weights from i into each neighboring community
			communityLinks := make(map[int]float64)
			for j, weight := range weights[i] {
				if j != i {
					communityLinks[assignment[j]] += weight
				}
			}

			// Remove i from its community
			communityTotal[current] -= strength[i]

			best := current
			bestGain := communityLinks[current] - strength[i]*communityTotal[current]/(2*totalWeight)
			for community, links := range communityLinks {
				gain := links - strength[i]*communityTotal[community]/(2*totalWeight)
				if gain > bestGain {
					bestGain = gain
					best = community
				}
			}

			communityTotal[best] += strength[i]
			if best != current {
				assignment[i] = best
				moved = true
				improved = true
			}
		}

		if !moved {
			break
		}
	}

	return assignment, improved
}

// aggregate collapses communities into super-nodes, summing edge weights.
// The assignment must be densely numbered 0..communityCount-1. Weight
// inside a community accumulates as a self-loop on its super-node, so
// upper levels keep the full modularity contribution of the collapsed
// edges.
func aggregate(weights []map[int]float64, assignment []int, communityCount int) []map[int]float64 {
	aggregated := make([]map[int]float64, communityCount)
	for i := range aggregated {
		aggregated[i] = make(map[int]float64)
	}

	for i, neighbors := range weights {
		a := assignment[i]
		for j, weight := range neighbors {
			aggregated[a][assignment[j]] += weight
		}
	}

	return aggregated
}
