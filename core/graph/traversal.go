package graph

import (
	"container/heap"
	"sort"
)

// Adjacency provides read access to an undirected weighted graph keyed by
// node id. Neighbor maps must not be mutated by callers.
type Adjacency interface {
	NodeIDs() []string
	Neighbors(id string) map[string]float64
}

// TraversalResult contains a node and its hop distance from the source
type TraversalResult struct {
	NodeID   string
	Distance int
	Path     []string // Path from source to this node
}

// BFS performs breadth-first search from a source node, visiting up to
// maxHops hops. A negative maxHops means unbounded.
func BFS(adjacency Adjacency, sourceID string, maxHops int) []*TraversalResult {
	visited := map[string]bool{sourceID: true}
	queue := []TraversalResult{{
		NodeID:   sourceID,
		Distance: 0,
		Path:     []string{sourceID},
	}}

	var results []*TraversalResult
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		results = append(results, &current)

		// Stop if we've reached max hops
		if maxHops >= 0 && current.Distance >= maxHops {
			continue
		}

		for neighborID := range adjacency.Neighbors(current.NodeID) {
			if visited[neighborID] {
				continue
			}
			visited[neighborID] = true

			// Create new path
			newPath := make([]string, len(current.Path))
			copy(newPath, current.Path)
			newPath = append(newPath, neighborID)

			queue = append(queue, TraversalResult{
				NodeID:   neighborID,
				Distance: current.Distance + 1,
				Path:     newPath,
			})
		}
	}

	return results
}

// ConnectedComponents returns the node ids of every connected component,
// each sorted, in order of their smallest member
func ConnectedComponents(adjacency Adjacency) [][]string {
	visited := make(map[string]bool)
	var components [][]string

	ids := adjacency.NodeIDs()
	sort.Strings(ids)

	for _, id := range ids {
		if visited[id] {
			continue
		}

		var component []string
		for _, result := range BFS(adjacency, id, -1) {
			visited[result.NodeID] = true
			component = append(component, result.NodeID)
		}
		sort.Strings(component)
		components = append(components, component)
	}

	return components
}

// Eccentricity returns the largest hop distance from the node to any node
// reachable from it
func Eccentricity(adjacency Adjacency, sourceID string) int {
	maxDistance := 0
	for _, result := range BFS(adjacency, sourceID, -1) {
		if result.Distance > maxDistance {
			maxDistance = result.Distance
		}
	}
	return maxDistance
}

// CostFunc converts an edge weight into a traversal cost
type CostFunc func(weight float64) float64

// ShortestPath runs Dijkstra's algorithm from source to target with edge
// costs derived from weights via cost. Returns the node path, its total
// cost and false when target is unreachable from source.
func ShortestPath(adjacency Adjacency, sourceID, targetID string, cost CostFunc) ([]string, float64, bool) {
	distances := map[string]float64{sourceID: 0}
	previous := make(map[string]string)
	done := make(map[string]bool)

	queue := &costQueue{{id: sourceID, cost: 0}}
	heap.Init(queue)

	for queue.Len() > 0 {
		current := heap.Pop(queue).(costEntry)
		if done[current.id] {
			continue
		}
		done[current.id] = true

		if current.id == targetID {
			break
		}

		for neighborID, weight := range adjacency.Neighbors(current.id) {
			if done[neighborID] {
				continue
			}

			candidate := current.cost + cost(weight)
			if known, ok := distances[neighborID]; !ok || candidate < known {
				distances[neighborID] = candidate
				previous[neighborID] = current.id
				heap.Push(queue, costEntry{id: neighborID, cost: candidate})
			}
		}
	}

	totalCost, ok := distances[targetID]
	if !ok || !done[targetID] {
		return nil, 0, false
	}

	// Reconstruct the path backwards
	path := []string{targetID}
	for path[len(path)-1] != sourceID {
		path = append(path, previous[path[len(path)-1]])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return path, totalCost, true
}

// costEntry is one queued node in Dijkstra's priority queue
type costEntry struct {
	id   string
	cost float64
}

type costQueue []costEntry

func (q costQueue) Len() int            { return len(q) }
func (q costQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q costQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *costQueue) Push(x interface{}) { *q = append(*q, x.(costEntry)) }
func (q *costQueue) Pop() interface{} {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}
