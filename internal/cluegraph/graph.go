// Package cluegraph builds a transient dependency graph over a script's clues
// and answers eligibility and validation queries against it. Graphs are cheap
// to rebuild (clue sets are tens of entries, not millions) and are never
// persisted.
package cluegraph

import (
	"github.com/Storyloom-Labs/intrigue/internal/script"
)

// Graph holds the clue arena plus prerequisite adjacency in both directions.
// forward runs prerequisite -> dependent, reverse runs dependent -> prerequisite.
type Graph struct {
	clues   []script.Clue
	index   map[string]int
	forward [][]int
	reverse [][]int

	selfPrereqs []string
}

// Exclusion explains why a clue was filtered out of the eligible set.
type Exclusion struct {
	ClueID           string   `json:"clue_id"`
	MissingPrereqIDs []string `json:"missing_prereq_ids"`
}

// New builds a graph from a script's full clue set. Prerequisite ids that
// reference unknown clues produce no edges but still gate eligibility;
// self-references are recorded as findings and excluded from adjacency so
// traversals stay meaningful.
func New(clues []script.Clue) *Graph {
	g := &Graph{
		clues:   make([]script.Clue, len(clues)),
		index:   make(map[string]int, len(clues)),
		forward: make([][]int, len(clues)),
		reverse: make([][]int, len(clues)),
	}
	copy(g.clues, clues)

	for i, c := range g.clues {
		g.index[c.ID] = i
	}

	for i, c := range g.clues {
		for _, prereq := range c.PrereqClueIDs {
			if prereq == c.ID {
				g.selfPrereqs = append(g.selfPrereqs, c.ID)
				continue
			}
			p, ok := g.index[prereq]
			if !ok {
				continue
			}
			g.forward[p] = append(g.forward[p], i)
			g.reverse[i] = append(g.reverse[i], p)
		}
	}

	return g
}

// Len returns the number of clues in the graph.
func (g *Graph) Len() int {
	return len(g.clues)
}

// Clue returns the clue with the given id, or nil if absent.
func (g *Graph) Clue(id string) *script.Clue {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return &g.clues[i]
}

// SelfPrereqs lists clues that declare themselves as their own prerequisite.
func (g *Graph) SelfPrereqs() []string {
	return g.selfPrereqs
}

// Eligible partitions the clue set: a clue is eligible iff every prerequisite
// id is in the unlocked set. Clues without prerequisites are always eligible.
// Excluded clues come back with their missing prerequisite ids so callers can
// report exclusion reasons.
func (g *Graph) Eligible(unlocked map[string]bool) ([]script.Clue, []Exclusion) {
	var eligible []script.Clue
	var excluded []Exclusion

	for _, c := range g.clues {
		var missing []string
		for _, prereq := range c.PrereqClueIDs {
			if !unlocked[prereq] {
				missing = append(missing, prereq)
			}
		}
		if len(missing) == 0 {
			eligible = append(eligible, c)
		} else {
			excluded = append(excluded, Exclusion{ClueID: c.ID, MissingPrereqIDs: missing})
		}
	}

	return eligible, excluded
}

// DetectCycles walks the forward adjacency with an explicit stack, keeping
// recursion-stack membership and the current path. Whenever an edge reaches a
// node still on the stack, the sub-path from that node through the current
// node is recorded as one cycle. Independent cycles are all reported and a
// clue may appear in more than one.
func (g *Graph) DetectCycles() [][]string {
	n := len(g.clues)
	visited := make([]bool, n)
	onStack := make([]bool, n)

	var cycles [][]string
	var path []int

	type frame struct {
		node int
		next int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}

		stack := []frame{{node: start}}
		visited[start] = true
		onStack[start] = true
		path = append(path, start)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]

			if f.next < len(g.forward[f.node]) {
				dep := g.forward[f.node][f.next]
				f.next++

				if !visited[dep] {
					visited[dep] = true
					onStack[dep] = true
					path = append(path, dep)
					stack = append(stack, frame{node: dep})
					continue
				}

				if onStack[dep] {
					// Back edge: the cycle is the path suffix starting at dep.
					from := 0
					for i, node := range path {
						if node == dep {
							from = i
							break
						}
					}
					cycle := make([]string, 0, len(path)-from)
					for _, node := range path[from:] {
						cycle = append(cycle, g.clues[node].ID)
					}
					cycles = append(cycles, cycle)
				}
				continue
			}

			onStack[f.node] = false
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return cycles
}

// RootClues returns the ids of clues with no prerequisites (empty reverse
// adjacency and no declared prerequisite ids).
func (g *Graph) RootClues() []string {
	var roots []string
	for i, c := range g.clues {
		if len(g.reverse[i]) == 0 && len(c.PrereqClueIDs) == 0 {
			roots = append(roots, c.ID)
		}
	}
	return roots
}

// DeadClues flood-fills forward from the given roots and returns every
// non-root clue the traversal never reaches. With zero roots nothing is
// reachable, so every clue with at least one prerequisite is dead.
func (g *Graph) DeadClues(roots []string) []string {
	if len(roots) == 0 {
		var dead []string
		for _, c := range g.clues {
			if len(c.PrereqClueIDs) > 0 {
				dead = append(dead, c.ID)
			}
		}
		return dead
	}

	reached := make([]bool, len(g.clues))

	var queue []int
	isRoot := make(map[string]bool, len(roots))
	for _, id := range roots {
		isRoot[id] = true
		if i, ok := g.index[id]; ok {
			reached[i] = true
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, dep := range g.forward[node] {
			if !reached[dep] {
				reached[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	var dead []string
	for i, c := range g.clues {
		if !reached[i] && !isRoot[c.ID] {
			dead = append(dead, c.ID)
		}
	}
	return dead
}

// OrphanClues returns clues isolated in the prerequisite relation: no incoming
// and no outgoing edges. Orphans are still matchable directly, so they are a
// warning-level finding, not a validity problem.
func (g *Graph) OrphanClues() []string {
	var orphans []string
	for i, c := range g.clues {
		if len(g.forward[i]) == 0 && len(g.reverse[i]) == 0 && len(c.PrereqClueIDs) == 0 {
			orphans = append(orphans, c.ID)
		}
	}
	return orphans
}
