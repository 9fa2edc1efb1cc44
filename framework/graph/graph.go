// Package graph provides the directed graph the container uses to reject
// circular constructor dependencies before any instance is created.
//
// Nodes are any comparable value. An edge from A to B means "building A
// requires B". Nodes keep their insertion order so that traversal, cycle
// reports and topological orderings are deterministic.
package graph

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// ── Graph ─────────────────────────────────────────────────────────────────────

// Graph is a directed graph over comparable nodes.
type Graph[T comparable] struct {
	// adjacency maps each node to its outgoing neighbours.
	adjacency map[T][]T
	// nodes tracks every node in insertion order.
	nodes []T
	// nodeSet provides O(1) existence checks.
	nodeSet map[T]bool
}

// New creates an empty Graph.
func New[T comparable]() *Graph[T] {
	return &Graph[T]{
		adjacency: make(map[T][]T),
		nodeSet:   make(map[T]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph[T]) AddNode(n T) {
	if g.nodeSet[n] {
		return
	}
	g.nodeSet[n] = true
	g.nodes = append(g.nodes, n)
}

// AddEdge adds a directed edge from -> to. Both nodes are added implicitly.
// Parallel edges are collapsed.
func (g *Graph[T]) AddEdge(from, to T) {
	g.AddNode(from)
	g.AddNode(to)
	if slices.Contains(g.adjacency[from], to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph[T]) HasEdge(from, to T) bool {
	return slices.Contains(g.adjacency[from], to)
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph[T]) Nodes() []T { return slices.Clone(g.nodes) }

// Successors returns a copy of the outgoing neighbours of n.
func (g *Graph[T]) Successors(n T) []T { return slices.Clone(g.adjacency[n]) }

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph[T]) EdgeCount() int {
	total := 0
	for _, out := range g.adjacency {
		total += len(out)
	}
	return total
}

// ── Cycles ────────────────────────────────────────────────────────────────────

// CycleError is returned by TopologicalSort for a cyclic graph. Cycle lists
// the nodes that could not be ordered.
type CycleError[T comparable] struct {
	Cycle []T
}

func (e *CycleError[T]) Error() string {
	parts := make([]string, len(e.Cycle))
	for i, n := range e.Cycle {
		parts[i] = fmt.Sprint(n)
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

type colour uint8

const (
	white colour = iota // unvisited
	grey                // on the current DFS path
	black               // fully explored
)

// FindCycle runs a depth-first search with three-colour marking and returns
// the first cycle it meets. A back-edge to a grey node closes the cycle.
// ok is false when the graph is acyclic.
func (g *Graph[T]) FindCycle() (cycle []T, ok bool) {
	marks := make(map[T]colour, len(g.nodes))
	var path []T

	var visit func(n T) bool
	visit = func(n T) bool {
		marks[n] = grey
		path = append(path, n)
		for _, next := range g.adjacency[n] {
			switch marks[next] {
			case grey:
				start := slices.Index(path, next)
				cycle = append(slices.Clone(path[start:]), next)
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		marks[n] = black
		return false
	}

	for _, n := range g.nodes {
		if marks[n] == white && visit(n) {
			return cycle, true
		}
	}
	return nil, false
}

// ── Ordering ──────────────────────────────────────────────────────────────────

// TopologicalSort orders the nodes so that every node comes before the nodes
// it points at (Kahn's algorithm). Nodes on the same level keep insertion
// order. Returns a *CycleError listing the nodes left over when the graph
// is cyclic.
func (g *Graph[T]) TopologicalSort() ([]T, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[T]int, len(g.nodes))
	for _, n := range g.nodes {
		for _, next := range g.adjacency[n] {
			inDegree[next]++
		}
	}

	queue := make([]T, 0, len(g.nodes))
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	order := make([]T, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range g.adjacency[n] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var rest []T
		for _, n := range g.nodes {
			if inDegree[n] > 0 {
				rest = append(rest, n)
			}
		}
		return nil, &CycleError[T]{Cycle: rest}
	}
	return order, nil
}
