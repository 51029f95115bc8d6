// SPDX-License-Identifier: MPL-2.0

// Package dag orders named nodes so that every node follows the nodes it
// depends on. Control groups use it to evaluate group-on-group conditions
// dependencies first and to reject dependency loops.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports a loop. Cycle follows the edges and repeats the
	// first node at the end, e.g. [a b a].
	CycleError struct {
		Cycle []string
	}

	// Graph is a directed graph of string nodes. An edge from A to B means
	// A must come before B.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]bool
	}
)

// Error implements the error interface for CycleError.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge records that from must come before to, adding both nodes.
// Repeated edges are stored once.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if !slices.Contains(g.adjacency[from], to) {
		g.adjacency[from] = append(g.adjacency[from], to)
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns every node in dependency order using Kahn's
// algorithm. Ties keep insertion order, so equal graphs built in equal
// order sort identically. A graph with a loop returns a *CycleError naming
// one loop.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		for _, next := range g.adjacency[node] {
			inDegree[next]++
		}
	}

	var queue []string
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, next := range g.adjacency[node] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	remaining := make(map[string]bool, len(g.nodes)-len(order))
	for _, node := range g.nodes {
		if inDegree[node] > 0 {
			remaining[node] = true
		}
	}
	return nil, &CycleError{Cycle: g.findCycle(remaining)}
}

// findCycle walks the nodes Kahn's algorithm could not order. Every one of
// them has an incoming edge from another, so a depth-first walk in
// insertion order always closes a loop.
func (g *Graph) findCycle(remaining map[string]bool) []string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(remaining))
	var stack []string

	var visit func(node string) []string
	visit = func(node string) []string {
		state[node] = visiting
		stack = append(stack, node)
		for _, next := range g.adjacency[node] {
			if !remaining[next] {
				continue
			}
			switch state[next] {
			case visiting:
				start := slices.Index(stack, next)
				return append(slices.Clone(stack[start:]), next)
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[node] = done
		return nil
	}

	for _, node := range g.nodes {
		if remaining[node] && state[node] == unvisited {
			if cycle := visit(node); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
