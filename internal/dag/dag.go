// Package dag flattens a dependency forest into a node/link graph for
// visualization and answers structural questions about it.
// Despite the name, the graph may contain cycles; HasCycle reports them.
package dag

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/dbrefs/pkg/core"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the render key of the object
	ID string `json:"id"`
	// Group is the numeric kind, used for colouring
	Group int `json:"group"`
}

// Link is a usage edge from an object to one of its users.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the flattened forest. Nodes are unique ignoring case; links are
// kept as produced, duplicates included.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`

	index map[string]int // upper(ID) -> position in Nodes
}

// Build walks the forest breadth first and emits one node per render key and
// one link per (object, usage) pair. Each object pointer is visited once, so
// forests sharing cached instances terminate.
func Build(forest []*core.RefObject) *Graph {
	g := &Graph{
		Nodes: []Node{},
		Links: []Link{},
		index: make(map[string]int),
	}

	visited := make(map[*core.RefObject]bool)
	queue := append([]*core.RefObject(nil), forest...)
	for len(queue) > 0 {
		obj := queue[0]
		queue = queue[1:]
		if obj == nil || visited[obj] {
			continue
		}
		visited[obj] = true

		id := obj.RenderKey()
		g.addNode(id, int(obj.Kind))
		for _, u := range obj.Usages {
			g.Links = append(g.Links, Link{Source: id, Target: u.RenderKey()})
			queue = append(queue, u)
		}
	}
	return g
}

func (g *Graph) addNode(id string, group int) {
	key := strings.ToUpper(id)
	if _, exists := g.index[key]; exists {
		return
	}
	g.index[key] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{ID: id, Group: group})
}

// GetNode returns a node by ID, ignoring case.
func (g *Graph) GetNode(id string) (Node, bool) {
	i, ok := g.lookup()[strings.ToUpper(id)]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of links in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.Links)
}

// lookup returns the case-insensitive node index, rebuilding it for graphs
// that were decoded rather than built.
func (g *Graph) lookup() map[string]int {
	if g.index == nil || len(g.index) != len(g.Nodes) {
		g.index = make(map[string]int, len(g.Nodes))
		for i, n := range g.Nodes {
			key := strings.ToUpper(n.ID)
			if _, exists := g.index[key]; !exists {
				g.index[key] = i
			}
		}
	}
	return g.index
}

// adjacency returns the distinct children of every node keyed by upper ID.
func (g *Graph) adjacency() map[string][]string {
	edges := make(map[string][]string, len(g.Nodes))
	seen := make(map[[2]string]bool, len(g.Links))
	for _, l := range g.Links {
		e := [2]string{strings.ToUpper(l.Source), strings.ToUpper(l.Target)}
		if seen[e] {
			continue
		}
		seen[e] = true
		edges[e[0]] = append(edges[e[0]], e[1])
	}
	return edges
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	edges := g.adjacency()
	index := g.lookup()

	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string) // Track the path for error reporting

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				// Found cycle, reconstruct path
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, n := range g.Nodes {
		id := strings.ToUpper(n.ID)
		if !visited[id] && dfs(id) {
			return true, g.displayIDs(cyclePath, index)
		}
	}

	return false, nil
}

// DeadEnds returns the database objects from which no source file or ETL
// package is reachable, i.e. objects without a final consumer. The result
// is sorted.
func (g *Graph) DeadEnds() []string {
	reverse := make(map[string][]string)
	for from, children := range g.adjacency() {
		for _, to := range children {
			reverse[to] = append(reverse[to], from)
		}
	}

	// Walk backwards from every consumer; whatever is reached has one.
	reaches := make(map[string]bool)
	var queue []string
	for _, n := range g.Nodes {
		k := core.Kind(n.Group)
		if k == core.SourceFile || k == core.EtlPackage {
			queue = append(queue, strings.ToUpper(n.ID))
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, parent := range reverse[id] {
			if !reaches[parent] {
				reaches[parent] = true
				queue = append(queue, parent)
			}
		}
	}

	var deadEnds []string
	for _, n := range g.Nodes {
		if core.Kind(n.Group).IsDatabase() && !reaches[strings.ToUpper(n.ID)] {
			deadEnds = append(deadEnds, n.ID)
		}
	}
	sort.Strings(deadEnds)
	return deadEnds
}

// GetLeaves returns nodes with no outgoing links, sorted.
func (g *Graph) GetLeaves() []string {
	edges := g.adjacency()
	var leaves []string
	for _, n := range g.Nodes {
		if len(edges[strings.ToUpper(n.ID)]) == 0 {
			leaves = append(leaves, n.ID)
		}
	}
	sort.Strings(leaves)
	return leaves
}

func (g *Graph) displayIDs(keys []string, index map[string]int) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if i, ok := index[k]; ok {
			out = append(out, g.Nodes[i].ID)
		} else {
			out = append(out, k)
		}
	}
	return out
}
