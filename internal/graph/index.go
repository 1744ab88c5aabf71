// Package graph holds the structural view of the hypothesis DAG: who depends
// on whom, reachability queries used to refuse cycles, and the child-first
// wave ordering used by batch recomputation.
//
// An Index is rebuilt from the edge rows whenever a caller needs one. Every
// traversal carries a visited set so it terminates even on data that already
// contains a cycle.
package graph

import (
	"errors"
	"sort"
)

// ErrCycle is returned by Waves when a pass makes no progress.
var ErrCycle = errors.New("graph contains a cycle")

// Edge is a "depends on" link: ParentID depends on ChildID.
type Edge struct {
	ParentID string
	ChildID  string
}

// Index holds both directions of the edge set.
type Index struct {
	children map[string][]string // parent -> children
	parents  map[string][]string // child -> parents
}

// NewIndex builds an Index. Self loops and duplicate pairs are kept out of
// the adjacency lists.
func NewIndex(edges []Edge) *Index {
	idx := &Index{
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	seen := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		if e.ParentID == e.ChildID || seen[e] {
			continue
		}
		seen[e] = true
		idx.children[e.ParentID] = append(idx.children[e.ParentID], e.ChildID)
		idx.parents[e.ChildID] = append(idx.parents[e.ChildID], e.ParentID)
	}
	return idx
}

// Children returns the direct children of id.
func (x *Index) Children(id string) []string {
	return x.children[id]
}

// Parents returns the direct parents of id.
func (x *Index) Parents(id string) []string {
	return x.parents[id]
}

// HasEdge reports whether parentID -> childID exists.
func (x *Index) HasEdge(parentID, childID string) bool {
	for _, c := range x.children[parentID] {
		if c == childID {
			return true
		}
	}
	return false
}

// IsDescendant reports whether ancestorID can be reached by walking parent
// edges upward from candidateID. Attaching X under P must be refused when
// IsDescendant(P, X) holds: P already sits below X.
func (x *Index) IsDescendant(candidateID, ancestorID string) bool {
	if candidateID == ancestorID {
		return false
	}
	visited := map[string]bool{candidateID: true}
	queue := []string{candidateID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, p := range x.parents[current] {
			if p == ancestorID {
				return true
			}
			if visited[p] {
				continue
			}
			visited[p] = true
			queue = append(queue, p)
		}
	}
	return false
}

// AncestorIDs returns every ancestor of id in BFS order (nearest first).
func (x *Index) AncestorIDs(id string) []string {
	visited := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, p := range x.parents[current] {
			if visited[p] {
				continue
			}
			visited[p] = true
			out = append(out, p)
			queue = append(queue, p)
		}
	}
	return out
}

// Ancestry returns id followed by all of its ancestors.
func (x *Index) Ancestry(id string) []string {
	return append([]string{id}, x.AncestorIDs(id)...)
}

// Waves orders ids so that every node comes after all of its children that
// are also in ids. Children outside ids count as already final. Each wave is
// sorted for deterministic output.
//
// If a full pass over the remaining nodes finalizes nothing, the remaining
// nodes sit on or above a cycle: the waves computed so far are returned
// together with ErrCycle.
func (x *Index) Waves(ids []string) ([][]string, error) {
	remaining := make(map[string]bool, len(ids))
	for _, id := range ids {
		remaining[id] = true
	}

	var waves [][]string
	for len(remaining) > 0 {
		var wave []string
		for id := range remaining {
			ready := true
			for _, c := range x.children[id] {
				if remaining[c] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			return waves, ErrCycle
		}
		sort.Strings(wave)
		for _, id := range wave {
			delete(remaining, id)
		}
		waves = append(waves, wave)
	}
	return waves, nil
}
