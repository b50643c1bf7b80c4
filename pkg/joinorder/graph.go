// Copyright 2023-2024 daviszhen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package joinorder

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/daviszhen/joinorder/pkg/util"
)

// Component is one joinable unit. Leaves of a graph cover exactly their own
// index; combined components cover the union of their inputs.
type Component struct {
	Cover util.IntSet
	Plan  PlanRef
}

// Edge is one top-level conjunct and the leaves it references.
type Edge struct {
	Pred  ScalarRef
	Cover util.IntSet
}

// Graph is the join hypergraph of one n-ary join. It is not modified by
// the orderers: the used marks of greedy growth live in the orderers.
type Graph struct {
	comps    []Component
	edges    []Edge
	universe util.IntSet
}

// NewGraph builds the graph of plans joined on preds. Edge covers hold the
// leaves whose output columns intersect the columns used by the predicate.
func NewGraph(builder PlanBuilder, plans []PlanRef, preds []ScalarRef) (*Graph, error) {
	g := &Graph{
		comps:    make([]Component, 0, len(plans)),
		edges:    make([]Edge, 0, len(preds)),
		universe: util.RangeSet(len(plans)),
	}
	outputs := make([]util.IntSet, 0, len(plans))
	for i, plan := range plans {
		cols, err := builder.OutputColumns(plan)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, cols)
		g.comps = append(g.comps, Component{
			Cover: util.SingletonSet(i),
			Plan:  plan,
		})
	}
	for _, pred := range preds {
		used, err := builder.UsedColumns(pred)
		if err != nil {
			return nil, err
		}
		cover := util.IntSet{}
		for i, cols := range outputs {
			if cols.Intersects(used) {
				cover.Add(i)
			}
		}
		g.edges = append(g.edges, Edge{
			Pred:  pred,
			Cover: cover,
		})
	}
	return g, nil
}

func (g *Graph) NumComponents() int {
	return len(g.comps)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

func (g *Graph) Component(i int) Component {
	return g.comps[i]
}

func (g *Graph) Edge(i int) Edge {
	return g.edges[i]
}

// Universe is the cover of all leaves.
func (g *Graph) Universe() util.IntSet {
	return g.universe
}

// connected reports whether some edge lies inside a∪b and touches both.
func (g *Graph) connected(a, b util.IntSet) bool {
	union := a.Union(b)
	for _, edge := range g.edges {
		if edge.Cover.SubsetOf(union) &&
			edge.Cover.Intersects(a) &&
			edge.Cover.Intersects(b) {
			return true
		}
	}
	return false
}

// joinPredicates returns the conjuncts applied when a and b are joined by
// the DP orderers: edges inside a∪b that are inside neither side. Edges
// inside one side were applied below it.
func (g *Graph) joinPredicates(a, b util.IntSet) []ScalarRef {
	union := a.Union(b)
	var preds []ScalarRef
	for _, edge := range g.edges {
		if edge.Cover.Empty() || !edge.Cover.SubsetOf(union) {
			continue
		}
		if edge.Cover.SubsetOf(a) || edge.Cover.SubsetOf(b) {
			continue
		}
		preds = append(preds, edge.Pred)
	}
	return preds
}

// localPredicates returns the edges that reference leaf i only.
func (g *Graph) localPredicates(i int) []ScalarRef {
	var preds []ScalarRef
	for _, edge := range g.edges {
		if edge.Cover.Len() == 1 && edge.Cover.Contains(i) {
			preds = append(preds, edge.Pred)
		}
	}
	return preds
}

// residualPredicates returns the edges that reference no leaf at all.
// They are applied once on top of the final plan.
func (g *Graph) residualPredicates() []ScalarRef {
	var preds []ScalarRef
	for _, edge := range g.edges {
		if edge.Cover.Empty() {
			preds = append(preds, edge.Pred)
		}
	}
	return preds
}

// connectedParts splits set into the maximal subsets linked by edges that
// lie inside set. Parts are ordered by their smallest member.
func (g *Graph) connectedParts(set util.IntSet) []util.IntSet {
	members := set.Ordered()
	parent := make(map[int]int, len(members))
	for _, m := range members {
		parent[m] = m
	}
	var find func(x int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for _, edge := range g.edges {
		if edge.Cover.Len() < 2 || !edge.Cover.SubsetOf(set) {
			continue
		}
		first := edge.Cover.Min()
		edge.Cover.ForEach(func(v int) {
			ra, rb := find(first), find(v)
			if ra != rb {
				if ra < rb {
					parent[rb] = ra
				} else {
					parent[ra] = rb
				}
			}
		})
	}
	byRoot := make(map[int]int)
	var parts []util.IntSet
	for _, m := range members {
		root := find(m)
		idx, has := byRoot[root]
		if !has {
			idx = len(parts)
			byRoot[root] = idx
			parts = append(parts, util.IntSet{})
		}
		parts[idx].Add(m)
	}
	return parts
}

func (g *Graph) Print(tree treeprint.Tree) {
	comps := tree.AddBranch(fmt.Sprintf("components (%d)", len(g.comps)))
	for i, comp := range g.comps {
		comps.AddMetaNode(i, fmt.Sprintf("plan %d cover %v", comp.Plan, comp.Cover))
	}
	edges := tree.AddBranch(fmt.Sprintf("edges (%d)", len(g.edges)))
	for i, edge := range g.edges {
		edges.AddMetaNode(i, fmt.Sprintf("pred %d cover %v", edge.Pred, edge.Cover))
	}
}

func (g *Graph) String() string {
	tree := treeprint.NewWithRoot("JoinGraph:")
	g.Print(tree)
	return tree.String()
}
