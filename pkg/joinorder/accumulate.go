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
	"context"

	"github.com/daviszhen/joinorder/pkg/util"
)

// marks holds the used bits of one accumulating search.
type marks struct {
	compUsed    []bool
	edgeUsed    []bool
	unusedComps int
	unusedEdges int
}

func newMarks(g *Graph) *marks {
	return &marks{
		compUsed:    make([]bool, len(g.comps)),
		edgeUsed:    make([]bool, len(g.edges)),
		unusedComps: len(g.comps),
		unusedEdges: len(g.edges),
	}
}

// candidate is a tentative combination of the accumulator with leaves.
type candidate struct {
	comp   Component
	rows   float64
	leaves []int
	edges  []int
	// cross is set when a non-empty accumulator was combined without any
	// edge touching both sides.
	cross bool
}

func (m *marks) commit(c *candidate) {
	for _, leaf := range c.leaves {
		if !m.compUsed[leaf] {
			m.compUsed[leaf] = true
			m.unusedComps--
		}
	}
	for _, e := range c.edges {
		if !m.edgeUsed[e] {
			m.edgeUsed[e] = true
			m.unusedEdges--
		}
	}
}

// combine merges acc with leaf. The predicate is the conjunction of every
// unused edge inside the union of both covers. An empty accumulator yields
// a Select over the leaf instead of a join.
func (o *baseOrderer) combine(m *marks, acc Component, leaf int) (*candidate, error) {
	comp := o.graph.comps[leaf]
	union := acc.Cover.Union(comp.Cover)
	c := &candidate{
		comp:   Component{Cover: union},
		leaves: []int{leaf},
	}
	var preds []ScalarRef
	connected := false
	for i, edge := range o.graph.edges {
		if m.edgeUsed[i] || !edge.Cover.SubsetOf(union) {
			continue
		}
		preds = append(preds, edge.Pred)
		c.edges = append(c.edges, i)
		if edge.Cover.Intersects(acc.Cover) && edge.Cover.Intersects(comp.Cover) {
			connected = true
		}
	}

	var err error
	switch {
	case !acc.Plan.Valid():
		c.comp.Plan = comp.Plan
		if len(preds) > 0 {
			c.comp.Plan, err = o.builder.BuildSelect(comp.Plan, preds)
		}
	case len(preds) == 0:
		c.cross = true
		c.comp.Plan, err = o.builder.BuildCross([]PlanRef{acc.Plan, comp.Plan})
	default:
		c.cross = !connected
		c.comp.Plan, err = o.builder.BuildInnerJoin(acc.Plan, comp.Plan, preds)
	}
	if err != nil {
		return nil, err
	}
	c.rows, err = o.oracle.EstimateRows(c.comp.Plan)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// growStep picks the cheapest combination of acc with one unused leaf.
// With deferCross, unconnected candidates are skipped while more than one
// edge is unused; nil is returned if nothing qualifies.
func (o *baseOrderer) growStep(ctx context.Context, m *marks, acc Component, deferCross bool) (*candidate, error) {
	var best *candidate
	for leaf := range o.graph.comps {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		if m.compUsed[leaf] {
			continue
		}
		c, err := o.combine(m, acc, leaf)
		if err != nil {
			return nil, err
		}
		if deferCross && c.cross && m.unusedEdges > 1 {
			continue
		}
		if best == nil || c.rows < best.rows {
			best = c
		}
	}
	return best, nil
}

// finish applies the edges still unused, which can only be left when the
// accumulator never covered them, as one residual Select.
func (o *baseOrderer) finish(m *marks, acc Component) (PlanRef, error) {
	if !acc.Plan.Valid() {
		return InvalidPlan, nil
	}
	var preds []ScalarRef
	for i, edge := range o.graph.edges {
		if !m.edgeUsed[i] {
			preds = append(preds, edge.Pred)
			m.edgeUsed[i] = true
			m.unusedEdges--
		}
	}
	if len(preds) == 0 {
		return acc.Plan, nil
	}
	return o.builder.BuildSelect(acc.Plan, preds)
}

func emptyAccumulator() Component {
	return Component{Cover: util.IntSet{}, Plan: InvalidPlan}
}
