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

	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/util"
)

// GreedyOrderer grows one join tree. It starts from the cheapest connected
// pair of leaves and then keeps attaching the leaf that gives the lowest
// estimated cardinality, postponing cross products while it can.
type GreedyOrderer struct {
	baseOrderer
}

func NewGreedyOrderer(graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) *GreedyOrderer {
	return &GreedyOrderer{
		baseOrderer: newBaseOrderer(graph, builder, oracle, cfg),
	}
}

func (g *GreedyOrderer) Expand(ctx context.Context) (PlanRef, error) {
	exit, err := g.enter()
	if err != nil {
		return InvalidPlan, err
	}
	defer exit()

	if g.graph.NumComponents() == 0 {
		return InvalidPlan, nil
	}
	m := newMarks(g.graph)
	acc := emptyAccumulator()
	var accRows float64

	seed, err := g.startingPair(ctx, m)
	if err != nil {
		return InvalidPlan, err
	}
	if seed != nil {
		m.commit(seed)
		acc, accRows = seed.comp, seed.rows
	}

	for m.unusedComps > 0 {
		best, err := g.growStep(ctx, m, acc, g.cfg.DeferCrossProducts)
		if err != nil {
			return InvalidPlan, err
		}
		if best == nil {
			// every remaining leaf needs a cross product
			best, err = g.growStep(ctx, m, acc, false)
			if err != nil {
				return InvalidPlan, err
			}
		}
		m.commit(best)
		acc, accRows = best.comp, best.rows
	}

	plan, err := g.finish(m, acc)
	if err != nil {
		return InvalidPlan, err
	}
	util.Debug("greedy join order",
		zap.Int("components", g.graph.NumComponents()),
		zap.Int("edges", g.graph.NumEdges()),
		zap.Bool("seeded", seed != nil),
		zap.Float64("rows", accRows))
	return plan, nil
}

// startingPair returns the cheapest pair of leaves joined by an edge, or nil
// if no edge connects two leaves.
func (g *GreedyOrderer) startingPair(ctx context.Context, m *marks) (*candidate, error) {
	var best *candidate
	n := g.graph.NumComponents()
	for i := 0; i < n; i++ {
		left := g.graph.comps[i]
		for j := i + 1; j < n; j++ {
			if err := checkCancel(ctx); err != nil {
				return nil, err
			}
			c, err := g.combine(m, left, j)
			if err != nil {
				return nil, err
			}
			if c.cross {
				continue
			}
			if best == nil || c.rows < best.rows {
				c.leaves = []int{i, j}
				best = c
			}
		}
	}
	return best, nil
}
