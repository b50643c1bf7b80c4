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
	"sort"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/util"
)

type dpEntry struct {
	plan PlanRef
	rows float64
	// cost is the sum of the rows of every join below and including plan.
	cost float64
}

// DPOrderer finds the cheapest join tree by dynamic programming over leaf
// subsets. best(S) tries every split of S into two parts joined by an edge
// and keeps the cheapest; results are memoized by subset.
type DPOrderer struct {
	baseOrderer
	memo map[string]*dpEntry
	topK *TopK
}

func NewDPOrderer(graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) *DPOrderer {
	return &DPOrderer{
		baseOrderer: newBaseOrderer(graph, builder, oracle, cfg),
	}
}

func (d *DPOrderer) Expand(ctx context.Context) (PlanRef, error) {
	plan, _, err := d.ExpandWithTopK(ctx)
	return plan, err
}

func (d *DPOrderer) ExpandWithTopK(ctx context.Context) (PlanRef, []Alternative, error) {
	exit, err := d.enter()
	if err != nil {
		return InvalidPlan, nil, err
	}
	defer exit()

	n := d.graph.NumComponents()
	if n == 0 {
		return InvalidPlan, nil, nil
	}
	if n > maxDPComponents {
		return InvalidPlan, nil, errors.Mark(
			errors.Newf("%d components exceed the dp limit of %d", n, maxDPComponents),
			ErrResourceExhausted)
	}
	d.memo = make(map[string]*dpEntry)
	d.topK = NewTopK(int(d.cfg.TopK))

	best, err := d.best(ctx, d.graph.Universe(), 0)
	if err != nil {
		return InvalidPlan, nil, err
	}
	if d.topK.Len() == 0 {
		d.topK.Offer(Alternative{Plan: best.plan, Rows: best.rows, Cost: best.cost})
	}
	plan, alts, err := d.finalize(best.plan, d.topK.Sorted())
	if err != nil {
		return InvalidPlan, nil, err
	}
	util.Debug("dp join order",
		zap.Int("components", n),
		zap.Int("subsets", len(d.memo)),
		zap.Int("alternatives", len(alts)),
		zap.Float64("cost", best.cost))
	return plan, alts, nil
}

// finalize puts the leaf-free predicates on top of the best plan and of
// every ranked alternative.
func (o *baseOrderer) finalize(best PlanRef, alts []Alternative) (PlanRef, []Alternative, error) {
	plan, err := o.withResidual(best)
	if err != nil {
		return InvalidPlan, nil, err
	}
	for i := range alts {
		if alts[i].Plan == best {
			alts[i].Plan = plan
			continue
		}
		alts[i].Plan, err = o.withResidual(alts[i].Plan)
		if err != nil {
			return InvalidPlan, nil, err
		}
	}
	return plan, alts, nil
}

func (d *DPOrderer) best(ctx context.Context, set util.IntSet, depth int) (*dpEntry, error) {
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if depth > d.cfg.MaxDepth {
		return nil, depthExceeded(depth, d.cfg.MaxDepth)
	}
	key := set.Key()
	if entry, has := d.memo[key]; has {
		return entry, nil
	}

	members := set.Ordered()
	if len(members) == 1 {
		plan, rows, err := d.leafPlan(members[0])
		if err != nil {
			return nil, err
		}
		entry := &dpEntry{plan: plan, rows: rows}
		d.memo[key] = entry
		return entry, nil
	}

	isUniverse := len(members) == d.graph.NumComponents()
	var cur *dpEntry
	// The left part always holds the smallest member, so every unordered
	// split is visited once. The all-ones mask would leave the right empty.
	first, rest := members[0], members[1:]
	last := uint64(1)<<uint(len(rest)) - 1
	for mask := uint64(0); mask < last; mask++ {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		left := util.SingletonSet(first)
		right := util.IntSet{}
		for i, v := range rest {
			if mask&(uint64(1)<<uint(i)) != 0 {
				left.Add(v)
			} else {
				right.Add(v)
			}
		}
		if !d.graph.connected(left, right) {
			continue
		}
		entry, err := d.join(ctx, left, right, depth)
		if err != nil {
			return nil, err
		}
		if isUniverse {
			d.topK.Offer(Alternative{Plan: entry.plan, Rows: entry.rows, Cost: entry.cost})
		}
		if cur == nil || entry.cost < cur.cost {
			cur = entry
		}
	}

	if cur == nil {
		var err error
		cur, err = d.crossProduct(ctx, set, depth)
		if err != nil {
			return nil, err
		}
		if isUniverse {
			d.topK.Offer(Alternative{Plan: cur.plan, Rows: cur.rows, Cost: cur.cost})
		}
	}
	d.memo[key] = cur
	return cur, nil
}

func (d *DPOrderer) join(ctx context.Context, left, right util.IntSet, depth int) (*dpEntry, error) {
	le, err := d.best(ctx, left, depth+1)
	if err != nil {
		return nil, err
	}
	re, err := d.best(ctx, right, depth+1)
	if err != nil {
		return nil, err
	}
	plan, rows, err := d.buildPair(le.plan, re.plan, le.rows, re.rows, d.graph.joinPredicates(left, right))
	if err != nil {
		return nil, err
	}
	return &dpEntry{
		plan: plan,
		rows: rows,
		cost: rows + le.cost + re.cost,
	}, nil
}

// crossProduct handles a subset without any connected split: the best plans
// of its connected parts are cross joined, smallest first.
func (d *DPOrderer) crossProduct(ctx context.Context, set util.IntSet, depth int) (*dpEntry, error) {
	parts := d.graph.connectedParts(set)
	if len(parts) < 2 {
		return nil, errors.AssertionFailedf("subset %v is connected but has no connected split", set)
	}
	entries := make([]*dpEntry, 0, len(parts))
	for _, part := range parts {
		entry, err := d.best(ctx, part, depth+1)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].rows < entries[j].rows
	})
	acc := entries[0]
	for _, next := range entries[1:] {
		plan, rows, err := d.buildPair(acc.plan, next.plan, acc.rows, next.rows, nil)
		if err != nil {
			return nil, err
		}
		acc = &dpEntry{
			plan: plan,
			rows: rows,
			cost: rows + acc.cost + next.cost,
		}
	}
	return acc, nil
}
