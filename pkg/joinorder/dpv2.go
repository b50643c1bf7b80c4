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
	"strings"

	"github.com/cockroachdb/errors"
	treemap "github.com/liyue201/gostl/ds/map"
	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/util"
)

// dpGroup is one leaf subset of the bushy search with its cheapest plans.
type dpGroup struct {
	set  util.IntSet
	alts *TopK
}

type dpLevel = treemap.Map[string, *dpGroup]

func newLevel() *dpLevel {
	return treemap.New[string, *dpGroup](func(a, b string) int {
		return strings.Compare(a, b)
	})
}

// DPv2Orderer enumerates subsets level by level, level k holding the
// subsets of k leaves. A subset of level k is built from any two disjoint
// groups of levels i and k-i, so both sides of a join may be composite.
// Every group keeps a few alternatives for the levels above it.
type DPv2Orderer struct {
	baseOrderer
	levels []*dpLevel
}

func NewDPv2Orderer(graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) *DPv2Orderer {
	return &DPv2Orderer{
		baseOrderer: newBaseOrderer(graph, builder, oracle, cfg),
	}
}

func (d *DPv2Orderer) Expand(ctx context.Context) (PlanRef, error) {
	plan, _, err := d.ExpandWithTopK(ctx)
	return plan, err
}

func (d *DPv2Orderer) ExpandWithTopK(ctx context.Context) (PlanRef, []Alternative, error) {
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

	d.levels = make([]*dpLevel, n+1)
	d.levels[1] = newLevel()
	for i := 0; i < n; i++ {
		plan, rows, err := d.leafPlan(i)
		if err != nil {
			return InvalidPlan, nil, err
		}
		group := d.groupOf(1, util.SingletonSet(i), n)
		group.alts.Offer(Alternative{Plan: plan, Rows: rows})
	}

	for level := 2; level <= n; level++ {
		d.levels[level] = newLevel()
		for i := 1; i <= level/2; i++ {
			if err := d.searchLevel(ctx, level, i, level-i, false); err != nil {
				return InvalidPlan, nil, err
			}
		}
		if d.levels[level].Size() == 0 {
			// nothing at this level is connected
			if err := d.searchLevel(ctx, level, level-1, 1, true); err != nil {
				return InvalidPlan, nil, err
			}
		}
	}

	top, err := d.levels[n].Get(d.graph.Universe().Key())
	if err != nil {
		return InvalidPlan, nil, errors.AssertionFailedf("no plan covers all %d components", n)
	}
	best, _ := top.alts.Best()
	plan, alts, err := d.finalize(best.Plan, top.alts.Sorted())
	if err != nil {
		return InvalidPlan, nil, err
	}
	groups := 0
	for _, lvl := range d.levels[1:] {
		groups += lvl.Size()
	}
	util.Debug("bushy dp join order",
		zap.Int("components", n),
		zap.Int("groups", groups),
		zap.Int("alternatives", len(alts)),
		zap.Float64("cost", best.Cost))
	return plan, alts, nil
}

func (d *DPv2Orderer) groupOf(level int, set util.IntSet, n int) *dpGroup {
	key := set.Key()
	group, err := d.levels[level].Get(key)
	if err == nil {
		return group
	}
	capacity := d.cfg.BushyAlternatives
	if level == n {
		capacity = int(d.cfg.TopK)
	}
	group = &dpGroup{
		set:  set,
		alts: NewTopK(capacity),
	}
	d.levels[level].Insert(key, group)
	return group
}

// searchLevel joins every group of level li with every disjoint group of
// level ri. Without allowCross only pairs linked by an edge are joined.
func (d *DPv2Orderer) searchLevel(ctx context.Context, level, li, ri int, allowCross bool) error {
	n := d.graph.NumComponents()
	var lefts, rights []*dpGroup
	for it := d.levels[li].Begin(); it.IsValid(); it.Next() {
		lefts = append(lefts, it.Value())
	}
	for it := d.levels[ri].Begin(); it.IsValid(); it.Next() {
		rights = append(rights, it.Value())
	}
	for _, lg := range lefts {
		for _, rg := range rights {
			if err := checkCancel(ctx); err != nil {
				return err
			}
			if li == ri && lg.set.Min() >= rg.set.Min() {
				continue
			}
			if lg.set.Intersects(rg.set) {
				continue
			}
			if !allowCross && !d.graph.connected(lg.set, rg.set) {
				continue
			}
			target := d.groupOf(level, lg.set.Union(rg.set), n)
			if err := d.joinGroups(target, lg, rg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *DPv2Orderer) joinGroups(target, lg, rg *dpGroup) error {
	preds := d.graph.joinPredicates(lg.set, rg.set)
	for _, la := range lg.alts.Sorted() {
		for _, ra := range rg.alts.Sorted() {
			plan, rows, err := d.buildPair(la.Plan, ra.Plan, la.Rows, ra.Rows, preds)
			if err != nil {
				return err
			}
			target.alts.Offer(Alternative{
				Plan: plan,
				Rows: rows,
				Cost: rows + la.Cost + ra.Cost,
			})
		}
	}
	return nil
}
