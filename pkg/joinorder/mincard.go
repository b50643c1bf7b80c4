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

// MinCardOrderer grows a join tree from nothing, always committing the
// combination with the lowest estimated cardinality. Cross products are
// taken as soon as they are the cheapest option.
type MinCardOrderer struct {
	baseOrderer
}

func NewMinCardOrderer(graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) *MinCardOrderer {
	return &MinCardOrderer{
		baseOrderer: newBaseOrderer(graph, builder, oracle, cfg),
	}
}

func (mc *MinCardOrderer) Expand(ctx context.Context) (PlanRef, error) {
	exit, err := mc.enter()
	if err != nil {
		return InvalidPlan, err
	}
	defer exit()

	m := newMarks(mc.graph)
	acc := emptyAccumulator()
	var accRows float64
	for m.unusedComps > 0 {
		best, err := mc.growStep(ctx, m, acc, false)
		if err != nil {
			return InvalidPlan, err
		}
		m.commit(best)
		acc, accRows = best.comp, best.rows
	}
	plan, err := mc.finish(m, acc)
	if err != nil {
		return InvalidPlan, err
	}
	util.Debug("min cardinality join order",
		zap.Int("components", mc.graph.NumComponents()),
		zap.Float64("rows", accRows))
	return plan, nil
}
