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

// ChooseStrategy picks the orderer for n components: exhaustive search up to
// the DP size limit, greedy growth above it.
func ChooseStrategy(cfg Config, n int) Strategy {
	cfg = cfg.normalize()
	if n <= int(cfg.DPSizeLimit) {
		if cfg.AllowBushy {
			return StrategyDPv2
		}
		return StrategyDP
	}
	return StrategyGreedy
}

func NewOrderer(strategy Strategy, graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) Orderer {
	switch strategy {
	case StrategyDP:
		return NewDPOrderer(graph, builder, oracle, cfg)
	case StrategyDPv2:
		return NewDPv2Orderer(graph, builder, oracle, cfg)
	case StrategyGreedy:
		return NewGreedyOrderer(graph, builder, oracle, cfg)
	case StrategyMinCard:
		return NewMinCardOrderer(graph, builder, oracle, cfg)
	default:
		return NewOrderer(ChooseStrategy(cfg, graph.NumComponents()), graph, builder, oracle, cfg)
	}
}

// Outcome is the result of ordering one n-ary join.
type Outcome struct {
	// Strategy is the orderer that produced Plan. It differs from the
	// requested one after a fallback.
	Strategy Strategy
	Plan     PlanRef
	// TopK ranks full join orders by ascending cost; DP strategies only.
	TopK  []Alternative
	Graph *Graph
}

// Optimize orders the join of plans on the conjuncts preds. Exhaustive
// strategies that run out of resources are retried with Greedy.
func Optimize(
	ctx context.Context,
	cfg Config,
	builder PlanBuilder,
	oracle CostOracle,
	plans []PlanRef,
	preds []ScalarRef,
	strategy Strategy,
) (*Outcome, error) {
	graph, err := NewGraph(builder, plans, preds)
	if err != nil {
		return nil, err
	}
	if strategy == StrategyAuto {
		strategy = ChooseStrategy(cfg, graph.NumComponents())
	}
	out := &Outcome{
		Strategy: strategy,
		Graph:    graph,
	}
	orderer := NewOrderer(strategy, graph, builder, oracle, cfg)
	if ranked, ok := orderer.(TopKOrderer); ok {
		out.Plan, out.TopK, err = ranked.ExpandWithTopK(ctx)
	} else {
		out.Plan, err = orderer.Expand(ctx)
	}
	if err != nil && IsResourceExhausted(err) {
		util.Warn("join order search falls back to greedy",
			zap.String("strategy", strategy.String()),
			zap.Int("components", graph.NumComponents()),
			zap.Error(err))
		out.Strategy = StrategyGreedy
		out.TopK = nil
		out.Plan, err = NewGreedyOrderer(graph, builder, oracle, cfg).Expand(ctx)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
