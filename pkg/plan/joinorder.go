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

package plan

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/util"
)

// JoinOrderRule reorders the inner joins below a root. Scans are the
// relations of the join graph; join conditions and filters above or
// between the joins are its predicates.
type JoinOrderRule struct {
	memo      *Memo
	estimator *CardinalityEstimator
	cfg       joinorder.Config
	strategy  joinorder.Strategy
}

type JoinOrderResult struct {
	Root *LogicalOperator
	// Alternatives are the ranked full join orders, cheapest first. Only
	// the dp strategies produce them.
	Alternatives []*LogicalOperator
	Outcome      *joinorder.Outcome
}

func NewJoinOrderRule(memo *Memo, estimator *CardinalityEstimator, cfg joinorder.Config, strategy joinorder.Strategy) *JoinOrderRule {
	return &JoinOrderRule{
		memo:      memo,
		estimator: estimator,
		cfg:       cfg,
		strategy:  strategy,
	}
}

func (rule *JoinOrderRule) Apply(ctx context.Context, root *LogicalOperator) (*JoinOrderResult, error) {
	relations, filters := extractJoinRelations(root, nil, nil)
	plans := make([]joinorder.PlanRef, 0, len(relations))
	for _, rel := range relations {
		plans = append(plans, rel.Id)
	}
	preds := make([]joinorder.ScalarRef, 0, len(filters))
	for _, filter := range copyExprs(filters...) {
		preds = append(preds, rule.memo.AddScalar(filter))
	}

	outcome, err := joinorder.Optimize(ctx, rule.cfg, rule.memo, rule.estimator, plans, preds, rule.strategy)
	if err != nil {
		return nil, err
	}
	ret := &JoinOrderResult{Outcome: outcome}
	ret.Root, err = rule.memo.Op(outcome.Plan)
	if err != nil {
		return nil, err
	}
	for _, alt := range outcome.TopK {
		op, err := rule.memo.Op(alt.Plan)
		if err != nil {
			return nil, err
		}
		ret.Alternatives = append(ret.Alternatives, op)
	}
	util.Debug("join order rule",
		zap.String("strategy", outcome.Strategy.String()),
		zap.Int("relations", len(relations)),
		zap.Int("filters", len(filters)),
		zap.Int("alternatives", len(ret.Alternatives)))
	return ret, nil
}

// extractJoinRelations flattens the inner and cross joins under root.
func extractJoinRelations(root *LogicalOperator, relations []*LogicalOperator, filters []*Expr) ([]*LogicalOperator, []*Expr) {
	switch root.Typ {
	case LOT_Filter:
		filters = append(filters, root.Filters...)
		return extractJoinRelations(root.Children[0], relations, filters)
	case LOT_JOIN:
		if root.JoinTyp == LOT_JoinTypeInner {
			filters = append(filters, root.OnConds...)
		}
		for _, child := range root.Children {
			relations, filters = extractJoinRelations(child, relations, filters)
		}
		return relations, filters
	case LOT_Scan:
		return append(relations, root), filters
	default:
		panic(fmt.Sprintf("usp operator type %v", root.Typ))
	}
}
