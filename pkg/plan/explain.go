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
	"fmt"
	"strconv"

	dec "github.com/govalues/decimal"
	"github.com/xlab/treeprint"

	"github.com/daviszhen/joinorder/pkg/joinorder"
)

// PlanCost is the sum of the estimated rows of every join in the plan.
func PlanCost(est *CardinalityEstimator, op *LogicalOperator) (float64, error) {
	cost := 0.0
	for _, child := range op.Children {
		childCost, err := PlanCost(est, child)
		if err != nil {
			return 0, err
		}
		cost += childCost
	}
	if op.Typ == LOT_JOIN {
		rows, err := est.EstimateRows(op.Id)
		if err != nil {
			return 0, err
		}
		cost += rows
	}
	return cost, nil
}

// Explain renders the plan with the estimated rows and cost of each node.
func Explain(est *CardinalityEstimator, root *LogicalOperator) (string, error) {
	tree := treeprint.NewWithRoot("JoinOrder:")
	if err := explainOp(est, tree, root); err != nil {
		return "", err
	}
	return tree.String(), nil
}

func explainOp(est *CardinalityEstimator, tree treeprint.Tree, op *LogicalOperator) error {
	rows, err := est.EstimateRows(op.Id)
	if err != nil {
		return err
	}
	cost, err := PlanCost(est, op)
	if err != nil {
		return err
	}
	stats := fmt.Sprintf("rows=%s cost=%s", formatFloat(rows), formatFloat(cost))
	switch op.Typ {
	case LOT_Scan:
		name := op.Table.Table
		if op.Alias != op.Table.Table {
			name = fmt.Sprintf("%s %s", op.Table.Table, op.Alias)
		}
		tree = tree.AddMetaBranch(stats, fmt.Sprintf("Scan %s", name))
	case LOT_Filter:
		tree = tree.AddMetaBranch(stats, "Filter")
		listExprsToTree(tree, op.Filters)
	case LOT_JOIN:
		tree = tree.AddMetaBranch(stats, fmt.Sprintf("Join (%v)", op.JoinTyp))
		listExprsToTree(tree, op.OnConds)
	default:
		panic(fmt.Sprintf("usp %v", op.Typ))
	}
	for _, child := range op.Children {
		if err := explainOp(est, tree, child); err != nil {
			return err
		}
	}
	return nil
}

// ExplainAlternatives prints one line per ranked join order.
func ExplainAlternatives(alts []joinorder.Alternative) []string {
	ret := make([]string, 0, len(alts))
	for i, alt := range alts {
		ret = append(ret, fmt.Sprintf("#%d plan=%d rows=%s cost=%s",
			i, alt.Plan, formatFloat(alt.Rows), formatFloat(alt.Cost)))
	}
	return ret
}

// formatFloat prints f with at most two decimals.
func formatFloat(f float64) string {
	d, err := dec.NewFromFloat64(f)
	if err != nil {
		return strconv.FormatFloat(f, 'g', 6, 64)
	}
	return d.Round(2).Trim(0).String()
}
