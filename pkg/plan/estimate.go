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
	"sync"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/util"
)

// defaultSelectivity is used for conjuncts other than equality.
const defaultSelectivity = 0.2

// CardinalityEstimator derives row counts from catalog statistics. The rows
// of a plan are computed once and cached, so repeated calls agree.
type CardinalityEstimator struct {
	memo  *Memo
	lock  sync.Mutex
	cache map[joinorder.PlanRef]float64
}

var _ joinorder.CostOracle = (*CardinalityEstimator)(nil)

func NewCardinalityEstimator(memo *Memo) *CardinalityEstimator {
	return &CardinalityEstimator{
		memo:  memo,
		cache: make(map[joinorder.PlanRef]float64),
	}
}

func (est *CardinalityEstimator) EstimateRows(p joinorder.PlanRef) (float64, error) {
	if err := util.Inject(util.FAULTS_SCOPE_OPTIMIZE, util.FaultEstimateRows); err != nil {
		return 0, err
	}
	est.lock.Lock()
	defer est.lock.Unlock()
	op, err := est.memo.Op(p)
	if err != nil {
		return 0, err
	}
	return est.estimate(op)
}

func (est *CardinalityEstimator) estimate(op *LogicalOperator) (float64, error) {
	if rows, has := est.cache[op.Id]; has {
		return rows, nil
	}
	var rows float64
	switch op.Typ {
	case LOT_Scan:
		rows = op.Table.Stats.RowCount
	case LOT_Filter:
		child, err := est.estimate(op.Children[0])
		if err != nil {
			return 0, err
		}
		sel, err := est.selectivity(op.Filters)
		if err != nil {
			return 0, err
		}
		rows = child * sel
	case LOT_JOIN:
		rows = 1
		for _, child := range op.Children {
			childRows, err := est.estimate(child)
			if err != nil {
				return 0, err
			}
			rows *= childRows
		}
		sel, err := est.selectivity(op.OnConds)
		if err != nil {
			return 0, err
		}
		rows *= sel
	default:
		panic(fmt.Sprintf("usp %v", op.Typ))
	}
	est.cache[op.Id] = rows
	return rows, nil
}

// selectivity multiplies the selectivities of the conjuncts:
// col = col is 1/max(ndv), col = const is 1/ndv.
func (est *CardinalityEstimator) selectivity(conds []*Expr) (float64, error) {
	sel := 1.0
	for _, cond := range conds {
		s, err := est.condSelectivity(cond)
		if err != nil {
			return 0, err
		}
		sel *= s
	}
	return sel, nil
}

func (est *CardinalityEstimator) condSelectivity(cond *Expr) (float64, error) {
	if cond.Typ != ET_Func || cond.SubTyp != ET_Equal {
		return defaultSelectivity, nil
	}
	left, right := cond.Children[0], cond.Children[1]
	switch {
	case left.Typ == ET_Column && right.Typ == ET_Column:
		lndv, err := est.ndv(left)
		if err != nil {
			return 0, err
		}
		rndv, err := est.ndv(right)
		if err != nil {
			return 0, err
		}
		return 1 / max(lndv, rndv), nil
	case left.Typ == ET_Column:
		ndv, err := est.ndv(left)
		if err != nil {
			return 0, err
		}
		return 1 / ndv, nil
	case right.Typ == ET_Column:
		ndv, err := est.ndv(right)
		if err != nil {
			return 0, err
		}
		return 1 / ndv, nil
	default:
		return defaultSelectivity, nil
	}
}

func (est *CardinalityEstimator) ndv(col *Expr) (float64, error) {
	info, err := est.memo.Column(col.ColRef)
	if err != nil {
		return 0, err
	}
	return info.Table.ndv(info.Idx), nil
}
