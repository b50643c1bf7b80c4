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
	"github.com/cockroachdb/errors"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/util"
)

// ColumnInfo locates a memo column id in the catalog.
type ColumnInfo struct {
	Table *CatalogTable
	Alias string
	Idx   int
}

// Memo is the arena of one query. Operators and scalars are addressed by
// index; handing out an index never invalidates an older one.
type Memo struct {
	ops     []*LogicalOperator
	scalars []*Expr
	columns []ColumnInfo
}

var _ joinorder.PlanBuilder = (*Memo)(nil)

func NewMemo() *Memo {
	return &Memo{}
}

func (m *Memo) add(op *LogicalOperator) *LogicalOperator {
	op.Id = joinorder.PlanRef(len(m.ops))
	m.ops = append(m.ops, op)
	return op
}

func (m *Memo) Op(p joinorder.PlanRef) (*LogicalOperator, error) {
	if p < 0 || int(p) >= len(m.ops) {
		return nil, errors.Newf("invalid plan handle %d", p)
	}
	return m.ops[p], nil
}

func (m *Memo) NumOps() int {
	return len(m.ops)
}

func (m *Memo) Scalar(s joinorder.ScalarRef) (*Expr, error) {
	if s < 0 || int(s) >= len(m.scalars) {
		return nil, errors.Newf("invalid scalar handle %d", s)
	}
	return m.scalars[s], nil
}

func (m *Memo) AddScalar(e *Expr) joinorder.ScalarRef {
	m.scalars = append(m.scalars, e)
	return joinorder.ScalarRef(len(m.scalars) - 1)
}

func (m *Memo) Column(id int) (ColumnInfo, error) {
	if id < 0 || id >= len(m.columns) {
		return ColumnInfo{}, errors.Newf("invalid column id %d", id)
	}
	return m.columns[id], nil
}

// Scan adds a scan of table under alias and gives each of its columns a
// fresh id.
func (m *Memo) Scan(table *CatalogTable, alias string) *LogicalOperator {
	op := &LogicalOperator{
		Typ:   LOT_Scan,
		Table: table,
		Alias: alias,
	}
	for i := range table.Columns {
		op.outputs.Add(len(m.columns))
		m.columns = append(m.columns, ColumnInfo{
			Table: table,
			Alias: alias,
			Idx:   i,
		})
	}
	return m.add(op)
}

// ColumnId returns the id of the column at idx of the scan op.
func (m *Memo) ColumnId(scan *LogicalOperator, idx int) int {
	return scan.outputs.Ordered()[idx]
}

func (m *Memo) Filter(child *LogicalOperator, filters []*Expr) *LogicalOperator {
	return m.add(&LogicalOperator{
		Typ:      LOT_Filter,
		Children: []*LogicalOperator{child},
		Filters:  filters,
		outputs:  child.outputs,
	})
}

func (m *Memo) Join(typ LOT_JoinType, children []*LogicalOperator, onConds []*Expr) *LogicalOperator {
	outputs := util.IntSet{}
	for _, child := range children {
		outputs = outputs.Union(child.outputs)
	}
	return m.add(&LogicalOperator{
		Typ:      LOT_JOIN,
		JoinTyp:  typ,
		Children: children,
		OnConds:  onConds,
		outputs:  outputs,
	})
}

func (m *Memo) scalars2Exprs(conjuncts []joinorder.ScalarRef) ([]*Expr, error) {
	ret := make([]*Expr, 0, len(conjuncts))
	for _, s := range conjuncts {
		e, err := m.Scalar(s)
		if err != nil {
			return nil, err
		}
		ret = append(ret, e)
	}
	return ret, nil
}

func (m *Memo) plans2Ops(plans []joinorder.PlanRef) ([]*LogicalOperator, error) {
	ret := make([]*LogicalOperator, 0, len(plans))
	for _, p := range plans {
		op, err := m.Op(p)
		if err != nil {
			return nil, err
		}
		ret = append(ret, op)
	}
	return ret, nil
}

func (m *Memo) OutputColumns(p joinorder.PlanRef) (util.IntSet, error) {
	if err := util.Inject(util.FAULTS_SCOPE_OPTIMIZE, util.FaultOutputColumns); err != nil {
		return util.IntSet{}, err
	}
	op, err := m.Op(p)
	if err != nil {
		return util.IntSet{}, err
	}
	return op.outputs, nil
}

func (m *Memo) UsedColumns(s joinorder.ScalarRef) (util.IntSet, error) {
	e, err := m.Scalar(s)
	if err != nil {
		return util.IntSet{}, err
	}
	set := util.IntSet{}
	collectColRefs(e, &set)
	return set, nil
}

func (m *Memo) BuildInnerJoin(left, right joinorder.PlanRef, conjuncts []joinorder.ScalarRef) (joinorder.PlanRef, error) {
	if err := util.Inject(util.FAULTS_SCOPE_OPTIMIZE, util.FaultBuildJoin); err != nil {
		return joinorder.InvalidPlan, err
	}
	children, err := m.plans2Ops([]joinorder.PlanRef{left, right})
	if err != nil {
		return joinorder.InvalidPlan, err
	}
	conds, err := m.scalars2Exprs(conjuncts)
	if err != nil {
		return joinorder.InvalidPlan, err
	}
	return m.Join(LOT_JoinTypeInner, children, conds).Id, nil
}

func (m *Memo) BuildSelect(child joinorder.PlanRef, conjuncts []joinorder.ScalarRef) (joinorder.PlanRef, error) {
	op, err := m.Op(child)
	if err != nil {
		return joinorder.InvalidPlan, err
	}
	filters, err := m.scalars2Exprs(conjuncts)
	if err != nil {
		return joinorder.InvalidPlan, err
	}
	return m.Filter(op, filters).Id, nil
}

func (m *Memo) BuildCross(children []joinorder.PlanRef) (joinorder.PlanRef, error) {
	if len(children) < 2 {
		return joinorder.InvalidPlan, errors.Newf("cross product of %d inputs", len(children))
	}
	ops, err := m.plans2Ops(children)
	if err != nil {
		return joinorder.InvalidPlan, err
	}
	return m.Join(LOT_JoinTypeCross, ops, nil).Id, nil
}
