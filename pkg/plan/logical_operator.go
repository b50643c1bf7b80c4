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
	"strings"

	"github.com/huandu/go-clone"
	"github.com/xlab/treeprint"

	"github.com/daviszhen/joinorder/pkg/joinorder"
	"github.com/daviszhen/joinorder/pkg/util"
)

type LOT int

const (
	LOT_Scan LOT = iota
	LOT_Filter
	LOT_JOIN
)

func (lt LOT) String() string {
	switch lt {
	case LOT_Scan:
		return "Scan"
	case LOT_Filter:
		return "Filter"
	case LOT_JOIN:
		return "Join"
	default:
		panic(fmt.Sprintf("usp %d", lt))
	}
}

type LOT_JoinType int

const (
	LOT_JoinTypeInner LOT_JoinType = iota
	LOT_JoinTypeCross
)

func (lojt LOT_JoinType) String() string {
	switch lojt {
	case LOT_JoinTypeInner:
		return "inner"
	case LOT_JoinTypeCross:
		return "cross"
	default:
		panic(fmt.Sprintf("usp %d", lojt))
	}
}

// LogicalOperator is one node of the memo arena. Nodes are never changed
// after creation; reordering builds new nodes over the old inputs.
type LogicalOperator struct {
	Id       joinorder.PlanRef
	Typ      LOT
	JoinTyp  LOT_JoinType
	Children []*LogicalOperator
	Table    *CatalogTable // for scan
	Alias    string        // for scan
	Filters  []*Expr       // for filter
	OnConds  []*Expr       // for inner join
	outputs  util.IntSet
}

// Outputs is the set of column ids the operator produces.
func (lo *LogicalOperator) Outputs() util.IntSet {
	return lo.outputs
}

func (lo *LogicalOperator) Print(tree treeprint.Tree) {
	if lo == nil {
		return
	}
	switch lo.Typ {
	case LOT_Scan:
		tree = tree.AddBranch("Scan:")
		tableInfo := lo.Table.Table
		if len(lo.Alias) != 0 && lo.Alias != lo.Table.Table {
			tableInfo = fmt.Sprintf("%v %v", lo.Table.Table, lo.Alias)
		}
		tree.AddMetaNode("table", tableInfo)
	case LOT_Filter:
		tree = tree.AddBranch("Filter:")
		node := tree.AddMetaBranch("exprs", "")
		listExprsToTree(node, lo.Filters)
	case LOT_JOIN:
		tree = tree.AddBranch(fmt.Sprintf("Join (%v):", lo.JoinTyp))
		if len(lo.OnConds) > 0 {
			node := tree.AddMetaBranch("On", "")
			listExprsToTree(node, lo.OnConds)
		}
	default:
		panic(fmt.Sprintf("usp %v", lo.Typ))
	}
	for _, child := range lo.Children {
		child.Print(tree)
	}
}

func (lo *LogicalOperator) String() string {
	tree := treeprint.NewWithRoot("LogicalPlan:")
	lo.Print(tree)
	return tree.String()
}

type ET int

const (
	ET_Column ET = iota
	ET_IConst
	ET_SConst
	ET_Func
)

type ET_SubTyp int

const (
	ET_Invalid ET_SubTyp = iota
	ET_Equal
	ET_NotEqual
	ET_Less
	ET_LessEqual
	ET_Greater
	ET_GreaterEqual
)

func (et ET_SubTyp) String() string {
	switch et {
	case ET_Equal:
		return "="
	case ET_NotEqual:
		return "<>"
	case ET_Less:
		return "<"
	case ET_LessEqual:
		return "<="
	case ET_Greater:
		return ">"
	case ET_GreaterEqual:
		return ">="
	default:
		panic(fmt.Sprintf("usp %d", et))
	}
}

func opSubTyp(op string) (ET_SubTyp, bool) {
	switch op {
	case "=":
		return ET_Equal, true
	case "<>", "!=":
		return ET_NotEqual, true
	case "<":
		return ET_Less, true
	case "<=":
		return ET_LessEqual, true
	case ">":
		return ET_Greater, true
	case ">=":
		return ET_GreaterEqual, true
	default:
		return ET_Invalid, false
	}
}

type Expr struct {
	Typ      ET
	SubTyp   ET_SubTyp
	Children []*Expr
	Table    string // table alias
	Name     string // column
	ColRef   int    // column id in the memo
	Ivalue   int64
	Svalue   string
}

func (e *Expr) copy() *Expr {
	if e == nil {
		return nil
	}
	return clone.Clone(e).(*Expr)
}

func copyExprs(exprs ...*Expr) []*Expr {
	ret := make([]*Expr, 0, len(exprs))
	for _, expr := range exprs {
		ret = append(ret, expr.copy())
	}
	return ret
}

// collectColRefs adds the column ids referenced by e to set.
func collectColRefs(e *Expr, set *util.IntSet) {
	if e == nil {
		return
	}
	if e.Typ == ET_Column {
		set.Add(e.ColRef)
	}
	for _, child := range e.Children {
		collectColRefs(child, set)
	}
}

func (e *Expr) String() string {
	if e == nil {
		return ""
	}
	switch e.Typ {
	case ET_Column:
		return fmt.Sprintf("%s.%s", e.Table, e.Name)
	case ET_IConst:
		return strconv.FormatInt(e.Ivalue, 10)
	case ET_SConst:
		return "'" + strings.ReplaceAll(e.Svalue, "'", "''") + "'"
	case ET_Func:
		return fmt.Sprintf("%s %s %s", e.Children[0], e.SubTyp, e.Children[1])
	default:
		panic(fmt.Sprintf("usp %d", e.Typ))
	}
}

func listExprsToTree(tree treeprint.Tree, exprs []*Expr) {
	for i, e := range exprs {
		tree.AddMetaNode(fmt.Sprintf("%d", i), e.String())
	}
}
