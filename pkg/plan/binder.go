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
	"strings"

	"github.com/cockroachdb/errors"
	pg_query "github.com/pganalyze/pg_query_go/v5"
)

type Binding struct {
	alias string
	scan  *LogicalOperator
}

// Binder turns the FROM and WHERE clauses of a SELECT into a tree of scans,
// joins and filters in the memo. The select list is not bound.
type Binder struct {
	catalog  *Catalog
	memo     *Memo
	bindings []*Binding
}

func NewBinder(catalog *Catalog, memo *Memo) *Binder {
	return &Binder{
		catalog: catalog,
		memo:    memo,
	}
}

func (b *Binder) BindSelect(sel *pg_query.SelectStmt) (*LogicalOperator, error) {
	if sel == nil {
		return nil, errors.New("need select statement")
	}
	if sel.GetOp() != pg_query.SetOperation_SETOP_NONE {
		return nil, errors.Newf("usp set operation %v", sel.GetOp())
	}
	root, err := b.buildTables(sel.GetFromClause())
	if err != nil {
		return nil, err
	}
	if sel.GetWhereClause() != nil {
		var conds []*Expr
		conds, err = b.bindConjuncts(sel.GetWhereClause(), conds)
		if err != nil {
			return nil, err
		}
		root = b.memo.Filter(root, conds)
	}
	return root, nil
}

func (b *Binder) buildTables(tables []*pg_query.Node) (*LogicalOperator, error) {
	if len(tables) == 0 {
		return nil, errors.New("no tables")
	}
	root, err := b.buildTable(tables[0])
	if err != nil {
		return nil, err
	}
	for _, table := range tables[1:] {
		right, err := b.buildTable(table)
		if err != nil {
			return nil, err
		}
		root = b.memo.Join(LOT_JoinTypeCross, []*LogicalOperator{root, right}, nil)
	}
	return root, nil
}

func (b *Binder) buildTable(table *pg_query.Node) (*LogicalOperator, error) {
	switch rangeNode := table.GetNode().(type) {
	case *pg_query.Node_RangeVar:
		tableAst := rangeNode.RangeVar
		tabEnt, err := b.catalog.Table(tableAst.GetRelname())
		if err != nil {
			return nil, err
		}
		alias := tabEnt.Table
		if tableAst.GetAlias() != nil {
			alias = strings.ToLower(tableAst.GetAlias().GetAliasname())
		}
		for _, bind := range b.bindings {
			if bind.alias == alias {
				return nil, errors.Newf("duplicate table alias %s", alias)
			}
		}
		scan := b.memo.Scan(tabEnt, alias)
		b.bindings = append(b.bindings, &Binding{alias: alias, scan: scan})
		return scan, nil
	case *pg_query.Node_JoinExpr:
		return b.buildJoinTable(rangeNode.JoinExpr)
	default:
		return nil, errors.Newf("usp table type %T", rangeNode)
	}
}

func (b *Binder) buildJoinTable(join *pg_query.JoinExpr) (*LogicalOperator, error) {
	if join.GetJointype() != pg_query.JoinType_JOIN_INNER {
		return nil, errors.Newf("usp join type %v", join.GetJointype())
	}
	if join.GetIsNatural() || len(join.GetUsingClause()) > 0 {
		return nil, errors.New("usp natural or using join")
	}
	left, err := b.buildTable(join.GetLarg())
	if err != nil {
		return nil, err
	}
	right, err := b.buildTable(join.GetRarg())
	if err != nil {
		return nil, err
	}
	children := []*LogicalOperator{left, right}
	if join.GetQuals() == nil {
		return b.memo.Join(LOT_JoinTypeCross, children, nil), nil
	}
	var conds []*Expr
	conds, err = b.bindConjuncts(join.GetQuals(), conds)
	if err != nil {
		return nil, err
	}
	return b.memo.Join(LOT_JoinTypeInner, children, conds), nil
}

// bindConjuncts splits expr on AND and appends the bound parts to conds.
func (b *Binder) bindConjuncts(expr *pg_query.Node, conds []*Expr) ([]*Expr, error) {
	if boolExpr := expr.GetBoolExpr(); boolExpr != nil {
		if boolExpr.GetBoolop() != pg_query.BoolExprType_AND_EXPR {
			return nil, errors.Newf("usp bool expr %v", boolExpr.GetBoolop())
		}
		var err error
		for _, arg := range boolExpr.GetArgs() {
			conds, err = b.bindConjuncts(arg, conds)
			if err != nil {
				return nil, err
			}
		}
		return conds, nil
	}
	cond, err := b.bindExpr(expr)
	if err != nil {
		return nil, err
	}
	if cond.Typ != ET_Func {
		return nil, errors.Newf("conjunct %v is not a comparison", cond)
	}
	return append(conds, cond), nil
}

func (b *Binder) bindExpr(expr *pg_query.Node) (*Expr, error) {
	switch realExpr := expr.GetNode().(type) {
	case *pg_query.Node_ColumnRef:
		return b.bindColumn(realExpr.ColumnRef)
	case *pg_query.Node_AConst:
		return b.bindAConst(realExpr.AConst)
	case *pg_query.Node_AExpr:
		return b.bindAExpr(realExpr.AExpr)
	default:
		return nil, errors.Newf("usp expr type %T", realExpr)
	}
}

func getTableColumn(expr *pg_query.ColumnRef) (string, string, error) {
	fields := expr.GetFields()
	for _, field := range fields {
		if field.GetString_() == nil {
			return "", "", errors.New("usp column reference")
		}
	}
	switch len(fields) {
	case 1:
		return "", strings.ToLower(fields[0].GetString_().GetSval()), nil
	case 2:
		return strings.ToLower(fields[0].GetString_().GetSval()),
			strings.ToLower(fields[1].GetString_().GetSval()), nil
	default:
		return "", "", errors.Newf("unexpected number of fields %d", len(fields))
	}
}

func (b *Binder) bindColumn(ref *pg_query.ColumnRef) (*Expr, error) {
	table, column, err := getTableColumn(ref)
	if err != nil {
		return nil, err
	}
	var match *Binding
	colIdx := -1
	for _, bind := range b.bindings {
		if table != "" && bind.alias != table {
			continue
		}
		idx, has := bind.scan.Table.Column2Idx[column]
		if !has {
			continue
		}
		if match != nil {
			return nil, errors.Newf("column %s is ambiguous", column)
		}
		match, colIdx = bind, idx
	}
	if match == nil {
		if table != "" {
			return nil, errors.Newf("no column %s.%s", table, column)
		}
		return nil, errors.Newf("no column %s", column)
	}
	return &Expr{
		Typ:    ET_Column,
		Table:  match.alias,
		Name:   column,
		ColRef: b.memo.ColumnId(match.scan, colIdx),
	}, nil
}

func (b *Binder) bindAConst(expr *pg_query.A_Const) (*Expr, error) {
	switch realExpr := expr.GetVal().(type) {
	case *pg_query.A_Const_Ival:
		return &Expr{
			Typ:    ET_IConst,
			Ivalue: int64(realExpr.Ival.Ival),
		}, nil
	case *pg_query.A_Const_Sval:
		return &Expr{
			Typ:    ET_SConst,
			Svalue: realExpr.Sval.Sval,
		}, nil
	default:
		return nil, errors.Newf("usp const type %T", realExpr)
	}
}

func (b *Binder) bindAExpr(expr *pg_query.A_Expr) (*Expr, error) {
	if expr.GetKind() != pg_query.A_Expr_Kind_AEXPR_OP || len(expr.GetName()) != 1 {
		return nil, errors.Newf("usp expr kind %v", expr.GetKind())
	}
	opName := expr.GetName()[0].GetString_().GetSval()
	et, ok := opSubTyp(opName)
	if !ok {
		return nil, errors.Newf("usp operator '%s'", opName)
	}
	left, err := b.bindExpr(expr.GetLexpr())
	if err != nil {
		return nil, err
	}
	right, err := b.bindExpr(expr.GetRexpr())
	if err != nil {
		return nil, err
	}
	if left.Typ == ET_Func || right.Typ == ET_Func {
		return nil, errors.Newf("nested comparison %v %s %v", left, opName, right)
	}
	return &Expr{
		Typ:      ET_Func,
		SubTyp:   et,
		Children: []*Expr{left, right},
	}, nil
}
