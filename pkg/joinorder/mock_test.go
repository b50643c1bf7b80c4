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
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinorder/pkg/util"
)

type mockOp int

const (
	mockScan mockOp = iota
	mockSelect
	mockJoin
	mockCross
)

type mockNode struct {
	op       mockOp
	leaf     int
	children []PlanRef
	preds    []ScalarRef
}

type mockPred struct {
	cols util.IntSet
	sel  float64
}

// mockArena is a PlanBuilder and CostOracle over an arena of plan nodes.
// Leaf i outputs column i. The rows of a plan are the product of its leaf
// rows and of the selectivities of the predicates applied in it.
type mockArena struct {
	leafRows []float64
	preds    []mockPred
	nodes    []mockNode

	failUsed  error
	failJoin  error
	estimates int
}

func newMockArena(rows ...float64) (*mockArena, []PlanRef) {
	arena := &mockArena{leafRows: rows}
	plans := make([]PlanRef, 0, len(rows))
	for i := range rows {
		plans = append(plans, arena.add(mockNode{op: mockScan, leaf: i}))
	}
	return arena, plans
}

func (a *mockArena) add(node mockNode) PlanRef {
	a.nodes = append(a.nodes, node)
	return PlanRef(len(a.nodes) - 1)
}

// pred adds a conjunct over the columns of leaves.
func (a *mockArena) pred(sel float64, leaves ...int) ScalarRef {
	a.preds = append(a.preds, mockPred{
		cols: util.MakeIntSet(leaves...),
		sel:  sel,
	})
	return ScalarRef(len(a.preds) - 1)
}

// constPred adds a conjunct that references no column.
func (a *mockArena) constPred(sel float64) ScalarRef {
	a.preds = append(a.preds, mockPred{sel: sel})
	return ScalarRef(len(a.preds) - 1)
}

func (a *mockArena) allPreds() []ScalarRef {
	ret := make([]ScalarRef, 0, len(a.preds))
	for i := range a.preds {
		ret = append(ret, ScalarRef(i))
	}
	return ret
}

func (a *mockArena) node(p PlanRef) (*mockNode, error) {
	if p < 0 || int(p) >= len(a.nodes) {
		return nil, errors.Newf("no plan %d", p)
	}
	return &a.nodes[p], nil
}

func (a *mockArena) OutputColumns(p PlanRef) (util.IntSet, error) {
	n, err := a.node(p)
	if err != nil {
		return util.IntSet{}, err
	}
	if n.op == mockScan {
		return util.SingletonSet(n.leaf), nil
	}
	cols := util.IntSet{}
	for _, child := range n.children {
		sub, err := a.OutputColumns(child)
		if err != nil {
			return util.IntSet{}, err
		}
		cols = cols.Union(sub)
	}
	return cols, nil
}

func (a *mockArena) UsedColumns(s ScalarRef) (util.IntSet, error) {
	if a.failUsed != nil {
		return util.IntSet{}, a.failUsed
	}
	return a.preds[s].cols, nil
}

func (a *mockArena) BuildInnerJoin(left, right PlanRef, conjuncts []ScalarRef) (PlanRef, error) {
	if a.failJoin != nil {
		return InvalidPlan, a.failJoin
	}
	return a.add(mockNode{
		op:       mockJoin,
		children: []PlanRef{left, right},
		preds:    append([]ScalarRef(nil), conjuncts...),
	}), nil
}

func (a *mockArena) BuildSelect(child PlanRef, conjuncts []ScalarRef) (PlanRef, error) {
	return a.add(mockNode{
		op:       mockSelect,
		children: []PlanRef{child},
		preds:    append([]ScalarRef(nil), conjuncts...),
	}), nil
}

func (a *mockArena) BuildCross(children []PlanRef) (PlanRef, error) {
	return a.add(mockNode{
		op:       mockCross,
		children: append([]PlanRef(nil), children...),
	}), nil
}

func (a *mockArena) EstimateRows(p PlanRef) (float64, error) {
	a.estimates++
	return a.rows(p)
}

func (a *mockArena) rows(p PlanRef) (float64, error) {
	n, err := a.node(p)
	if err != nil {
		return 0, err
	}
	if n.op == mockScan {
		return a.leafRows[n.leaf], nil
	}
	rows := 1.0
	for _, child := range n.children {
		sub, err := a.rows(child)
		if err != nil {
			return 0, err
		}
		rows *= sub
	}
	for _, pred := range n.preds {
		rows *= a.preds[pred].sel
	}
	return rows, nil
}

// setRows is the cardinality of any plan joining the leaves of set with
// every non-constant predicate inside set applied.
func (a *mockArena) setRows(set util.IntSet) float64 {
	rows := 1.0
	set.ForEach(func(v int) {
		rows *= a.leafRows[v]
	})
	for _, pred := range a.preds {
		if !pred.cols.Empty() && pred.cols.SubsetOf(set) {
			rows *= pred.sel
		}
	}
	return rows
}

func (a *mockArena) leaves(p PlanRef) []int {
	n := a.nodes[p]
	if n.op == mockScan {
		return []int{n.leaf}
	}
	var ret []int
	for _, child := range n.children {
		ret = append(ret, a.leaves(child)...)
	}
	return ret
}

func (a *mockArena) count(p PlanRef, op mockOp) int {
	n := a.nodes[p]
	cnt := 0
	if n.op == op {
		cnt++
	}
	for _, child := range n.children {
		cnt += a.count(child, op)
	}
	return cnt
}

func (a *mockArena) applied(p PlanRef, counts map[ScalarRef]int) {
	n := a.nodes[p]
	for _, pred := range n.preds {
		counts[pred]++
	}
	for _, child := range n.children {
		a.applied(child, counts)
	}
}

// shape renders a plan with leaf names A, B, ... for readable asserts.
func (a *mockArena) shape(p PlanRef) string {
	n := a.nodes[p]
	switch n.op {
	case mockScan:
		return string(rune('A' + n.leaf))
	case mockSelect:
		return a.shape(n.children[0])
	case mockJoin:
		return fmt.Sprintf("(%s J %s)", a.shape(n.children[0]), a.shape(n.children[1]))
	default:
		return fmt.Sprintf("(%s X %s)", a.shape(n.children[0]), a.shape(n.children[1]))
	}
}

// requireValidTree checks that plan joins every leaf once through n-1
// binary nodes and applies every conjunct exactly once.
func requireValidTree(t *testing.T, arena *mockArena, plan PlanRef, n int) {
	require.True(t, plan.Valid())
	leaves := arena.leaves(plan)
	sort.Ints(leaves)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	require.Equal(t, want, leaves)

	binary := arena.count(plan, mockJoin) + arena.count(plan, mockCross)
	require.Equal(t, n-1, binary)
	for _, node := range arena.nodes {
		if node.op == mockJoin || node.op == mockCross {
			require.Len(t, node.children, 2)
		}
	}

	counts := make(map[ScalarRef]int)
	arena.applied(plan, counts)
	for _, pred := range arena.allPreds() {
		require.Equal(t, 1, counts[pred], "predicate %d", pred)
	}
}

// chainABC is A(100) - B(10) - C(1000) with no edge between A and C.
func chainABC() (*mockArena, []PlanRef) {
	arena, plans := newMockArena(100, 10, 1000)
	arena.pred(0.1, 0, 1)
	arena.pred(0.1, 1, 2)
	return arena, plans
}

// randomGraph builds a connected graph of n leaves: a random spanning tree
// plus a few extra edges and some single leaf filters.
func randomGraph(r *rand.Rand, n int) (*mockArena, []PlanRef) {
	rows := make([]float64, n)
	for i := range rows {
		rows[i] = float64(1 + r.Intn(1000))
	}
	arena, plans := newMockArena(rows...)
	for i := 1; i < n; i++ {
		arena.pred(0.001+r.Float64(), r.Intn(i), i)
	}
	for e := r.Intn(n); e > 0; e-- {
		x, y := r.Intn(n), r.Intn(n)
		if x != y {
			arena.pred(0.001+r.Float64(), x, y)
		}
	}
	if r.Intn(2) == 0 {
		arena.pred(0.5, r.Intn(n))
	}
	return arena, plans
}

func mustGraph(t *testing.T, arena *mockArena, plans []PlanRef) *Graph {
	g, err := NewGraph(arena, plans, arena.allPreds())
	require.NoError(t, err)
	return g
}
