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

	"github.com/cockroachdb/errors"

	"github.com/daviszhen/joinorder/pkg/util"
)

// Orderer computes one join tree for a graph.
type Orderer interface {
	Expand(ctx context.Context) (PlanRef, error)
}

// TopKOrderer also ranks the cheapest full join orders it met.
type TopKOrderer interface {
	Orderer
	ExpandWithTopK(ctx context.Context) (PlanRef, []Alternative, error)
}

type baseOrderer struct {
	graph   *Graph
	builder PlanBuilder
	oracle  CostOracle
	cfg     Config
	owner   util.Owner
}

func newBaseOrderer(graph *Graph, builder PlanBuilder, oracle CostOracle, cfg Config) baseOrderer {
	return baseOrderer{
		graph:   graph,
		builder: builder,
		oracle:  oracle,
		cfg:     cfg.normalize(),
	}
}

func (o *baseOrderer) enter() (func(), error) {
	holder, ok := o.owner.Enter()
	if !ok {
		return nil, errors.Mark(
			errors.Newf("orderer is held by goroutine %d", holder),
			ErrConcurrentUse)
	}
	return o.owner.Exit, nil
}

// withResidual applies the predicates that reference no leaf on top of plan.
func (o *baseOrderer) withResidual(plan PlanRef) (PlanRef, error) {
	preds := o.graph.residualPredicates()
	if len(preds) == 0 || !plan.Valid() {
		return plan, nil
	}
	return o.builder.BuildSelect(plan, preds)
}

// leafPlan is the plan of leaf i with its single-leaf predicates applied.
func (o *baseOrderer) leafPlan(i int) (PlanRef, float64, error) {
	plan := o.graph.comps[i].Plan
	var err error
	if preds := o.graph.localPredicates(i); len(preds) > 0 {
		plan, err = o.builder.BuildSelect(plan, preds)
		if err != nil {
			return InvalidPlan, 0, err
		}
	}
	rows, err := o.oracle.EstimateRows(plan)
	if err != nil {
		return InvalidPlan, 0, err
	}
	return plan, rows, nil
}

// buildPair joins two sub-plans on preds, the larger input on the left.
func (o *baseOrderer) buildPair(left, right PlanRef, leftRows, rightRows float64, preds []ScalarRef) (PlanRef, float64, error) {
	if leftRows < rightRows {
		left, right = right, left
	}
	var plan PlanRef
	var err error
	if len(preds) == 0 {
		plan, err = o.builder.BuildCross([]PlanRef{left, right})
	} else {
		plan, err = o.builder.BuildInnerJoin(left, right, preds)
	}
	if err != nil {
		return InvalidPlan, 0, err
	}
	rows, err := o.oracle.EstimateRows(plan)
	if err != nil {
		return InvalidPlan, 0, err
	}
	return plan, rows, nil
}
