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
	"github.com/daviszhen/joinorder/pkg/util"
)

// PlanRef is a handle to a plan expression owned by the PlanBuilder.
// Handles are arena indices: building a node never changes the nodes it
// references.
type PlanRef int32

// ScalarRef is a handle to a scalar predicate owned by the PlanBuilder.
type ScalarRef int32

const InvalidPlan PlanRef = -1

func (p PlanRef) Valid() bool {
	return p >= 0
}

// PlanBuilder constructs plan expressions for the orderers. It also derives
// the column sets that decide which components an edge touches.
type PlanBuilder interface {
	OutputColumns(p PlanRef) (util.IntSet, error)
	UsedColumns(s ScalarRef) (util.IntSet, error)
	// BuildInnerJoin joins left and right on the conjunction of conjuncts.
	BuildInnerJoin(left, right PlanRef, conjuncts []ScalarRef) (PlanRef, error)
	// BuildSelect filters child by the conjunction of conjuncts.
	BuildSelect(child PlanRef, conjuncts []ScalarRef) (PlanRef, error)
	// BuildCross builds an unconditioned cross join of children.
	BuildCross(children []PlanRef) (PlanRef, error)
}

// CostOracle estimates row counts. Implementations cache the estimate per
// handle, so asking twice yields the same value.
type CostOracle interface {
	EstimateRows(p PlanRef) (float64, error)
}
