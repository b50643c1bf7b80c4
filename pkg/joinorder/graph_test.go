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
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinorder/pkg/util"
)

func TestNewGraph(t *testing.T) {
	arena, plans := newMockArena(10, 20, 30, 40)
	ab := arena.pred(0.1, 0, 1)
	bcd := arena.pred(0.1, 1, 2, 3)
	local := arena.pred(0.5, 2)
	constant := arena.constPred(0.5)

	g := mustGraph(t, arena, plans)
	require.Equal(t, 4, g.NumComponents())
	require.Equal(t, 4, g.NumEdges())
	assert.True(t, g.Universe().Equals(util.RangeSet(4)))
	for i := 0; i < 4; i++ {
		assert.True(t, g.Component(i).Cover.Equals(util.SingletonSet(i)))
		assert.Equal(t, plans[i], g.Component(i).Plan)
	}
	assert.Equal(t, "{0,1}", g.Edge(0).Cover.String())
	assert.Equal(t, "{1,2,3}", g.Edge(1).Cover.String())
	assert.Equal(t, "{2}", g.Edge(2).Cover.String())
	assert.True(t, g.Edge(3).Cover.Empty())

	assert.Equal(t, []ScalarRef{local}, g.localPredicates(2))
	assert.Empty(t, g.localPredicates(0))
	assert.Equal(t, []ScalarRef{constant}, g.residualPredicates())

	a, b := util.MakeIntSet(0), util.MakeIntSet(1)
	assert.True(t, g.connected(a, b))
	assert.False(t, g.connected(a, util.MakeIntSet(2)))
	// the hyperedge needs all three leaves
	assert.False(t, g.connected(b, util.MakeIntSet(2)))
	assert.True(t, g.connected(util.MakeIntSet(0, 1), util.MakeIntSet(2, 3)))
	assert.Equal(t, []ScalarRef{bcd}, g.joinPredicates(util.MakeIntSet(0, 1), util.MakeIntSet(2, 3)))
	assert.Equal(t, []ScalarRef{ab}, g.joinPredicates(a, b))
	assert.Empty(t, g.joinPredicates(a, util.MakeIntSet(2)))
}

func TestGraphConnectedParts(t *testing.T) {
	arena, plans := newMockArena(1, 1, 1, 1, 1)
	arena.pred(0.1, 0, 3)
	arena.pred(0.1, 1, 4)
	arena.pred(0.1, 2)
	g := mustGraph(t, arena, plans)

	parts := g.connectedParts(g.Universe())
	require.Len(t, parts, 3)
	assert.Equal(t, "{0,3}", parts[0].String())
	assert.Equal(t, "{1,4}", parts[1].String())
	assert.Equal(t, "{2}", parts[2].String())

	// an edge leaving the subset does not link it
	parts = g.connectedParts(util.MakeIntSet(0, 1, 4))
	require.Len(t, parts, 2)
	assert.Equal(t, "{0}", parts[0].String())
	assert.Equal(t, "{1,4}", parts[1].String())
}

func TestNewGraphCollaboratorError(t *testing.T) {
	boom := errors.New("boom")
	arena, plans := chainABC()
	arena.failUsed = boom
	_, err := NewGraph(arena, plans, arena.allPreds())
	require.Error(t, err)
	assert.Equal(t, boom, err)

	_, err = NewGraph(arena, []PlanRef{plans[0], 99}, nil)
	require.Error(t, err)
}

func TestGraphString(t *testing.T) {
	arena, plans := chainABC()
	g := mustGraph(t, arena, plans)
	s := g.String()
	assert.Contains(t, s, "JoinGraph:")
	assert.Contains(t, s, "components (3)")
	assert.Contains(t, s, "edges (2)")
	assert.Contains(t, s, "cover {1,2}")
}

func TestEmptyGraph(t *testing.T) {
	arena, _ := newMockArena()
	g, err := NewGraph(arena, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.NumComponents())
	assert.True(t, g.Universe().Empty())
}
