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
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviszhen/joinorder/pkg/util"
)

// bruteForceBushy is the cheapest cost over every tree whose subtrees are
// connected and joined on an edge.
func bruteForceBushy(g *Graph, arena *mockArena, set util.IntSet) float64 {
	members := set.Ordered()
	if len(members) == 1 {
		return 0
	}
	best := math.Inf(1)
	forEachSplit(members, func(left, right util.IntSet) {
		if len(g.connectedParts(left)) != 1 || len(g.connectedParts(right)) != 1 {
			return
		}
		if !g.connected(left, right) {
			return
		}
		c := arena.setRows(set) + bruteForceBushy(g, arena, left) + bruteForceBushy(g, arena, right)
		best = math.Min(best, c)
	})
	return best
}

func TestDPv2Chain(t *testing.T) {
	arena, plans := chainABC()
	g := mustGraph(t, arena, plans)
	plan, alts, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).ExpandWithTopK(context.Background())
	require.NoError(t, err)
	requireValidTree(t, arena, plan, 3)
	assert.Equal(t, "(C J (A J B))", arena.shape(plan))

	// the cross product of A and C is never built
	require.Len(t, alts, 2)
	assert.InDelta(t, 10100, alts[0].Cost, 1e-6)
	assert.InDelta(t, 11000, alts[1].Cost, 1e-6)
	for _, alt := range alts {
		assert.Equal(t, 0, arena.count(alt.Plan, mockCross))
	}
}

func TestDPv2Bushy(t *testing.T) {
	arena, plans := newMockArena(1000, 10, 10, 1000)
	arena.pred(0.001, 0, 1)
	arena.pred(0.5, 1, 2)
	arena.pred(0.001, 2, 3)
	g := mustGraph(t, arena, plans)

	plan, alts, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).ExpandWithTopK(context.Background())
	require.NoError(t, err)
	requireValidTree(t, arena, plan, 4)
	root := arena.nodes[plan]
	require.Equal(t, mockJoin, root.op)
	assert.Equal(t, mockJoin, arena.nodes[root.children[0]].op)
	assert.Equal(t, mockJoin, arena.nodes[root.children[1]].op)
	assert.InDelta(t, 10+10+arena.setRows(g.Universe()), alts[0].Cost, 1e-6)
}

func TestDPv2MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(1234))
	for round := 0; round < 40; round++ {
		n := 2 + r.Intn(5)
		arena, plans := randomGraph(r, n)
		g := mustGraph(t, arena, plans)
		cfg := DefaultConfig()
		cfg.AllowBushy = true
		plan, alts, err := NewDPv2Orderer(g, arena, arena, cfg).ExpandWithTopK(context.Background())
		require.NoError(t, err)
		requireValidTree(t, arena, plan, n)
		require.NotEmpty(t, alts)
		assert.LessOrEqual(t, len(alts), int(cfg.TopK))
		assert.InEpsilon(t, bruteForceBushy(g, arena, g.Universe()), alts[0].Cost, 1e-9, "round %d", round)
		for _, alt := range alts {
			requireValidTree(t, arena, alt.Plan, n)
		}
	}
}

func TestDPv2CrossFill(t *testing.T) {
	arena, plans := newMockArena(10, 20, 30, 40)
	arena.pred(0.1, 0, 1)
	arena.pred(0.1, 2, 3)
	g := mustGraph(t, arena, plans)
	plan, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).Expand(context.Background())
	require.NoError(t, err)
	requireValidTree(t, arena, plan, 4)
	assert.Equal(t, 1, arena.count(plan, mockCross))
}

func TestDPv2DisconnectedPair(t *testing.T) {
	arena, plans := newMockArena(5, 7)
	g := mustGraph(t, arena, plans)
	plan, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).Expand(context.Background())
	require.NoError(t, err)
	node := arena.nodes[plan]
	assert.Equal(t, mockCross, node.op)
	assert.Empty(t, node.preds)
}

func TestDPv2SingleAndEmpty(t *testing.T) {
	arena, plans := newMockArena(3)
	local := arena.pred(0.5, 0)
	g := mustGraph(t, arena, plans)
	plan, alts, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).ExpandWithTopK(context.Background())
	require.NoError(t, err)
	require.Len(t, alts, 1)
	assert.Equal(t, mockSelect, arena.nodes[plan].op)
	assert.Equal(t, []ScalarRef{local}, arena.nodes[plan].preds)

	empty, _ := newMockArena()
	g = mustGraph(t, empty, nil)
	plan, err = NewDPv2Orderer(g, empty, empty, DefaultConfig()).Expand(context.Background())
	require.NoError(t, err)
	assert.Equal(t, InvalidPlan, plan)
}

func TestDPv2Cancelled(t *testing.T) {
	arena, plans := chainABC()
	g := mustGraph(t, arena, plans)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDPv2Orderer(g, arena, arena, DefaultConfig()).Expand(ctx)
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
}
