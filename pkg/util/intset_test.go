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

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntSetBasic(t *testing.T) {
	var s IntSet
	assert.True(t, s.Empty())
	assert.Equal(t, -1, s.Min())
	s.Add(3)
	s.Add(1)
	s.Add(70)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{1, 3, 70}, s.Ordered())
	assert.Equal(t, 1, s.Min())
	assert.True(t, s.Contains(70))
	assert.False(t, s.Contains(2))
	assert.Equal(t, "{1,3,70}", s.String())

	s.Remove(1)
	assert.Equal(t, 3, s.Min())
}

func TestIntSetAlgebra(t *testing.T) {
	a := MakeIntSet(0, 1, 2)
	b := MakeIntSet(2, 3)
	assert.Equal(t, []int{0, 1, 2, 3}, a.Union(b).Ordered())
	assert.Equal(t, []int{2}, a.Intersection(b).Ordered())
	assert.Equal(t, []int{0, 1}, a.Difference(b).Ordered())
	assert.True(t, a.Intersects(b))
	assert.False(t, MakeIntSet(0).Intersects(MakeIntSet(1)))
	assert.True(t, MakeIntSet(1, 2).SubsetOf(a))
	assert.False(t, b.SubsetOf(a))
	assert.True(t, IntSet{}.SubsetOf(IntSet{}))
	assert.True(t, IntSet{}.SubsetOf(a))
	assert.False(t, a.SubsetOf(IntSet{}))

	// operations leave their inputs alone
	assert.Equal(t, []int{0, 1, 2}, a.Ordered())
	assert.Equal(t, []int{2, 3}, b.Ordered())
}

func TestIntSetKey(t *testing.T) {
	a := MakeIntSet(5, 1, 64)
	b := MakeIntSet(64, 5, 1)
	// a set that grew larger and then shrank back
	c := MakeIntSet(1, 5, 64, 200)
	c.Remove(200)
	require.Equal(t, a.Key(), b.Key())
	require.Equal(t, a.Key(), c.Key())
	assert.True(t, a.Equals(c))
	assert.NotEqual(t, a.Key(), MakeIntSet(1, 5).Key())
	assert.Equal(t, "", IntSet{}.Key())

	memo := map[string]int{}
	memo[a.Key()] = 1
	memo[c.Key()] = 2
	assert.Len(t, memo, 1)
}

func TestRangeSet(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, RangeSet(4).Ordered())
	assert.True(t, RangeSet(0).Empty())
	assert.True(t, SingletonSet(7).Equals(MakeIntSet(7)))
}
