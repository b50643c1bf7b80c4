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
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// IntSet is a set of small non-negative integers. It is used for relation
// covers and column sets. The zero value is an empty set. Operations never
// mutate their receiver unless the name says so.
type IntSet struct {
	bs *bitset.BitSet
}

func MakeIntSet(vals ...int) IntSet {
	s := IntSet{}
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// SingletonSet returns {v}.
func SingletonSet(v int) IntSet {
	return MakeIntSet(v)
}

// RangeSet returns {0, 1, ..., n-1}.
func RangeSet(n int) IntSet {
	s := IntSet{}
	for i := 0; i < n; i++ {
		s.Add(i)
	}
	return s
}

// Add inserts v in place.
func (s *IntSet) Add(v int) {
	if v < 0 {
		panic(fmt.Sprintf("negative set member %d", v))
	}
	if s.bs == nil {
		s.bs = bitset.New(uint(v + 1))
	}
	s.bs.Set(uint(v))
}

// Remove deletes v in place.
func (s *IntSet) Remove(v int) {
	if s.bs == nil || v < 0 {
		return
	}
	s.bs.Clear(uint(v))
}

func (s IntSet) Contains(v int) bool {
	if s.bs == nil || v < 0 {
		return false
	}
	return s.bs.Test(uint(v))
}

func (s IntSet) Len() int {
	if s.bs == nil {
		return 0
	}
	return int(s.bs.Count())
}

func (s IntSet) Empty() bool {
	return s.bs == nil || s.bs.None()
}

func (s IntSet) Copy() IntSet {
	if s.bs == nil {
		return IntSet{}
	}
	return IntSet{bs: s.bs.Clone()}
}

func (s IntSet) Union(o IntSet) IntSet {
	switch {
	case s.bs == nil:
		return o.Copy()
	case o.bs == nil:
		return s.Copy()
	}
	return IntSet{bs: s.bs.Union(o.bs)}
}

func (s IntSet) Intersection(o IntSet) IntSet {
	if s.bs == nil || o.bs == nil {
		return IntSet{}
	}
	return IntSet{bs: s.bs.Intersection(o.bs)}
}

func (s IntSet) Difference(o IntSet) IntSet {
	if s.bs == nil {
		return IntSet{}
	}
	if o.bs == nil {
		return s.Copy()
	}
	return IntSet{bs: s.bs.Difference(o.bs)}
}

func (s IntSet) Intersects(o IntSet) bool {
	if s.bs == nil || o.bs == nil {
		return false
	}
	return s.bs.IntersectionCardinality(o.bs) > 0
}

// SubsetOf reports whether every member of s is in o.
func (s IntSet) SubsetOf(o IntSet) bool {
	if s.Empty() {
		return true
	}
	if o.bs == nil {
		return false
	}
	return o.bs.IsSuperSet(s.bs)
}

func (s IntSet) Equals(o IntSet) bool {
	return s.SubsetOf(o) && o.SubsetOf(s)
}

// Min returns the smallest member, or -1 for the empty set.
func (s IntSet) Min() int {
	if s.bs == nil {
		return -1
	}
	v, ok := s.bs.NextSet(0)
	if !ok {
		return -1
	}
	return int(v)
}

// ForEach calls fn for every member in ascending order.
func (s IntSet) ForEach(fn func(v int)) {
	if s.bs == nil {
		return
	}
	for i, ok := s.bs.NextSet(0); ok; i, ok = s.bs.NextSet(i + 1) {
		fn(int(i))
	}
}

// Ordered returns the members in ascending order.
func (s IntSet) Ordered() []int {
	ret := make([]int, 0, s.Len())
	s.ForEach(func(v int) {
		ret = append(ret, v)
	})
	return ret
}

// Key returns a string that is equal for equal sets. It is independent of
// insertion order and of the capacity of the underlying bitset.
func (s IntSet) Key() string {
	if s.Empty() {
		return ""
	}
	words := make([]uint64, 0, 1)
	s.ForEach(func(v int) {
		w := v / 64
		for len(words) <= w {
			words = append(words, 0)
		}
		words[w] |= 1 << uint(v%64)
	})
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[i*8:], w)
	}
	return string(buf)
}

func (s IntSet) String() string {
	sb := strings.Builder{}
	sb.WriteByte('{')
	i := 0
	s.ForEach(func(v int) {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf("%d", v))
		i++
	})
	sb.WriteByte('}')
	return sb.String()
}
