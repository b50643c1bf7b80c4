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
	"github.com/tidwall/btree"
)

// Alternative is one ranked join order.
type Alternative struct {
	Plan PlanRef
	Rows float64
	Cost float64
}

type topKItem struct {
	alt Alternative
	seq uint64
}

func topKLess(a, b topKItem) bool {
	if a.alt.Cost != b.alt.Cost {
		return a.alt.Cost < b.alt.Cost
	}
	return a.seq < b.seq
}

// TopK keeps at most k alternatives. Once full, a new alternative replaces
// the worst retained one only if it is strictly cheaper.
type TopK struct {
	k     int
	seq   uint64
	items *btree.BTreeG[topKItem]
}

func NewTopK(k int) *TopK {
	if k <= 0 {
		k = 1
	}
	return &TopK{
		k:     k,
		items: btree.NewBTreeG[topKItem](topKLess),
	}
}

// Offer inserts alt if it fits. It reports whether alt was retained.
func (t *TopK) Offer(alt Alternative) bool {
	item := topKItem{alt: alt, seq: t.seq}
	t.seq++
	if t.items.Len() < t.k {
		t.items.Set(item)
		return true
	}
	worst, ok := t.items.Max()
	if !ok || !(alt.Cost < worst.alt.Cost) {
		return false
	}
	t.items.Delete(worst)
	t.items.Set(item)
	return true
}

func (t *TopK) Len() int {
	return t.items.Len()
}

func (t *TopK) Cap() int {
	return t.k
}

// Best returns the cheapest alternative.
func (t *TopK) Best() (Alternative, bool) {
	item, ok := t.items.Min()
	return item.alt, ok
}

// Worst returns the most expensive retained alternative.
func (t *TopK) Worst() (Alternative, bool) {
	item, ok := t.items.Max()
	return item.alt, ok
}

// Sorted returns the alternatives by ascending cost; equal costs keep their
// insertion order.
func (t *TopK) Sorted() []Alternative {
	ret := make([]Alternative, 0, t.items.Len())
	t.items.Scan(func(item topKItem) bool {
		ret = append(ret, item.alt)
		return true
	})
	return ret
}
