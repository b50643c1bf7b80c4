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
	"sync/atomic"

	"github.com/petermattis/goid"
)

// Owner marks a value as exclusively used by one goroutine at a time.
// It never blocks: a second goroutine entering is reported, not queued.
type Owner struct {
	owner atomic.Int64
	depth atomic.Int64
}

// Enter claims the owner for the calling goroutine. It returns the id of
// the goroutine currently holding it and false if that is another one.
// Re-entry from the holding goroutine is allowed.
func (o *Owner) Enter() (int64, bool) {
	rid := goid.Get()
	if o.owner.CompareAndSwap(0, rid) {
		o.depth.Store(1)
		return rid, true
	}
	cur := o.owner.Load()
	if cur == rid {
		o.depth.Add(1)
		return rid, true
	}
	return cur, false
}

// Exit releases one Enter of the calling goroutine.
func (o *Owner) Exit() {
	rid := goid.Get()
	if o.owner.Load() != rid {
		panic("exit of an owner held by another goroutine")
	}
	if o.depth.Add(-1) == 0 {
		o.owner.Store(0)
	}
}

// Held reports whether some goroutine currently holds the owner.
func (o *Owner) Held() bool {
	return o.owner.Load() != 0
}
