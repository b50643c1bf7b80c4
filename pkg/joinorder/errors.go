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
)

var (
	// ErrCancelled marks searches stopped by their context. The caller may
	// retry with a cheaper strategy; it says nothing about plan correctness.
	ErrCancelled = errors.New("join order search cancelled")
	// ErrResourceExhausted marks searches that tripped the recursion guard.
	ErrResourceExhausted = errors.New("join order search exhausted its resources")
	// ErrConcurrentUse is returned when an orderer is expanded from two
	// goroutines at once.
	ErrConcurrentUse = errors.New("orderer used concurrently")
)

func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Mark(errors.Wrap(err, "join order search"), ErrCancelled)
	}
	return nil
}

func depthExceeded(depth, limit int) error {
	return errors.Mark(
		errors.Newf("join order recursion depth %d exceeds limit %d", depth, limit),
		ErrResourceExhausted)
}

// IsCancelled reports whether err stems from a cancelled search.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// IsResourceExhausted reports whether err stems from a tripped guard.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted)
}
