// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import "sync"

// RoundRobin cycles through a fixed set of items, one per Get call, wrapping
// back to the first item after the last. It is safe for concurrent use.
type RoundRobin[T any] struct {
	mu    sync.Mutex
	items []T
	next  int
}

// New returns a RoundRobin over items. Get on an empty RoundRobin always
// reports !ok.
func New[T any](items []T) *RoundRobin[T] {
	cp := make([]T, len(items))
	copy(cp, items)
	return &RoundRobin[T]{items: cp}
}

// Get returns the next item in rotation.
func (r *RoundRobin[T]) Get() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if len(r.items) == 0 {
		return zero, false
	}

	v := r.items[r.next]
	r.next = (r.next + 1) % len(r.items)
	return v, true
}

// Len reports how many items are in rotation.
func (r *RoundRobin[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
