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

// Package kv defines the ordered key/value contract the stat cache and file
// cache persist through, and a github.com/syndtr/goleveldb-backed
// implementation of it. Both caches address the store through this
// narrow interface so they never depend on goleveldb's API directly.
package kv

import "errors"

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is an ordered key/value map supporting atomic single-key writes and
// prefix scans, matching spec.md's treatment of the backing store as "an
// ordered map with prefix scans and atomic single-key writes."
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Put writes value at key, replacing any existing value. The write is
	// atomic with respect to concurrent Get/PrefixScan calls on the same key.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// PrefixScan returns an Iterator over every key with the given prefix, in
	// ascending lexicographic order.
	PrefixScan(prefix []byte) Iterator

	// WriteBatch atomically applies every mutation in b.
	WriteBatch(b *Batch) error

	// Close releases the underlying database handle.
	Close() error
}

// Iterator walks a PrefixScan's result set. Callers must call Close when
// done, and must not call Key/Value before a successful Next.
type Iterator interface {
	// Next advances the iterator and reports whether an entry is available.
	Next() bool

	// Key returns the current entry's key. Valid only after Next returns true.
	Key() []byte

	// Value returns the current entry's value. Valid only after Next returns
	// true.
	Value() []byte

	// Err returns any error encountered during iteration.
	Err() error

	// Close releases the iterator's resources.
	Close() error
}

// Batch accumulates a set of Put/Delete mutations to apply atomically via
// Store.WriteBatch. The zero value is ready to use.
type Batch struct {
	ops []batchOp
}

type batchOp struct {
	del   bool
	key   []byte
	value []byte
}

// Put queues a write of value at key.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

// Delete queues removal of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{del: true, key: key})
}

// Len reports how many mutations are queued.
func (b *Batch) Len() int {
	return len(b.ops)
}
