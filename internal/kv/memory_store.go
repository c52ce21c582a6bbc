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

package kv

import (
	"bytes"
	"sort"
	"sync"
)

// memoryStore is an in-process Store used by unit tests for the stat cache
// and file cache so they do not need a real goleveldb file on disk.
type memoryStore struct {
	mu   sync.RWMutex
	keys [][]byte // sorted
	vals [][]byte
}

// NewMemoryStore returns a Store backed by an in-memory sorted slice.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (m *memoryStore) find(key []byte) (int, bool) {
	i := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], key) >= 0
	})
	return i, i < len(m.keys) && bytes.Equal(m.keys[i], key)
}

func (m *memoryStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.find(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.vals[i]...), nil
}

func (m *memoryStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(key, value)
	return nil
}

// put must be called with m.mu held.
func (m *memoryStore) put(key, value []byte) {
	k := append([]byte(nil), key...)
	v := append([]byte(nil), value...)

	i, ok := m.find(k)
	if ok {
		m.vals[i] = v
		return
	}

	m.keys = append(m.keys, nil)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k

	m.vals = append(m.vals, nil)
	copy(m.vals[i+1:], m.vals[i:])
	m.vals[i] = v
}

func (m *memoryStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delete(key)
	return nil
}

// delete must be called with m.mu held.
func (m *memoryStore) delete(key []byte) {
	i, ok := m.find(key)
	if !ok {
		return
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
}

func (m *memoryStore) PrefixScan(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := sort.Search(len(m.keys), func(i int) bool {
		return bytes.Compare(m.keys[i], prefix) >= 0
	})

	var snapKeys, snapVals [][]byte
	for i := start; i < len(m.keys); i++ {
		if !bytes.HasPrefix(m.keys[i], prefix) {
			break
		}
		snapKeys = append(snapKeys, m.keys[i])
		snapVals = append(snapVals, m.vals[i])
	}

	return &memoryIterator{keys: snapKeys, vals: snapVals, idx: -1}
}

func (m *memoryStore) WriteBatch(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range b.ops {
		if op.del {
			m.delete(op.key)
		} else {
			m.put(op.key, op.value)
		}
	}
	return nil
}

func (m *memoryStore) Close() error { return nil }

type memoryIterator struct {
	keys, vals [][]byte
	idx        int
}

func (it *memoryIterator) Next() bool {
	it.idx++
	return it.idx < len(it.keys)
}

func (it *memoryIterator) Key() []byte   { return it.keys[it.idx] }
func (it *memoryIterator) Value() []byte { return it.vals[it.idx] }
func (it *memoryIterator) Err() error    { return nil }
func (it *memoryIterator) Close() error  { return nil }
