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
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// levelStore implements Store on top of a single on-disk goleveldb database.
type levelStore struct {
	db        *leveldb.DB
	readOpts  *opt.ReadOptions
	writeOpts *opt.WriteOptions
}

// Open opens (creating if absent) a goleveldb database at dir for use as the
// backing store for the stat cache and file cache.
func Open(dir string) (Store, error) {
	opts := &opt.Options{
		Filter: filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(dir, opts)
	if err != nil {
		return nil, err
	}

	return &levelStore{
		db:       db,
		readOpts: &opt.ReadOptions{},
		// Fsyncing every write would serialize every stat/file cache update
		// behind disk latency; on an unclean shutdown the cache is rebuilt
		// from the remote server anyway, so durability is not required here.
		writeOpts: &opt.WriteOptions{Sync: false},
	}, nil
}

func (s *levelStore) Get(key []byte) ([]byte, error) {
	val, err := s.db.Get(key, s.readOpts)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *levelStore) Put(key, value []byte) error {
	return s.db.Put(key, value, s.writeOpts)
}

func (s *levelStore) Delete(key []byte) error {
	return s.db.Delete(key, s.writeOpts)
}

func (s *levelStore) PrefixScan(prefix []byte) Iterator {
	return &levelIterator{it: s.db.NewIterator(util.BytesPrefix(prefix), s.readOpts)}
}

func (s *levelStore) WriteBatch(b *Batch) error {
	lb := new(leveldb.Batch)
	for _, op := range b.ops {
		if op.del {
			lb.Delete(op.key)
		} else {
			lb.Put(op.key, op.value)
		}
	}
	return s.db.Write(lb, s.writeOpts)
}

func (s *levelStore) Close() error {
	return s.db.Close()
}

type levelIterator struct {
	it iterator.Iterator
}

func (i *levelIterator) Next() bool       { return i.it.Next() }
func (i *levelIterator) Key() []byte      { return i.it.Key() }
func (i *levelIterator) Value() []byte    { return i.it.Value() }
func (i *levelIterator) Err() error       { return i.it.Error() }
func (i *levelIterator) Close() error     { i.it.Release(); return nil }
