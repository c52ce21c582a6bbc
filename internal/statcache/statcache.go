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

// Package statcache implements the stat cache (component C): persistent
// per-path attribute records, per-directory refresh freshness, and the
// process-wide monotonic generation counter used to garbage-collect entries
// a full directory refresh no longer observed.
package statcache

import (
	"bytes"
	"encoding/gob"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kf6nux/fusedav/internal/clock"
	"github.com/kf6nux/fusedav/internal/davproto"
	"github.com/kf6nux/fusedav/internal/kv"
	"github.com/kf6nux/fusedav/internal/logger"
)

const (
	recordPrefix    = "r:"
	freshnessPrefix = "f:"
)

// GetStatus classifies the outcome of Get.
type GetStatus int

const (
	// StatusHit means a record was found and is (or the caller asked to
	// treat it as) fresh.
	StatusHit GetStatus = iota
	// StatusAbsent means no record exists for the path at all.
	StatusAbsent
	// StatusExpired means the record's containing directory has not been
	// refreshed within the negative TTL; the caller must refresh before
	// trusting any answer, including a negative one.
	StatusExpired
)

// EnumerateFilter controls whether Enumerate consults directory freshness.
type EnumerateFilter int

const (
	// FilterStrict requires the directory to have been refreshed within
	// POSITIVE_TTL.
	FilterStrict EnumerateFilter = iota
	// FilterLoose returns whatever children are cached regardless of
	// freshness.
	FilterLoose
)

// EnumerateStatus classifies the outcome of Enumerate.
type EnumerateStatus int

const (
	// EnumerateOK means cb was invoked for every live child.
	EnumerateOK EnumerateStatus = iota
	// EnumerateOldData means the directory's freshness has lapsed; the
	// caller must refresh before relying on the listing.
	EnumerateOldData
	// EnumerateNoData means the directory has no cached children at all.
	EnumerateNoData
)

// Record is the module's StatRecord, re-exported from davproto since the
// property codec already defines its exact shape.
type Record = davproto.Record

// Cache is the stat cache.
//
// Dependencies
type Cache struct {
	store kv.Store
	clock clock.Clock
	log   *logger.Logger

	// Constant data
	negativeTTL time.Duration
	positiveTTL time.Duration

	// Mutable state
	generation atomic.Uint64
}

// New returns a Cache backed by store. negativeTTL and positiveTTL implement
// STAT_CACHE_NEGATIVE_TTL and POSITIVE_TTL from spec.md §3/§4.C.
func New(store kv.Store, clk clock.Clock, log *logger.Logger, negativeTTL, positiveTTL time.Duration) *Cache {
	return &Cache{store: store, clock: clk, log: log, negativeTTL: negativeTTL, positiveTTL: positiveTTL}
}

// LocalGeneration returns the current process-wide generation counter.
func (c *Cache) LocalGeneration() uint64 {
	return c.generation.Load()
}

type storedRecord struct {
	Record     Record
	Generation uint64
}

func encodeRecord(sr storedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (storedRecord, error) {
	var sr storedRecord
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&sr)
	return sr, err
}

// parentOf returns the canonical parent directory of path.
func parentOf(p string) string {
	if p == "/" {
		return "/"
	}
	dir := path.Dir(strings.TrimSuffix(p, "/"))
	if dir == "." {
		return "/"
	}
	return dir
}

// childPrefix returns the key prefix identifying paths that are immediate
// candidates under dir (descendants at any depth; callers filter for
// directness where needed).
func childPrefix(dir string) string {
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}

func (c *Cache) freshnessKey(dir string) []byte {
	return []byte(freshnessPrefix + dir)
}

func (c *Cache) recordKey(p string) []byte {
	return []byte(recordPrefix + p)
}

// GetFreshness returns the directory's updated_children timestamp, or the
// zero Time if it has never been refreshed.
func (c *Cache) GetFreshness(dir string) time.Time {
	data, err := c.store.Get(c.freshnessKey(dir))
	if err != nil {
		return time.Time{}
	}

	var ts int64
	if len(data) == 8 {
		ts = int64(bigEndianUint64(data))
	}
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(0, ts)
}

// UpdatedChildren sets the directory's refresh timestamp. A zero ts clears
// it (equivalent to spec.md's ts=0).
func (c *Cache) UpdatedChildren(dir string, ts time.Time) error {
	if ts.IsZero() {
		return c.store.Delete(c.freshnessKey(dir))
	}
	return c.store.Put(c.freshnessKey(dir), uint64ToBigEndian(uint64(ts.UnixNano())))
}

// Get returns the stored record for path.
func (c *Cache) Get(p string, ignoreFreshness bool) (Record, GetStatus) {
	if !ignoreFreshness {
		freshness := c.GetFreshness(parentOf(p))
		if freshness.IsZero() || c.clock.Now().Sub(freshness) > c.negativeTTL {
			return Record{}, StatusExpired
		}
	}

	data, err := c.store.Get(c.recordKey(p))
	if err != nil {
		return Record{}, StatusAbsent
	}

	sr, err := decodeRecord(data)
	if err != nil {
		c.log.Errorf("statcache: corrupt record at %s: %v", p, err)
		return Record{}, StatusAbsent
	}

	return sr.Record, StatusHit
}

// Set persists record at path, bumping LocalGeneration and stamping the
// record's generation and updated time. Sub-second parts of the record's
// times are zeroed before it is stored.
func (c *Cache) Set(p string, record Record) error {
	gen := c.generation.Add(1)
	record.Atime = record.Atime.Truncate(time.Second)
	record.Mtime = record.Mtime.Truncate(time.Second)
	record.Ctime = record.Ctime.Truncate(time.Second)
	record.Updated = c.clock.Now().Truncate(time.Second)

	data, err := encodeRecord(storedRecord{Record: record, Generation: gen})
	if err != nil {
		return err
	}
	return c.store.Put(c.recordKey(p), data)
}

// Delete removes path's record. If the record denoted a directory, its
// updated_children entry is removed too.
func (c *Cache) Delete(p string) error {
	data, err := c.store.Get(c.recordKey(p))
	isDir := false
	if err == nil {
		if sr, derr := decodeRecord(data); derr == nil {
			isDir = sr.Record.Mode&sDir != 0
		}
	}

	if err := c.store.Delete(c.recordKey(p)); err != nil {
		return err
	}

	if isDir {
		return c.UpdatedChildren(p, time.Time{})
	}
	return nil
}

const sDir = 0040000 // unix.S_IFDIR, duplicated to avoid importing unix just for a bitmask

// DirHasChild reports whether dir has at least one immediate child record.
func (c *Cache) DirHasChild(dir string) bool {
	has := false
	c.walkImmediateChildren(dir, func(childPath string, sr storedRecord) bool {
		has = true
		return false
	})
	return has
}

// Enumerate invokes cb for every immediate child of dir.
func (c *Cache) Enumerate(dir string, filter EnumerateFilter, cb func(childPath string, record Record) error) (EnumerateStatus, error) {
	if filter == FilterStrict {
		freshness := c.GetFreshness(dir)
		if freshness.IsZero() || c.clock.Now().Sub(freshness) > c.positiveTTL {
			return EnumerateOldData, nil
		}
	}

	var any bool
	var cbErr error
	c.walkImmediateChildren(dir, func(childPath string, sr storedRecord) bool {
		any = true
		if err := cb(childPath, sr.Record); err != nil {
			cbErr = err
			return false
		}
		return true
	})
	if cbErr != nil {
		return EnumerateOK, cbErr
	}

	if !any {
		return EnumerateNoData, nil
	}
	return EnumerateOK, nil
}

// walkImmediateChildren scans every record under dir and invokes fn for
// those that are direct children (no further path separator), stopping
// early if fn returns false.
func (c *Cache) walkImmediateChildren(dir string, fn func(childPath string, sr storedRecord) bool) {
	prefix := recordPrefix + childPrefix(dir)
	it := c.store.PrefixScan([]byte(prefix))
	defer it.Close()

	for it.Next() {
		key := string(it.Key())
		rest := key[len(prefix):]
		if strings.Contains(rest, "/") {
			continue
		}

		sr, err := decodeRecord(it.Value())
		if err != nil {
			continue
		}

		if !fn(key[len(recordPrefix):], sr) {
			return
		}
	}
}

// DeleteOlder removes every record under dir (at any depth) whose
// generation is less than or equal to gen, per the post-full-refresh sweep.
func (c *Cache) DeleteOlder(dir string, gen uint64) error {
	prefix := recordPrefix + childPrefix(dir)
	it := c.store.PrefixScan([]byte(prefix))

	var toDelete [][]byte
	for it.Next() {
		sr, err := decodeRecord(it.Value())
		if err != nil {
			continue
		}
		if sr.Generation <= gen {
			key := append([]byte(nil), it.Key()...)
			toDelete = append(toDelete, key)
		}
	}
	if err := it.Err(); err != nil {
		it.Close()
		return err
	}
	it.Close()

	if len(toDelete) == 0 {
		return nil
	}

	var batch kv.Batch
	for _, key := range toDelete {
		batch.Delete(key)
	}
	return c.store.WriteBatch(&batch)
}

func uint64ToBigEndian(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func bigEndianUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
