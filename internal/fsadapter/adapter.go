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

// Package fsadapter implements the FUSE adapter (component F): the
// filesystem callback surface that stitches the session pool, property
// codec, stat cache, file cache, and directory refresh engine together
// under path-keyed, null-path-aware semantics, per spec.md §4.F.
//
// This package owns no kernel-facing types. It is driven by
// internal/fuseserver, which bridges bazil.org/fuse callbacks onto the
// methods here and is the only place this package's errors are turned into
// kernel errnos (through errs.ToErrno).
package fsadapter

import (
	"sync"

	"github.com/kf6nux/fusedav/internal/clock"
	"github.com/kf6nux/fusedav/internal/davproto"
	"github.com/kf6nux/fusedav/internal/dirrefresh"
	"github.com/kf6nux/fusedav/internal/filecache"
	"github.com/kf6nux/fusedav/internal/logger"
	"github.com/kf6nux/fusedav/internal/session"
	"github.com/kf6nux/fusedav/internal/statcache"
)

// sIFDIR/sIFREG duplicate golang.org/x/sys/unix's mode bits locally so this
// package can reason about Record.Mode without importing unix purely for
// two bitmask constants; internal/errs is the only package that actually
// constructs a unix.Errno.
const (
	sIFDIR = 0040000
	sIFREG = 0100000
)

// Record is the module's StatRecord, re-exported from davproto.
type Record = davproto.Record

// DirEntry is one entry returned by ReadDir, including the synthetic "."
// and ".." entries readdir always leads with.
type DirEntry struct {
	Name   string
	Record Record
}

// Config bundles the adapter's fixed behavior knobs, sourced from spec.md §6
// ("Environment / config (consumed, not specified here)").
type Config struct {
	BaseURL               string
	Uid                   uint32
	Gid                   uint32
	Umask                 uint32
	RefreshDirForFileStat bool
}

// Adapter is the path-keyed FUSE adapter core (component F).
//
// Dependencies
type Adapter struct {
	stat    *statcache.Cache
	files   *filecache.Cache
	refresh *dirrefresh.Engine
	pool    *session.Pool
	clock   clock.Clock
	log     *logger.Logger

	// Constant data
	cfg Config

	// handlesMu guards handles, the registry of live Handles keyed by the
	// path they were opened under. Unlink consults it to null out every
	// Handle still open on a path it has just removed, so a later
	// release/sync on that handle can't resurrect the file with a stale PUT.
	handlesMu sync.Mutex
	handles   map[string]map[*Handle]struct{}
}

// New returns an Adapter wiring the four subsystem packages together under
// cfg's behavior knobs.
func New(stat *statcache.Cache, files *filecache.Cache, refresh *dirrefresh.Engine, pool *session.Pool, clk clock.Clock, log *logger.Logger, cfg Config) *Adapter {
	return &Adapter{
		stat:    stat,
		files:   files,
		refresh: refresh,
		pool:    pool,
		clock:   clk,
		log:     log,
		cfg:     cfg,
		handles: make(map[string]map[*Handle]struct{}),
	}
}

// registerHandle records h as open under p, so a later Unlink(p) can find it.
func (a *Adapter) registerHandle(p string, h *Handle) {
	a.handlesMu.Lock()
	defer a.handlesMu.Unlock()
	set := a.handles[p]
	if set == nil {
		set = make(map[*Handle]struct{})
		a.handles[p] = set
	}
	set[h] = struct{}{}
}

// unregisterHandle drops h from p's registry entry, e.g. at Release.
func (a *Adapter) unregisterHandle(p string, h *Handle) {
	a.handlesMu.Lock()
	defer a.handlesMu.Unlock()
	set := a.handles[p]
	if set == nil {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(a.handles, p)
	}
}

// nullHandles clears the path on every Handle still open under p and drops
// p's registry entry. Called after a successful Unlink so read/write/flush/
// release on those handles fall back to null-path, local-fd-only semantics
// instead of resurrecting the deleted file via a later PUT.
func (a *Adapter) nullHandles(p string) {
	a.handlesMu.Lock()
	set := a.handles[p]
	delete(a.handles, p)
	a.handlesMu.Unlock()

	for h := range set {
		h.clearPath()
	}
}

// newRecord builds a freshly-stamped record for a locally-originated
// mutation (mknod, mkdir, open-with-trunc, create, write, ftruncate,
// utimens), per spec.md §3's StatRecord lifecycle.
func (a *Adapter) newRecord(isDir bool, perm uint32, size int64) Record {
	now := a.clock.Now()

	var mode uint32
	nlink := uint32(1)
	if isDir {
		mode = sIFDIR | (perm &^ a.cfg.Umask)
		nlink = 2
	} else {
		mode = sIFREG | (perm &^ a.cfg.Umask)
	}

	return Record{
		Mode:    mode,
		Nlink:   nlink,
		Uid:     a.cfg.Uid,
		Gid:     a.cfg.Gid,
		Size:    size,
		Blocks:  (size + 511) / 512,
		Atime:   now,
		Mtime:   now,
		Ctime:   now,
		Updated: now,
	}
}

func isDirMode(mode uint32) bool { return mode&sIFDIR != 0 }

// parentOf returns the canonical parent directory of p, matching
// statcache's own path arithmetic (spec.md §9: "parent is computed by path
// arithmetic").
func parentOf(p string) string {
	if p == "/" {
		return "/"
	}
	i := len(p) - 1
	for i > 0 && p[i] == '/' {
		i--
	}
	trimmed := p[:i+1]
	j := len(trimmed) - 1
	for j >= 0 && trimmed[j] != '/' {
		j--
	}
	if j <= 0 {
		return "/"
	}
	return trimmed[:j]
}
