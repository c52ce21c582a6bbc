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

package fsadapter

import (
	"io"
	"os"
	"sync"

	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/filecache"
	"github.com/kf6nux/fusedav/internal/statcache"
)

// Handle is an open session onto a path. Path is cleared to "" when the
// file backing it is unlinked while still open, per spec.md §4.F's
// null-path operations: read/write/flush/release/fsync/ftruncate must then
// operate purely on Session's local fd and never contact the server,
// except release's best-effort sync when the path is still known.
type Handle struct {
	mu      sync.Mutex
	path    string
	regPath string // path this handle was registered under at Open/Create time
	session *filecache.OpenSession
}

// Path returns the handle's current path, or "" once unlinked while open.
func (h *Handle) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}

func (h *Handle) clearPath() {
	h.mu.Lock()
	h.path = ""
	h.mu.Unlock()
}

// Open implements spec.md §4.F's open: O_WRONLY is upgraded to O_RDWR by
// the file cache; O_TRUNC additionally resets the stat record's size to 0.
func (a *Adapter) Open(p string, flags int) (*Handle, error) {
	sess, err := a.files.Open(p, flags, "", func() (io.ReadCloser, string, error) {
		return a.getRemoteBody(p)
	})
	if err != nil {
		return nil, err
	}

	if flags&os.O_TRUNC != 0 {
		if rec, status := a.stat.Get(p, true); status == statcache.StatusHit && rec.Mode != 0 {
			rec.Size = 0
			rec.Blocks = 0
			a.stat.Set(p, rec)
		}
	}

	h := &Handle{path: p, regPath: p, session: sess}
	a.registerHandle(p, h)
	return h, nil
}

// Read reads from h's local fd.
func (a *Adapter) Read(h *Handle, buf []byte, off int64) (int, error) {
	return a.files.Read(h.session, buf, off)
}

// Write writes to h's local fd, then refreshes the stat record's size from
// the fd's true extent, per spec.md §4.F and §8 testable property 4.
func (a *Adapter) Write(h *Handle, buf []byte, off int64) (int, error) {
	n, err := a.files.Write(h.session, buf, off)
	if err != nil {
		return n, err
	}

	path := h.Path()

	// Mirrors the original's post-write sync call. With doPut=false this only
	// reports a previously latched error (ignored here); it neither uploads
	// nor changes the entry's modified flag.
	a.files.Sync(h.session, false, a.pool.InSaint(), a.putFunc(path))

	if path != "" {
		a.refreshSizeFromFD(h, path)
	}
	return n, nil
}

// Truncate (ftruncate) truncates h's local fd and refreshes the cached size.
func (a *Adapter) Truncate(h *Handle, size int64) error {
	if err := a.files.Truncate(h.session, size); err != nil {
		return err
	}
	if path := h.Path(); path != "" {
		a.refreshSizeFromFD(h, path)
	}
	return nil
}

// TruncatePath implements setattr's size-change case, where the kernel gives
// a path rather than an already-open handle (e.g. truncate(2) on a closed
// file). It opens, truncates, and releases (triggering the normal PUT sync)
// in one step.
func (a *Adapter) TruncatePath(p string, size int64) error {
	h, err := a.Open(p, os.O_RDWR)
	if err != nil {
		return err
	}
	if err := a.Truncate(h, size); err != nil {
		a.Release(h)
		return err
	}
	return a.Release(h)
}

func (a *Adapter) refreshSizeFromFD(h *Handle, path string) {
	info, err := h.session.FD().Stat()
	if err != nil {
		return
	}
	rec, status := a.stat.Get(path, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return
	}
	rec.Size = info.Size()
	rec.Blocks = (rec.Size + 511) / 512
	a.stat.Set(path, rec)
}

// FGetAttr implements fgetattr for a possibly-null path: when the path is
// known it defers to GetAttr; otherwise it synthesizes attributes from the
// local fd alone, since the remote path no longer resolves.
func (a *Adapter) FGetAttr(h *Handle) (Record, error) {
	if path := h.Path(); path != "" {
		return a.GetAttr(path)
	}

	info, err := h.session.FD().Stat()
	if err != nil {
		return Record{}, errs.New(errs.IOError, "fsadapter.FGetAttr", err)
	}

	now := a.clock.Now()
	return Record{
		Mode:    sIFREG | (0666 &^ a.cfg.Umask),
		Nlink:   1,
		Uid:     a.cfg.Uid,
		Gid:     a.cfg.Gid,
		Size:    info.Size(),
		Blocks:  (info.Size() + 511) / 512,
		Atime:   now,
		Mtime:   info.ModTime(),
		Ctime:   info.ModTime(),
		Updated: now,
	}, nil
}

// Flush implements flush: a best-effort sync that never moves content to
// forensic haven (only Release's terminal sync does that). fuseserver's Fsync
// callback does not call it.
func (a *Adapter) Flush(h *Handle) error {
	path := h.Path()
	if path == "" {
		return nil
	}
	return a.files.Sync(h.session, true, a.pool.InSaint(), a.putFunc(path))
}

// Release implements spec.md §4.F's release: syncs (PUT) if the path is
// still known, updates the stat record on success, and routes to forensic
// haven on failure once the last session for the entry has closed. A path
// nulled out by a concurrent Unlink (which also drops h.regPath's registry
// entry) is treated the same as release-of-a-null-path: no PUT, no
// resurrection.
func (a *Adapter) Release(h *Handle) error {
	path := h.Path()

	var syncErr error
	if path != "" {
		syncErr = a.files.Sync(h.session, true, a.pool.InSaint(), a.putFunc(path))
	}

	releasedLast, hadError := a.files.Close(h.session)
	a.unregisterHandle(h.regPath, h)

	if path != "" {
		if syncErr == nil {
			a.refreshSizeFromFD(h, path)
		} else if releasedLast && hadError {
			a.files.ForensicHaven(path)
			a.stat.Delete(path)
		}
	}

	return syncErr
}
