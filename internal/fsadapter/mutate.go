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
	"os"
	"time"

	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/statcache"
)

// Unlink implements spec.md §4.F's unlink. doUnlink gates whether a remote
// DELETE is issued; release's best-effort cache purge after a failed sync
// calls this with doUnlink=false.
func (a *Adapter) Unlink(p string, doUnlink bool) error {
	rec, status := a.stat.Get(p, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return errs.New(errs.NotFound, "fsadapter.Unlink", nil)
	}
	if isDirMode(rec.Mode) {
		return errs.New(errs.IsDir, "fsadapter.Unlink", nil)
	}

	if doUnlink {
		if err := a.deleteRemote(p, false); err != nil {
			return err
		}
	}

	if err := a.files.Delete(p); err != nil {
		return err
	}
	err := a.stat.Delete(p)
	a.nullHandles(p)
	return err
}

// Rmdir implements spec.md §4.F's rmdir.
func (a *Adapter) Rmdir(p string) error {
	rec, status := a.stat.Get(p, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return errs.New(errs.NotFound, "fsadapter.Rmdir", nil)
	}
	if !isDirMode(rec.Mode) {
		return errs.New(errs.NotDir, "fsadapter.Rmdir", nil)
	}
	if a.pool.InSaint() {
		return errs.New(errs.NetworkDown, "fsadapter.Rmdir", nil)
	}
	if a.stat.DirHasChild(p) {
		return errs.New(errs.NotEmpty, "fsadapter.Rmdir", nil)
	}

	if err := a.deleteRemote(p, true); err != nil {
		return err
	}
	return a.stat.Delete(p)
}

// Mkdir implements spec.md §4.F's mkdir.
func (a *Adapter) Mkdir(p string, perm uint32) error {
	if a.pool.InSaint() {
		return errs.New(errs.NetworkDown, "fsadapter.Mkdir", nil)
	}
	if err := a.mkcolRemote(p); err != nil {
		return err
	}
	return a.stat.Set(p, a.newRecord(true, perm, 4096))
}

// Rename implements spec.md §4.F's rename, including the 404-tolerant
// "never uploaded" path of §8 testable property 8.
func (a *Adapter) Rename(from, to string) error {
	rec, status := a.stat.Get(from, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return errs.New(errs.NotFound, "fsadapter.Rename", nil)
	}
	isDir := isDirMode(rec.Mode)

	if _, err := a.moveRemote(from, to, isDir); err != nil {
		return err
	}

	if err := a.stat.Set(to, rec); err != nil {
		return err
	}
	if err := a.stat.Delete(from); err != nil {
		return err
	}
	if err := a.files.Move(from, to); err != nil {
		a.files.Delete(to)
		return err
	}
	return nil
}

// Utimens implements spec.md §4.F's utimens: a pure cache mutation, since
// the server no longer drives mtimes. ctime is set equal to mtime.
func (a *Adapter) Utimens(p string, atime, mtime time.Time) error {
	rec, status := a.stat.Get(p, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return errs.New(errs.NotFound, "fsadapter.Utimens", nil)
	}

	rec.Atime = atime
	rec.Mtime = mtime
	rec.Ctime = mtime
	return a.stat.Set(p, rec)
}

// Chmod is a no-op: spec.md's Non-goals exclude ownership/permission changes.
func (a *Adapter) Chmod(p string, mode uint32) error { return nil }

// Chown is a no-op: spec.md's Non-goals exclude ownership changes.
func (a *Adapter) Chown(p string, uid, gid uint32) error { return nil }

// Create implements spec.md §4.F's open-for-create path: a zero-length
// local file plus a synthetic stat record, created without contacting the
// server (the first write/release is what actually PUTs content).
func (a *Adapter) Create(p string, perm uint32) (*Handle, error) {
	h, err := a.Open(p, os.O_CREATE|os.O_TRUNC|os.O_RDWR)
	if err != nil {
		return nil, err
	}
	if err := a.stat.Set(p, a.newRecord(false, perm, 0)); err != nil {
		return nil, err
	}
	return h, nil
}
