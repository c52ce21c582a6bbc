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
	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/statcache"
)

// GetAttr implements spec.md §4.F's getattr: the root is synthesized; any
// other path is served from the stat cache, refreshing the containing
// directory (or the path itself, depth-0) when the cached answer has
// expired.
func (a *Adapter) GetAttr(p string) (Record, error) {
	if p == "/" {
		return a.rootRecord(), nil
	}

	rec, status := a.stat.Get(p, false)
	switch status {
	case statcache.StatusHit:
		if rec.Mode == 0 {
			return Record{}, errs.New(errs.NotFound, "fsadapter.GetAttr", nil)
		}
		return rec, nil

	case statcache.StatusAbsent:
		return Record{}, errs.New(errs.NotFound, "fsadapter.GetAttr", nil)

	case statcache.StatusExpired:
		return a.getAttrExpired(p)

	default:
		return Record{}, errs.New(errs.IOError, "fsadapter.GetAttr", nil)
	}
}

func (a *Adapter) getAttrExpired(p string) (Record, error) {
	if a.cfg.RefreshDirForFileStat {
		dir := parentOf(p)
		tryProgressive := !a.stat.GetFreshness(dir).IsZero()
		if err := a.refresh.UpdateDirectory(dir, tryProgressive); err != nil {
			return Record{}, err
		}

		rec, status := a.stat.Get(p, true)
		if status != statcache.StatusHit || rec.Mode == 0 {
			return Record{}, errs.New(errs.NotFound, "fsadapter.GetAttr", nil)
		}
		return rec, nil
	}

	return a.fetchSingleStat(p)
}

// rootRecord synthesizes "/" per spec.md §4.F: mode 0 (no permission bits,
// S_IFDIR set separately), size 4096.
func (a *Adapter) rootRecord() Record {
	now := a.clock.Now()
	return Record{
		Mode:    sIFDIR,
		Nlink:   2,
		Uid:     a.cfg.Uid,
		Gid:     a.cfg.Gid,
		Size:    4096,
		Blocks:  8,
		Atime:   now,
		Mtime:   now,
		Ctime:   now,
		Updated: now,
	}
}
