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
	"path"

	"github.com/kf6nux/fusedav/internal/statcache"
)

// ReadDir implements spec.md §4.F's readdir: "." and ".." lead, followed by
// a strict enumeration of the stat cache, refreshing (progressively for
// stale data, fully for no data at all) and re-enumerating loosely on a
// miss.
func (a *Adapter) ReadDir(dir string) ([]DirEntry, error) {
	entries, status, err := a.enumerate(dir, statcache.FilterStrict)
	if err != nil {
		return nil, err
	}

	if status == statcache.EnumerateOK {
		return entries, nil
	}

	tryProgressive := status == statcache.EnumerateOldData
	if err := a.refresh.UpdateDirectory(dir, tryProgressive); err != nil {
		return nil, err
	}

	entries, _, err = a.enumerate(dir, statcache.FilterLoose)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *Adapter) enumerate(dir string, filter statcache.EnumerateFilter) ([]DirEntry, statcache.EnumerateStatus, error) {
	entries := []DirEntry{
		{Name: "."},
		{Name: ".."},
	}

	status, err := a.stat.Enumerate(dir, filter, func(childPath string, rec Record) error {
		entries = append(entries, DirEntry{Name: path.Base(childPath), Record: rec})
		return nil
	})
	if err != nil {
		return nil, status, err
	}
	return entries, status, nil
}
