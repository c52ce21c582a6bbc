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

package filecache

import (
	"os"
	"path/filepath"
)

// Cleanup reconciles on-disk content files against the FileEntry index:
// orphaned files with no corresponding index entry are removed. On
// firstRun, index entries with no open sessions whose body file has gone
// missing are dropped as well, matching spec.md §4.D's startup reconcile
// pass.
func (c *Cache) Cleanup(firstRun bool) error {
	c.mu.Lock()
	known := make(map[string]*FileEntry, len(c.entries))
	for path, e := range c.entries {
		known[path] = e
	}
	c.mu.Unlock()

	localPaths := make(map[string]bool, len(known))
	for _, e := range known {
		localPaths[e.localPath] = true
	}

	entries, err := os.ReadDir(c.filesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, de := range entries {
		full := filepath.Join(c.filesDir, de.Name())
		if !localPaths[full] {
			os.Remove(full)
		}
	}

	if !firstRun {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for path, e := range known {
		if e.refCount != 0 {
			continue
		}
		if _, err := os.Stat(e.localPath); os.IsNotExist(err) {
			delete(c.entries, path)
		}
	}
	return nil
}
