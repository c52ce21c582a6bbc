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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kf6nux/fusedav/internal/errs"
)

// sidecar is the JSON-ish metadata written alongside a quarantined body,
// per spec.md §4.D: "time, path, size, and recent error messages."
type sidecar struct {
	Time  string `json:"time"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
}

// ForensicHaven moves path's local body and a sidecar describing the
// failure into a quarantine directory, then drops the FileEntry from the
// cache. Called after a release whose sync failed.
func (c *Cache) ForensicHaven(path string) error {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if ok {
		delete(c.entries, path)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	info, statErr := os.Stat(entry.localPath)
	var size int64
	if statErr == nil {
		size = info.Size()
	}

	now := c.clock.Now()
	sum := sha256.Sum256([]byte(path))
	dirName := fmt.Sprintf("%d-%s", now.Unix(), hex.EncodeToString(sum[:8]))
	havenPath := filepath.Join(c.havenDir, dirName)

	if err := os.MkdirAll(havenPath, 0700); err != nil {
		return errs.New(errs.IOError, "filecache.ForensicHaven", err)
	}

	if statErr == nil {
		if err := os.Rename(entry.localPath, filepath.Join(havenPath, "body")); err != nil {
			return errs.New(errs.IOError, "filecache.ForensicHaven", err)
		}
	}

	errMsg := ""
	if entry.errLatched != nil {
		errMsg = entry.errLatched.Error()
	}

	sc := sidecar{
		Time:  now.Format("2006-01-02T15:04:05Z07:00"),
		Path:  path,
		Size:  size,
		Error: errMsg,
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return errs.New(errs.IOError, "filecache.ForensicHaven", err)
	}

	if err := os.WriteFile(filepath.Join(havenPath, "sidecar.json"), data, 0600); err != nil {
		return errs.New(errs.IOError, "filecache.ForensicHaven", err)
	}

	return nil
}
