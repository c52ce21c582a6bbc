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

package fuseserver

import (
	"os"
	"time"

	"bazil.org/fuse"

	"github.com/kf6nux/fusedav/internal/fsadapter"
)

const sIFDIR = 0040000

// toFileMode translates the module's unix-style mode bits into the
// os.FileMode bazil.org/fuse expects on fuse.Attr.Mode.
func toFileMode(mode uint32) os.FileMode {
	perm := os.FileMode(mode & 0777)
	if mode&sIFDIR != 0 {
		return perm | os.ModeDir
	}
	return perm
}

// fillAttr populates resp from a stat record, per spec.md §4.F's getattr.
func fillAttr(rec fsadapter.Record, attr *fuse.Attr) {
	attr.Size = uint64(rec.Size)
	attr.Blocks = uint64(rec.Blocks)
	attr.Mode = toFileMode(rec.Mode)
	attr.Nlink = rec.Nlink
	attr.Uid = rec.Uid
	attr.Gid = rec.Gid
	attr.Atime = rec.Atime
	attr.Mtime = rec.Mtime
	attr.Ctime = rec.Ctime
}

// joinPath appends name to a directory path, matching statcache's own path
// arithmetic (root is "/", everything else has no trailing slash).
func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

func timeOrZero(t time.Time, valid bool) time.Time {
	if !valid {
		return time.Time{}
	}
	return t
}
