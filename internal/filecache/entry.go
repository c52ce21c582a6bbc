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

// Package filecache implements the file cache (component D): per-path
// locally-materialized content, reference-counted open sessions, upload
// serialization, and forensic-haven quarantine for failed uploads.
package filecache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

// FileEntry is the per-path content cache record, shared by every
// OpenSession on the same path. Modeled as shared ownership with a
// reference count per spec.md §9 ("Raw ownership of FileEntry across
// threads... model as shared ownership with atomic reference count").
//
// Dependencies
type FileEntry struct {
	// Constant data
	path      string
	localPath string

	// Mutable state, guarded by the owning Cache's mu.
	versionToken string
	modified     bool
	errLatched   error
	uploaded     bool
	refCount     int

	// uploadMu ensures at most one in-flight PUT per path, independent of
	// the Cache-wide lock, so an upload in progress never blocks unrelated
	// cache operations on other paths.
	uploadMu sync.Mutex
}

// Path returns the path this entry caches content for.
func (e *FileEntry) Path() string { return e.path }

// LocalPath returns the on-disk file backing this entry's content.
func (e *FileEntry) LocalPath() string { return e.localPath }

// VersionToken returns the last known ETag/Last-Modified style token.
func (e *FileEntry) VersionToken() string { return e.versionToken }

// Modified reports whether local content has diverged from VersionToken.
func (e *FileEntry) Modified() bool { return e.modified }

// Error returns the latched upload error, if any.
func (e *FileEntry) Error() error { return e.errLatched }

// OpenSession is one open(2)-like handle onto a FileEntry: an exclusive file
// descriptor paired with a shared reference to the entry's metadata.
type OpenSession struct {
	fd       *os.File
	entry    *FileEntry
	flags    int
	writable bool
}

// Entry returns the FileEntry this session shares with sibling sessions.
func (s *OpenSession) Entry() *FileEntry { return s.entry }

// FD returns the session's exclusive local file descriptor.
func (s *OpenSession) FD() *os.File { return s.fd }

// Writable reports whether this session was opened for writing.
func (s *OpenSession) Writable() bool { return s.writable }

// hashPath derives the on-disk filename for a cached path's content, per
// spec.md §6's cache directory layout: "<cache_path>/files/<hash-of-path>".
func hashPath(p string) string {
	sum := sha256.Sum256([]byte(p))
	return hex.EncodeToString(sum[:])
}
