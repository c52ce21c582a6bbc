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
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/kf6nux/fusedav/internal/clock"
	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/logger"
)

// FetchFunc downloads the current remote body for an open(), returning the
// body stream and the version token (ETag/Last-Modified) to remember.
type FetchFunc func() (body io.ReadCloser, versionToken string, err error)

// PutFunc uploads f (already seeked to offset 0) and returns the new version
// token on success.
type PutFunc func(f *os.File) (versionToken string, err error)

// Cache is the file cache (component D).
//
// Dependencies
type Cache struct {
	log   *logger.Logger
	clock clock.Clock

	// Constant data
	filesDir    string
	havenDir    string
	maxFileSize int64

	// Mutable state
	mu      sync.Mutex
	entries map[string]*FileEntry
}

// New returns a Cache storing content files under filesDir and quarantining
// failed uploads under havenDir. maxFileSize is the configured write
// ceiling, in bytes.
func New(filesDir, havenDir string, maxFileSize int64, clk clock.Clock, log *logger.Logger) *Cache {
	return &Cache{
		log:         log,
		clock:       clk,
		filesDir:    filesDir,
		havenDir:    havenDir,
		maxFileSize: maxFileSize,
		entries:     make(map[string]*FileEntry),
	}
}

func normalizeFlags(flags int) (osFlags int, writable bool) {
	switch flags & (os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		// O_WRONLY is upgraded to O_RDWR so a subsequent sync can re-read
		// the body it just wrote.
		osFlags = (flags &^ os.O_WRONLY) | os.O_RDWR
		writable = true
	case os.O_RDWR:
		osFlags = flags
		writable = true
	default:
		osFlags = flags
		writable = false
	}
	return osFlags, writable
}

// Open creates or looks up the FileEntry for path and returns a new
// OpenSession onto it. On first open, or when the caller's expected version
// token disagrees with what is cached, the body is downloaded via fetch
// before any local fd is returned. O_TRUNC skips the download and starts
// from a zero-length local body.
func (c *Cache) Open(path string, flags int, expectedVersionToken string, fetch FetchFunc) (*OpenSession, error) {
	osFlags, writable := normalizeFlags(flags)
	truncate := flags&os.O_TRUNC != 0

	c.mu.Lock()
	entry, exists := c.entries[path]
	firstOpen := !exists
	if !exists {
		entry = &FileEntry{path: path, localPath: filepath.Join(c.filesDir, hashPath(path))}
		c.entries[path] = entry
	}
	entry.refCount++
	needsDownload := !truncate && (firstOpen || (expectedVersionToken != "" && !entry.modified && entry.versionToken != expectedVersionToken))
	c.mu.Unlock()

	if err := os.MkdirAll(c.filesDir, 0700); err != nil {
		c.releaseOnOpenFailure(entry)
		return nil, errs.New(errs.IOError, "filecache.Open", err)
	}

	switch {
	case truncate:
		f, err := os.OpenFile(entry.localPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
		if err != nil {
			c.releaseOnOpenFailure(entry)
			return nil, errs.New(errs.IOError, "filecache.Open", err)
		}
		f.Close()
	case needsDownload:
		if err := c.download(entry, fetch); err != nil {
			c.releaseOnOpenFailure(entry)
			return nil, err
		}
	default:
		if _, err := os.Stat(entry.localPath); os.IsNotExist(err) {
			if err := c.download(entry, fetch); err != nil {
				c.releaseOnOpenFailure(entry)
				return nil, err
			}
		}
	}

	fd, err := os.OpenFile(entry.localPath, osFlags, 0600)
	if err != nil {
		c.releaseOnOpenFailure(entry)
		return nil, errs.New(errs.IOError, "filecache.Open", err)
	}

	return &OpenSession{fd: fd, entry: entry, flags: flags, writable: writable}, nil
}

func (c *Cache) download(entry *FileEntry, fetch FetchFunc) error {
	body, token, err := fetch()
	if err != nil {
		return err
	}
	defer body.Close()

	f, err := os.OpenFile(entry.localPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0600)
	if err != nil {
		return errs.New(errs.IOError, "filecache.download", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return errs.New(errs.IOError, "filecache.download", err)
	}

	c.mu.Lock()
	entry.versionToken = token
	c.mu.Unlock()
	return nil
}

func (c *Cache) releaseOnOpenFailure(entry *FileEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.refCount--
	if entry.refCount == 0 && entry.errLatched == nil {
		delete(c.entries, entry.path)
	}
}

// Read reads from the session's local fd at off.
func (c *Cache) Read(s *OpenSession, buf []byte, off int64) (int, error) {
	n, err := s.fd.ReadAt(buf, off)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

// Write writes buf at off, latching TooBig without performing the write if
// the result would exceed the configured ceiling.
func (c *Cache) Write(s *OpenSession, buf []byte, off int64) (int, error) {
	if off+int64(len(buf)) > c.maxFileSize {
		err := errs.New(errs.TooBig, "filecache.Write", nil)
		c.mu.Lock()
		s.entry.errLatched = err
		c.mu.Unlock()
		return 0, err
	}

	n, err := s.fd.WriteAt(buf, off)
	if err != nil {
		return n, errs.New(errs.IOError, "filecache.Write", err)
	}

	c.mu.Lock()
	s.entry.modified = true
	c.mu.Unlock()
	return n, nil
}

// Truncate truncates the session's local fd to size.
func (c *Cache) Truncate(s *OpenSession, size int64) error {
	if size > c.maxFileSize {
		err := errs.New(errs.TooBig, "filecache.Truncate", nil)
		c.mu.Lock()
		s.entry.errLatched = err
		c.mu.Unlock()
		return err
	}

	if err := s.fd.Truncate(size); err != nil {
		return errs.New(errs.IOError, "filecache.Truncate", err)
	}

	c.mu.Lock()
	s.entry.modified = true
	c.mu.Unlock()
	return nil
}

// Sync uploads the session's local content if modified, writable, doPut was
// requested, and the caller is not in saint mode. At most one Sync per path
// can be uploading at a time. A previously latched error (e.g. TooBig from a
// ceiling-exceeding write) always wins over a fresh PUT attempt: the entry is
// already destined for forensic haven at release, so no partial content goes
// out over the wire.
func (c *Cache) Sync(s *OpenSession, doPut bool, inSaint bool, put PutFunc) error {
	entry := s.entry
	entry.uploadMu.Lock()
	defer entry.uploadMu.Unlock()

	c.mu.Lock()
	modified := entry.modified
	latched := entry.errLatched
	c.mu.Unlock()

	if latched != nil {
		return latched
	}
	if !modified || !s.writable || !doPut {
		return nil
	}
	if inSaint {
		return errs.New(errs.NetworkDown, "filecache.Sync", nil)
	}

	if _, err := s.fd.Seek(0, io.SeekStart); err != nil {
		return errs.New(errs.IOError, "filecache.Sync", err)
	}

	token, err := put(s.fd)
	if err != nil {
		c.mu.Lock()
		entry.errLatched = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	entry.modified = false
	entry.versionToken = token
	entry.uploaded = true
	c.mu.Unlock()
	return nil
}

// Close drops session's reference to its FileEntry and closes its fd.
// releasedLast reports whether this was the last open session; hadError
// reports whether the entry has a latched upload error, in which case the
// caller is expected to call ForensicHaven.
func (c *Cache) Close(s *OpenSession) (releasedLast bool, hadError bool) {
	c.mu.Lock()
	s.entry.refCount--
	releasedLast = s.entry.refCount == 0
	hadError = s.entry.errLatched != nil
	c.mu.Unlock()

	s.fd.Close()
	return releasedLast, hadError
}

// Delete removes path's FileEntry and its on-disk body, for use after a
// successful release, unlink, or rename.
func (c *Cache) Delete(path string) error {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if ok {
		delete(c.entries, path)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	if err := os.Remove(entry.localPath); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.IOError, "filecache.Delete", err)
	}
	return nil
}

// Move relocates a FileEntry from "from" to "to", e.g. for rename(2). The
// on-disk content file path is derived from the new path's hash, so the
// body is physically renamed alongside the index update.
func (c *Cache) Move(from, to string) error {
	c.mu.Lock()
	entry, ok := c.entries[from]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	delete(c.entries, from)

	newLocalPath := filepath.Join(c.filesDir, hashPath(to))
	oldLocalPath := entry.localPath
	entry.path = to
	entry.localPath = newLocalPath
	c.entries[to] = entry
	c.mu.Unlock()

	if err := os.Rename(oldLocalPath, newLocalPath); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.IOError, "filecache.Move", err)
	}
	return nil
}

// Entry returns the FileEntry for path, if any open session or
// not-yet-cleaned record references it.
func (c *Cache) Entry(path string) (*FileEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	return e, ok
}
