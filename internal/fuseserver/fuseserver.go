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

// Package fuseserver bridges bazil.org/fuse's kernel-facing Node/Handle
// callbacks onto internal/fsadapter.Adapter. This is the only package in the
// module that imports bazil.org/fuse or produces a kernel errno: every
// method here does the minimal argument translation and then hands off to
// the adapter, which returns the module's own structured errors.
package fuseserver

import (
	"fmt"
	"sync"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/fsadapter"
	"github.com/kf6nux/fusedav/internal/logger"
)

// Server owns the kernel mount and the fs.Serve loop.
//
// Dependencies
type Server struct {
	adapter *fsadapter.Adapter
	log     *logger.Logger

	// Constant data
	mountpoint   string
	volumeName   string
	singleThread bool

	// Mutable state
	conn *fuse.Conn
	mu   sync.Mutex
}

// New returns a Server that has not yet mounted anything. bazil.org/fuse's
// fs.Serve dispatches each kernel request on its own goroutine; when
// singleThread is true every Node/Handle callback additionally serializes
// on a single lock, matching spec.md §5's "single-threaded mode is a
// configurable degraded alternative used only for debugging."
func New(adapter *fsadapter.Adapter, log *logger.Logger, mountpoint, volumeName string, singleThread bool) *Server {
	return &Server{adapter: adapter, log: log, mountpoint: mountpoint, volumeName: volumeName, singleThread: singleThread}
}

// lock/unlock bracket every Node/Handle callback. They are no-ops unless
// singleThread was requested, so the common case pays no synchronization
// cost beyond an uncontended bool check.
func (s *Server) lock() {
	if s.singleThread {
		s.mu.Lock()
	}
}

func (s *Server) unlock() {
	if s.singleThread {
		s.mu.Unlock()
	}
}

// Mount opens the kernel connection at the configured mountpoint. Serve must
// be called afterward to actually process requests.
func (s *Server) Mount() error {
	conn, err := fuse.Mount(
		s.mountpoint,
		fuse.FSName("fusedav"),
		fuse.Subtype("fusedav"),
		fuse.VolumeName(s.volumeName),
		fuse.LocalVolume(),
	)
	if err != nil {
		return fmt.Errorf("fuse.Mount: %w", err)
	}
	s.conn = conn
	return nil
}

// Serve blocks, dispatching kernel requests onto the adapter until the
// filesystem is unmounted or the connection fails.
func (s *Server) Serve() error {
	if err := fusefs.Serve(s.conn, &rootFS{srv: s}); err != nil {
		return fmt.Errorf("fs.Serve: %w", err)
	}

	<-s.conn.Ready
	if err := s.conn.MountError; err != nil {
		return fmt.Errorf("fuse mount: %w", err)
	}
	return nil
}

// Close tears down the kernel connection. Safe to call after an unmount has
// already happened out-of-band (e.g. via fusermount -u).
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// toErrno converts an adapter error into the value bazil.org/fuse expects a
// Node/Handle method to return.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	return fuse.Errno(errs.ToErrno(err))
}
