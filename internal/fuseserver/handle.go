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
	"context"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"

	"github.com/kf6nux/fusedav/internal/fsadapter"
)

// Handle is the kernel-facing open-file handle, wrapping the adapter's own
// null-path-aware Handle.
type Handle struct {
	srv  *Server
	node *Node
	h    *fsadapter.Handle
}

var (
	_ fusefs.HandleReader   = (*Handle)(nil)
	_ fusefs.HandleWriter   = (*Handle)(nil)
	_ fusefs.HandleFlusher  = (*Handle)(nil)
	_ fusefs.HandleReleaser = (*Handle)(nil)
)

func (h *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	h.srv.lock()
	defer h.srv.unlock()

	buf := make([]byte, req.Size)
	n, err := h.srv.adapter.Read(h.h, buf, req.Offset)
	if err != nil {
		return toErrno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	h.srv.lock()
	defer h.srv.unlock()

	n, err := h.srv.adapter.Write(h.h, req.Data, req.Offset)
	if err != nil {
		return toErrno(err)
	}
	resp.Size = n
	return nil
}

func (h *Handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	h.srv.lock()
	defer h.srv.unlock()

	return toErrno(h.srv.adapter.Flush(h.h))
}

func (h *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	h.srv.lock()
	defer h.srv.unlock()

	return toErrno(h.srv.adapter.Release(h.h))
}
