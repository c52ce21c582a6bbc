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

	"github.com/kf6nux/fusedav/internal/errs"
)

// Node is one path's kernel-facing identity. bazil.org/fuse asks for a fresh
// Node on every successful Lookup, so this type carries nothing but the path
// and a reference back to the server; all state lives in fsadapter.
type Node struct {
	srv  *Server
	path string
}

var (
	_ fusefs.Node              = (*Node)(nil)
	_ fusefs.NodeStringLookuper = (*Node)(nil)
	_ fusefs.HandleReadDirAller = (*Node)(nil)
	_ fusefs.NodeMkdirer        = (*Node)(nil)
	_ fusefs.NodeCreater        = (*Node)(nil)
	_ fusefs.NodeRemover        = (*Node)(nil)
	_ fusefs.NodeRenamer        = (*Node)(nil)
	_ fusefs.NodeOpener         = (*Node)(nil)
	_ fusefs.NodeSetattrer      = (*Node)(nil)
	_ fusefs.NodeFsyncer        = (*Node)(nil)
	_ fusefs.NodeGetxattrer     = (*Node)(nil)
	_ fusefs.NodeListxattrer    = (*Node)(nil)
	_ fusefs.NodeSetxattrer     = (*Node)(nil)
	_ fusefs.NodeRemovexattrer  = (*Node)(nil)
)

func (n *Node) Attr(ctx context.Context, attr *fuse.Attr) error {
	n.srv.lock()
	defer n.srv.unlock()

	rec, err := n.srv.adapter.GetAttr(n.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(rec, attr)
	return nil
}

func (n *Node) Lookup(ctx context.Context, name string) (fusefs.Node, error) {
	n.srv.lock()
	defer n.srv.unlock()

	child := joinPath(n.path, name)
	if _, err := n.srv.adapter.GetAttr(child); err != nil {
		return nil, toErrno(err)
	}
	return &Node{srv: n.srv, path: child}, nil
}

func (n *Node) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	n.srv.lock()
	defer n.srv.unlock()

	entries, err := n.srv.adapter.ReadDir(n.path)
	if err != nil {
		return nil, toErrno(err)
	}

	out := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		typ := fuse.DT_File
		if e.Record.Mode&sIFDIR != 0 {
			typ = fuse.DT_Dir
		}
		out = append(out, fuse.Dirent{Name: e.Name, Type: typ})
	}
	return out, nil
}

func (n *Node) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	n.srv.lock()
	defer n.srv.unlock()

	child := joinPath(n.path, req.Name)
	if err := n.srv.adapter.Mkdir(child, uint32(req.Mode.Perm())); err != nil {
		return nil, toErrno(err)
	}
	return &Node{srv: n.srv, path: child}, nil
}

func (n *Node) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	n.srv.lock()
	defer n.srv.unlock()

	child := joinPath(n.path, req.Name)
	h, err := n.srv.adapter.Create(child, uint32(req.Mode.Perm()))
	if err != nil {
		return nil, nil, toErrno(err)
	}
	childNode := &Node{srv: n.srv, path: child}
	return childNode, &Handle{srv: n.srv, node: childNode, h: h}, nil
}

func (n *Node) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	n.srv.lock()
	defer n.srv.unlock()

	child := joinPath(n.path, req.Name)
	if req.Dir {
		return toErrno(n.srv.adapter.Rmdir(child))
	}
	return toErrno(n.srv.adapter.Unlink(child, true))
}

func (n *Node) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	n.srv.lock()
	defer n.srv.unlock()

	destDir, ok := newDir.(*Node)
	if !ok {
		return toErrno(errs.New(errs.IOError, "fuseserver.Rename", nil))
	}
	from := joinPath(n.path, req.OldName)
	to := joinPath(destDir.path, req.NewName)
	return toErrno(n.srv.adapter.Rename(from, to))
}

func (n *Node) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	n.srv.lock()
	defer n.srv.unlock()

	h, err := n.srv.adapter.Open(n.path, int(req.Flags))
	if err != nil {
		return nil, toErrno(err)
	}
	return &Handle{srv: n.srv, node: n, h: h}, nil
}

func (n *Node) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	n.srv.lock()
	defer n.srv.unlock()

	if req.Valid.Size() {
		if err := n.srv.adapter.TruncatePath(n.path, int64(req.Size)); err != nil {
			return toErrno(err)
		}
	}

	if req.Valid.Mtime() || req.Valid.Atime() {
		atime := timeOrZero(req.Atime, req.Valid.Atime())
		mtime := timeOrZero(req.Mtime, req.Valid.Mtime())
		if err := n.srv.adapter.Utimens(n.path, atime, mtime); err != nil {
			return toErrno(err)
		}
	}

	// Mode/uid/gid changes are accepted but not persisted: spec.md's
	// Non-goals exclude ownership and permission changes.
	rec, err := n.srv.adapter.GetAttr(n.path)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(rec, &resp.Attr)
	return nil
}

func (n *Node) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	n.srv.lock()
	defer n.srv.unlock()

	return nil
}

func (n *Node) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	n.srv.lock()
	defer n.srv.unlock()

	value, err := n.srv.adapter.GetXattr(n.path, req.Name)
	if err != nil {
		return toErrno(err)
	}
	resp.Xattr = value
	return nil
}

func (n *Node) Listxattr(ctx context.Context, req *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	n.srv.lock()
	defer n.srv.unlock()

	names, err := n.srv.adapter.ListXattr(n.path)
	if err != nil {
		return toErrno(err)
	}
	for _, name := range names {
		resp.Append(name)
	}
	return nil
}

func (n *Node) Setxattr(ctx context.Context, req *fuse.SetxattrRequest) error {
	n.srv.lock()
	defer n.srv.unlock()

	return toErrno(n.srv.adapter.SetXattr(n.path, req.Name, req.Xattr))
}

func (n *Node) Removexattr(ctx context.Context, req *fuse.RemovexattrRequest) error {
	n.srv.lock()
	defer n.srv.unlock()

	return toErrno(n.srv.adapter.RemoveXattr(n.path, req.Name))
}
