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
)

// rootFS is the bazil.org/fuse fs.FS implementation; its only job is handing
// out the root Node and answering statfs.
type rootFS struct {
	srv *Server
}

var _ fusefs.FS = (*rootFS)(nil)
var _ fusefs.FSStatfser = (*rootFS)(nil)

func (r *rootFS) Root() (fusefs.Node, error) {
	return &Node{srv: r.srv, path: "/"}, nil
}

func (r *rootFS) Statfs(ctx context.Context, req *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	sfs := r.srv.adapter.StatFS()
	resp.Blocks = sfs.Blocks
	resp.Bfree = sfs.BlocksFree
	resp.Bavail = sfs.BlocksFree
	resp.Files = sfs.Files
	resp.Ffree = sfs.FilesFree
	resp.Bsize = sfs.BlockSize
	resp.Namelen = sfs.NameLen
	resp.Frsize = sfs.BlockSize
	return nil
}
