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

package main

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// currentUmask reads the process umask without permanently changing it,
// for fsadapter.Config.Umask (spec.md §4.B: default permissions are
// "masked by the process umask"). unix.Umask always both sets and returns
// the previous value, so querying it means setting it twice.
func currentUmask() uint32 {
	old := unix.Umask(0)
	unix.Umask(old)
	return uint32(old)
}

// dropPrivileges implements spec.md §6's run_as uid/gid: once the mount is
// set up, the process drops to an unprivileged user. Grounded on the
// original's config_privileges (group before user, since changing uid
// first would forfeit the right to change gid).
func dropPrivileges(uid, gid int) error {
	if gid != 0 {
		if err := unix.Setgid(gid); err != nil {
			return fmt.Errorf("setgid(%d): %w", gid, err)
		}
	}
	if uid != 0 {
		if err := unix.Setuid(uid); err != nil {
			return fmt.Errorf("setuid(%d): %w", uid, err)
		}
	}
	return nil
}
