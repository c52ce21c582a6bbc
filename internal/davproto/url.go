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

package davproto

import "net/url"

// EscapePath percent-encodes p for inclusion in a request target or
// Destination header, preserving "/" as a path separator rather than
// encoding it, per spec.md §6's MOVE Destination requirement.
func EscapePath(p string) string {
	u := url.URL{Path: p}
	return u.EscapedPath()
}
