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

import (
	"bytes"
	"fmt"
	"strings"
)

// propertySet/propertyRemove element names, matching the "user.webdav(<ns>;<name>)"
// xattr naming convention: namespace and name are extracted by the xattr
// surface, this package only formats the wire body.

// FormatProppatch builds a PROPPATCH request body setting or removing a
// single (namespace, name) property. value == nil formats a <propertyupdate>
// <remove> body; otherwise a <set> body with the given value. The value is
// NUL-terminated in memory first, but xmlEscape drops every NUL byte, so the
// XML text carries the value without any NUL.
func FormatProppatch(namespace, name string, value []byte) []byte {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	buf.WriteString(`<D:propertyupdate xmlns:D="DAV:" xmlns:F="` + namespace + `">` + "\n")

	if value == nil {
		fmt.Fprintf(&buf, "  <D:remove>\n    <D:prop>\n      <F:%s/>\n    </D:prop>\n  </D:remove>\n", name)
	} else {
		terminated := value
		if len(terminated) == 0 || terminated[len(terminated)-1] != 0 {
			terminated = append(append([]byte(nil), value...), 0)
		}
		fmt.Fprintf(&buf, "  <D:set>\n    <D:prop>\n      <F:%s>%s</F:%s>\n    </D:prop>\n  </D:set>\n",
			name, xmlEscape(terminated), name)
	}

	buf.WriteString(`</D:propertyupdate>` + "\n")
	return buf.Bytes()
}

func xmlEscape(b []byte) string {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case '&':
			buf.WriteString("&amp;")
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case 0:
			// NUL bytes (the terminator included) are not valid XML
			// characters and are left out of the text body.
		default:
			buf.WriteByte(c)
		}
	}
	return buf.String()
}

// UserMimeTypeNamespace and UserMimeTypeName are the rewrite target for the
// pseudo-xattr "user.mime_type", per spec.md §6: it is rewritten to
// "user.webdav(DAV:;getcontenttype)".
const (
	UserMimeTypeNamespace = "DAV:"
	UserMimeTypeName       = "getcontenttype"
)

// RewriteXattrName maps the pseudo-xattr "user.mime_type" onto its DAV
// property target; for every other xattr name it returns empty namespace and
// name with rewritten=false to signal no rewrite occurred.
func RewriteXattrName(xattr string) (namespace, name string, rewritten bool) {
	if xattr == "user.mime_type" {
		return UserMimeTypeNamespace, UserMimeTypeName, true
	}
	return "", "", false
}

// userWebdavPrefix/Suffix bound the "user.webdav(<ns>;<name>)" xattr naming
// convention this module exposes for arbitrary DAV properties, per spec.md §6.
const (
	userWebdavPrefix = "user.webdav("
	userWebdavSuffix = ")"
)

// ParseWebdavXattrName parses the generic "user.webdav(<ns>;<name>)" xattr
// convention, the inverse of how a caller would name an arbitrary DAV
// property. Returns ok=false for any name not in that shape (including the
// "user.mime_type" pseudo-xattr, which RewriteXattrName already handles).
func ParseWebdavXattrName(xattr string) (namespace, name string, ok bool) {
	if !strings.HasPrefix(xattr, userWebdavPrefix) || !strings.HasSuffix(xattr, userWebdavSuffix) {
		return "", "", false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(xattr, userWebdavPrefix), userWebdavSuffix)
	ns, name, found := strings.Cut(inner, ";")
	if !found || ns == "" || name == "" {
		return "", "", false
	}
	return ns, name, true
}

// FormatWebdavXattrName builds the "user.webdav(<ns>;<name>)" xattr name for
// namespace/name, the inverse of ParseWebdavXattrName. Nothing in the module
// calls it; ListXattr advertises only "user.mime_type".
func FormatWebdavXattrName(namespace, name string) string {
	return userWebdavPrefix + namespace + ";" + name + userWebdavSuffix
}
