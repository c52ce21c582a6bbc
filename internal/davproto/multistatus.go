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

// Package davproto implements the property codec (component B): parsing a
// WebDAV PROPFIND multistatus response into (href, record, status) tuples,
// and formatting PROPPATCH request bodies for the xattr surface.
package davproto

import (
	"encoding/xml"
	"io"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// Record is the attribute block filled in from one PROPFIND response entry,
// matching spec.md's StatRecord shape. The stat cache zeroes sub-second
// fields when it stores a record, so equality elsewhere in the module is
// seconds-granular.
type Record struct {
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Size    int64
	Blocks  int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
	Updated time.Time

	// ContentType carries DAV:getcontenttype verbatim, so the xattr surface
	// can serve "user.mime_type" from the cached record instead of a live
	// PROPFIND.
	ContentType string
}

// Entry is one (href, record, status) tuple out of a multistatus response.
// StatusCode 410 denotes a tombstone; any 2xx denotes a live record.
type Entry struct {
	Href       string
	StatusCode int
	Record     Record
}

type multistatusXML struct {
	XMLName   xml.Name       `xml:"DAV: multistatus"`
	Responses []responseXML  `xml:"DAV: response"`
}

type responseXML struct {
	Href      string         `xml:"DAV: href"`
	Propstats []propstatXML  `xml:"DAV: propstat"`
}

type propstatXML struct {
	Prop   propXML `xml:"DAV: prop"`
	Status string  `xml:"DAV: status"`
}

type propXML struct {
	ResourceType  resourceTypeXML `xml:"DAV: resourcetype"`
	ContentLength string          `xml:"DAV: getcontentlength"`
	LastModified  string          `xml:"DAV: getlastmodified"`
	CreationDate  string          `xml:"DAV: creationdate"`
	ContentType   string          `xml:"DAV: getcontenttype"`
	Executable    string          `xml:"http://apache.org/dav/props/ executable"`
}

type resourceTypeXML struct {
	Collection *struct{} `xml:"DAV: collection"`
}

var statusLinePattern = regexp.MustCompile(`^HTTP/[0-9.]+\s+(\d+)`)

func parseStatusLine(line string) int {
	match := statusLinePattern.FindStringSubmatch(line)
	if len(match) < 2 {
		return 0
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return code
}

// ParseMultistatus decodes a PROPFIND 207 Multi-Status body, invoking cb for
// every (href, status) it contains. umask masks the permission bits assigned
// to synthesized mode values. now is the observation time stamped into
// Atime and Updated for every live record.
func ParseMultistatus(r io.Reader, umask uint32, now time.Time, cb func(Entry) error) error {
	dec := xml.NewDecoder(r)

	var doc multistatusXML
	if err := dec.Decode(&doc); err != nil {
		return err
	}

	for _, resp := range doc.Responses {
		for _, ps := range resp.Propstats {
			code := parseStatusLine(ps.Status)

			entry := Entry{Href: resp.Href, StatusCode: code}
			if code >= 200 && code < 300 {
				entry.Record = recordFromProp(ps.Prop, umask, now)
			} else if code == 410 {
				entry.Record.Ctime = parseAnyTime(ps.Prop.LastModified, ps.Prop.CreationDate)
			}

			if err := cb(entry); err != nil {
				return err
			}
		}
	}

	return nil
}

func recordFromProp(p propXML, umask uint32, now time.Time) Record {
	isDir := p.ResourceType.Collection != nil
	executable := p.Executable == "T"

	var mode uint32
	if isDir {
		mode = unix.S_IFDIR | (0777 &^ umask)
	} else {
		mode = unix.S_IFREG
		if executable {
			mode |= 0777 &^ umask
		} else {
			mode |= 0666 &^ umask
		}
	}

	var size int64
	if p.ContentLength != "" {
		if n, err := strconv.ParseInt(p.ContentLength, 10, 64); err == nil {
			size = n
		}
	}

	mtime := parseRFC1123(p.LastModified)
	ctime := parseISO8601(p.CreationDate)
	if ctime.IsZero() {
		ctime = mtime
	}

	nlink := uint32(1)
	if isDir {
		nlink = 2
	}

	return Record{
		Mode:        mode,
		Nlink:       nlink,
		Size:        size,
		Blocks:      (size + 511) / 512,
		Atime:       now,
		Mtime:       mtime,
		Ctime:       ctime,
		Updated:     now,
		ContentType: p.ContentType,
	}
}

func parseRFC1123(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC1123, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC1123Z, s); err == nil {
		return t
	}
	return time.Time{}
}

func parseISO8601(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02T15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseAnyTime(lastModified, creationDate string) time.Time {
	if t := parseRFC1123(lastModified); !t.IsZero() {
		return t
	}
	return parseISO8601(creationDate)
}
