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

package fsadapter

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/kf6nux/fusedav/internal/davproto"
	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/filecache"
	"github.com/kf6nux/fusedav/internal/session"
	"github.com/kf6nux/fusedav/internal/statcache"
)

var singlePropfindBody = []byte(`<?xml version="1.0" encoding="utf-8"?>
<D:propfind xmlns:D="DAV:" xmlns:A="http://apache.org/dav/props/">
  <D:prop>
    <D:resourcetype/>
    <D:getcontentlength/>
    <D:getlastmodified/>
    <D:creationdate/>
    <D:getcontenttype/>
    <A:executable/>
  </D:prop>
</D:propfind>
`)

func (a *Adapter) target(p string) string {
	return strings.TrimSuffix(a.cfg.BaseURL, "/") + davproto.EscapePath(p)
}

// fetchSingleStat issues a depth-0 PROPFIND directly against p, used by
// GetAttr when refresh_dir_for_file_stat is disabled. The single entry found
// is applied to the stat cache exactly like a directory refresh would treat
// it (live record set, tombstone deleted), then re-read from cache.
func (a *Adapter) fetchSingleStat(p string) (Record, error) {
	req, err := http.NewRequest("PROPFIND", a.target(p), bytes.NewReader(singlePropfindBody))
	if err != nil {
		return Record{}, errs.New(errs.IOError, "fsadapter.fetchSingleStat", err)
	}
	req.Header.Set("Depth", "0")
	req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)

	resp, err := a.pool.Do(false, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return Record{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		a.stat.Delete(p)
		return Record{}, errs.New(errs.NotFound, "fsadapter.fetchSingleStat", nil)
	}
	if resp.StatusCode != 207 {
		return Record{}, errs.New(errs.IOError, "fsadapter.fetchSingleStat", nil)
	}

	now := a.clock.Now()
	found := false
	err = davproto.ParseMultistatus(resp.Body, a.cfg.Umask, now, func(entry davproto.Entry) error {
		if entry.StatusCode >= 200 && entry.StatusCode < 300 {
			found = true
			return a.stat.Set(p, entry.Record)
		}
		if entry.StatusCode == 410 {
			return a.stat.Delete(p)
		}
		return nil
	})
	if err != nil {
		return Record{}, errs.New(errs.IOError, "fsadapter.fetchSingleStat", err)
	}
	if !found {
		return Record{}, errs.New(errs.NotFound, "fsadapter.fetchSingleStat", nil)
	}

	rec, status := a.stat.Get(p, true)
	if status != statcache.StatusHit || rec.Mode == 0 {
		return Record{}, errs.New(errs.NotFound, "fsadapter.fetchSingleStat", nil)
	}
	return rec, nil
}

// getRemoteBody downloads p's current body for filecache.FetchFunc, keeping
// whatever version token the server hands back (ETag, falling back to
// Last-Modified) so the file cache can detect staleness on a later open.
func (a *Adapter) getRemoteBody(p string) (io.ReadCloser, string, error) {
	req, err := http.NewRequest(http.MethodGet, a.target(p), nil)
	if err != nil {
		return nil, "", errs.New(errs.IOError, "fsadapter.getRemoteBody", err)
	}

	resp, err := a.pool.Do(false, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return nil, "", err
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, "", errs.New(errs.NotFound, "fsadapter.getRemoteBody", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, "", errs.New(errs.IOError, "fsadapter.getRemoteBody", nil)
	}

	token := resp.Header.Get("ETag")
	if token == "" {
		token = resp.Header.Get("Last-Modified")
	}
	return resp.Body, token, nil
}

// putFunc returns a filecache.PutFunc uploading p's local body via PUT,
// retaining whichever version token the response carries.
func (a *Adapter) putFunc(p string) filecache.PutFunc {
	return func(f *os.File) (string, error) {
		req, err := http.NewRequest(http.MethodPut, a.target(p), f)
		if err != nil {
			return "", errs.New(errs.IOError, "fsadapter.putFunc", err)
		}

		resp, err := a.pool.Do(true, func(s *session.Session) (*http.Response, error) {
			return s.Do(req)
		})
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", errs.New(errs.IOError, "fsadapter.putFunc", nil)
		}

		token := resp.Header.Get("ETag")
		if token == "" {
			token = resp.Header.Get("Last-Modified")
		}
		return token, nil
	}
}

// deleteRemote issues DELETE for p, appending a trailing slash for
// directories per spec.md §6.
func (a *Adapter) deleteRemote(p string, isDir bool) error {
	target := p
	if isDir {
		target = strings.TrimSuffix(p, "/") + "/"
	}

	req, err := http.NewRequest(http.MethodDelete, a.target(target), nil)
	if err != nil {
		return errs.New(errs.IOError, "fsadapter.deleteRemote", err)
	}

	resp, err := a.pool.Do(true, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusNotFound {
		return errs.New(errs.NotFound, "fsadapter.deleteRemote", nil)
	}
	return errs.New(errs.IOError, "fsadapter.deleteRemote", nil)
}

// mkcolRemote issues MKCOL for directory p.
func (a *Adapter) mkcolRemote(p string) error {
	target := strings.TrimSuffix(p, "/") + "/"

	req, err := http.NewRequest("MKCOL", a.target(target), nil)
	if err != nil {
		return errs.New(errs.IOError, "fsadapter.mkcolRemote", err)
	}

	resp, err := a.pool.Do(true, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.NotFound, "fsadapter.mkcolRemote", nil)
	case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusConflict:
		return errs.New(errs.Exist, "fsadapter.mkcolRemote", nil)
	default:
		return errs.New(errs.IOError, "fsadapter.mkcolRemote", nil)
	}
}

// moveRemote issues MOVE from "from" to "to", returning (movedOnServer,
// err). movedOnServer is false only for the "never uploaded" 404 case of
// spec.md §4.F/§8 property 8, which the caller proceeds past rather than
// treating as fatal.
func (a *Adapter) moveRemote(from, to string, isDir bool) (bool, error) {
	fromTarget := from
	toTarget := to
	if isDir {
		fromTarget = strings.TrimSuffix(from, "/") + "/"
		toTarget = strings.TrimSuffix(to, "/") + "/"
	}

	req, err := http.NewRequest("MOVE", a.target(fromTarget), nil)
	if err != nil {
		return false, errs.New(errs.IOError, "fsadapter.moveRemote", err)
	}
	req.Header.Set("Destination", strings.TrimSuffix(a.cfg.BaseURL, "/")+davproto.EscapePath(toTarget))
	req.Header.Set("Overwrite", "T")

	resp, err := a.pool.Do(true, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		// May be a never-uploaded file; the local rename proceeds anyway.
		return false, nil
	default:
		return false, errs.New(errs.IOError, "fsadapter.moveRemote", nil)
	}
}

// proppatchRemote issues a PROPPATCH setting (value != nil) or removing
// (value == nil) the given (namespace, name) property on p.
func (a *Adapter) proppatchRemote(p, namespace, name string, value []byte) error {
	body := davproto.FormatProppatch(namespace, name, value)

	req, err := http.NewRequest("PROPPATCH", a.target(p), bytes.NewReader(body))
	if err != nil {
		return errs.New(errs.IOError, "fsadapter.proppatchRemote", err)
	}
	req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)

	resp, err := a.pool.Do(true, func(s *session.Session) (*http.Response, error) {
		return s.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnsupportedMediaType || resp.StatusCode == http.StatusForbidden {
		return errs.New(errs.Unsupported, "fsadapter.proppatchRemote", nil)
	}
	return errs.New(errs.IOError, "fsadapter.proppatchRemote", nil)
}
