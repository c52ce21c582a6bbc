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

package session

import "net/http"

// Transport executes an HTTP request and returns its response, matching
// spec.md's treatment of the HTTP client as "a request executor with
// headers, body, response-code retrieval, and per-host resolve overrides."
// Session pool logic never touches net/http directly so tests can substitute
// a fake.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTransport adapts a *http.Client to Transport.
type HTTPTransport struct {
	Client *http.Client
}

// NewHTTPTransport returns a Transport backed by client. If client is nil, a
// default *http.Client is used.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) Do(req *http.Request) (*http.Response, error) {
	return t.Client.Do(req)
}
