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
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// basicAuthTransport decorates an http.RoundTripper with HTTP Basic auth,
// since the session pool's Transport interface (internal/session) only
// executes requests — it does not know about credentials. spec.md treats
// the HTTP client as an external collaborator; this is the thin adapter
// cmd/fusedav owns to configure it.
type basicAuthTransport struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" || t.password != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient assembles the *http.Client wrapped by
// session.NewHTTPTransport, applying TLS verification and client
// certificate options from Config.
func buildHTTPClient(cfg *Config) (*http.Client, error) {
	tlsCfg := &tls.Config{}

	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("reading ca-cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca-cert %q contains no usable certificates", cfg.CACert)
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientCert)
		if err != nil {
			return nil, fmt.Errorf("loading client-cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	transport := &http.Transport{TLSClientConfig: tlsCfg}

	var rt http.RoundTripper = transport
	if cfg.Username != "" || cfg.Password != "" {
		rt = &basicAuthTransport{base: transport, username: cfg.Username, password: cfg.Password}
	}

	return &http.Client{Transport: rt}, nil
}
