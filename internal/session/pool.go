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

// Package session implements the session pool (component A): it produces
// per-request HTTP sessions bound to one of a configured set of backend
// nodes, rotates through nodes on failure, and tracks the process-wide
// saint-mode flag that degrades the filesystem to read-only on sustained
// network failure.
package session

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kf6nux/fusedav/internal/clock"
	"github.com/kf6nux/fusedav/internal/errs"
	"github.com/kf6nux/fusedav/internal/logger"
)

// Node identifies one backend server participating in the pool.
type Node struct {
	// BaseURL is the scheme+host the node is reached at, e.g. "https://dav1.example.com".
	BaseURL string
}

// Session is bound to a single Node for the duration of one request.
type Session struct {
	node      Node
	transport Transport
}

// Node reports which backend this session is bound to.
func (s *Session) Node() Node { return s.node }

// Do issues req against this session's node through the pool's transport.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.transport.Do(req)
}

// Pool hands out Sessions bound to a rotating set of backend nodes and
// tracks saint mode.
//
// Dependencies
type Pool struct {
	transport Transport
	clock     clock.Clock
	log       *logger.Logger

	// Constant data
	rr *RoundRobin[Node]

	// Mutable state
	mu      sync.Mutex
	sticky  Node
	hasNode bool
	saint   atomic.Bool
}

// NewPool returns a Pool rotating across nodes. nodes must be non-empty.
func NewPool(nodes []Node, transport Transport, clk clock.Clock, log *logger.Logger) *Pool {
	return &Pool{
		transport: transport,
		clock:     clk,
		log:       log,
		rr:        New(nodes),
	}
}

// SetSaint sets the process-wide saint-mode flag.
func (p *Pool) SetSaint() {
	if !p.saint.Swap(true) {
		p.log.Warnf("entering saint mode")
	}
}

// ClearSaint clears saint mode via the explicit recovery path; nothing in
// this package calls it automatically.
func (p *Pool) ClearSaint() {
	if p.saint.Swap(false) {
		p.log.Infof("leaving saint mode")
	}
}

// InSaint reports whether the pool is currently in saint mode.
func (p *Pool) InSaint() bool {
	return p.saint.Load()
}

func (p *Pool) setSticky(n Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sticky = n
	p.hasNode = true
}

// orderedNodes returns the node visiting order for one retry loop: the
// sticky node (the last node a request succeeded against) first, if any,
// followed by a fresh rotation over the remaining nodes.
func (p *Pool) orderedNodes() []Node {
	total := p.rr.Len()
	if total == 0 {
		return nil
	}

	p.mu.Lock()
	sticky, hasSticky := p.sticky, p.hasNode
	p.mu.Unlock()

	order := make([]Node, 0, total)
	if hasSticky {
		order = append(order, sticky)
	}

	for len(order) < total {
		n, ok := p.rr.Get()
		if !ok {
			break
		}
		if hasSticky && n.BaseURL == sticky.BaseURL {
			continue
		}
		order = append(order, n)
	}

	return order
}

// Do runs fn once per node, in rotation order, until a request completes
// with a status code below 500 (2xx-4xx all count as a terminating
// response) or every node has been tried. mutating operations refuse to run
// at all while the pool is in saint mode. Transport failures and 5xx
// responses on every node transition the pool into saint mode.
func (p *Pool) Do(mutating bool, fn func(*Session) (*http.Response, error)) (*http.Response, error) {
	if mutating && p.InSaint() {
		return nil, errs.New(errs.NetworkDown, "session.Do", nil)
	}

	nodes := p.orderedNodes()
	if len(nodes) == 0 {
		return nil, errs.New(errs.NetworkDown, "session.Do", fmt.Errorf("no backend nodes configured"))
	}

	var lastErr error
	for _, n := range nodes {
		sess := &Session{node: n, transport: p.transport}

		resp, err := fn(sess)
		if err != nil {
			p.log.Debugf("node %s transport failure: %v", n.BaseURL, err)
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			p.log.Debugf("node %s returned %d", n.BaseURL, resp.StatusCode)
			lastErr = fmt.Errorf("node %s: status %d", n.BaseURL, resp.StatusCode)
			resp.Body.Close()
			continue
		}

		p.setSticky(n)
		return resp, nil
	}

	p.SetSaint()
	return nil, errs.New(errs.NetworkDown, "session.Do", lastErr)
}
