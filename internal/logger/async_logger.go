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

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger decouples log writers from the underlying sink (typically a
// rotating file) with a bounded channel, so a slow disk never blocks a
// session/statcache/filecache goroutine mid-operation. Messages are dropped,
// with a warning to stderr, if the buffer is full rather than applying
// backpressure to callers.
type AsyncLogger struct {
	out     io.Writer
	entries chan []byte
	done    chan struct{}
	closeWG sync.WaitGroup
}

// NewAsyncLogger starts a background goroutine that drains writes into out.
// bufferSize bounds how many pending writes may queue before new ones are
// dropped.
func NewAsyncLogger(out io.Writer, bufferSize int) *AsyncLogger {
	al := &AsyncLogger{
		out:     out,
		entries: make(chan []byte, bufferSize),
		done:    make(chan struct{}),
	}

	al.closeWG.Add(1)
	go al.run()

	return al
}

func (al *AsyncLogger) run() {
	defer al.closeWG.Done()

	for entry := range al.entries {
		al.out.Write(entry)
	}
}

// Write implements io.Writer. It never blocks: if the buffer is full the
// entry is dropped and noted on stderr.
func (al *AsyncLogger) Write(p []byte) (int, error) {
	entry := make([]byte, len(p))
	copy(entry, p)

	select {
	case al.entries <- entry:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}

	return len(p), nil
}

// Close drains any queued entries and stops the background goroutine. If the
// underlying writer implements io.Closer, it is closed as well.
func (al *AsyncLogger) Close() error {
	close(al.entries)
	al.closeWG.Wait()

	if c, ok := al.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
