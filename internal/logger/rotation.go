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

import "gopkg.in/natefinch/lumberjack.v2"

// FileOptions configures on-disk log rotation.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// ConfigureFile points every subsequently created Logger at a rotating file,
// written through an AsyncLogger so a stalled disk never blocks a caller.
// Returns the AsyncLogger so cmd/fusedav can Close it during shutdown.
func ConfigureFile(opts FileOptions, format string) *AsyncLogger {
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}

	al := NewAsyncLogger(lj, 4096)
	Configure(al, format)
	return al
}
