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

// Package errs defines the structured error taxonomy every subsystem returns,
// per the propagation policy: each subsystem produces a prefixed error chain
// and only internal/fuseserver converts the result to an errno, through
// ToErrno.
package errs

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Code identifies which branch of the taxonomy an Error belongs to.
type Code int

const (
	// NotFound corresponds to ENOENT: a remote 404 or a negative stat cache hit.
	NotFound Code = iota
	// NotDir corresponds to ENOTDIR: a directory operation applied to a file.
	NotDir
	// IsDir corresponds to EISDIR: a file operation applied to a directory.
	IsDir
	// NotEmpty corresponds to ENOTEMPTY: rmdir of a non-empty directory.
	NotEmpty
	// Exist corresponds to EEXIST: creation of an already-existing path.
	Exist
	// NetworkDown corresponds to ENETDOWN: transport failure, all-nodes 5xx, or
	// saint mode.
	NetworkDown
	// PreconditionStale corresponds to ESTALE. Internal: drives the directory
	// refresh engine's fall-through from progressive to full PROPFIND. Never
	// surfaced past internal/dirrefresh.
	PreconditionStale
	// TooBig corresponds to EFBIG: a write would exceed max_file_size.
	TooBig
	// Unsupported corresponds to ENOTSUP: PROPPATCH refused or unknown xattr.
	Unsupported
	// IOError corresponds to EIO: local filesystem or key/value store failure.
	IOError
	// KeyExpired is internal to the stat cache (freshness TTL exceeded). Never
	// surfaced outside internal/statcache.
	KeyExpired
)

// Error is a structured error carrying a taxonomy Code and an optional
// wrapped cause. Subsystems build chains with fmt.Errorf("Frob: %w", err);
// the leaf of such a chain is always an *Error so errors.As / Is works.
type Error struct {
	Code Code
	// Op names the operation that failed, e.g. "stat_cache.get".
	Op string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so callers can
// write errors.Is(err, errs.New(errs.NotFound, "", nil)) or, more idiomatically,
// use the Has helper below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New constructs an *Error for op with the given code, optionally wrapping err.
func New(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// Has reports whether err's chain contains an *Error of the given code.
func Has(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the taxonomy Code from err's chain, if any.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return 0, false
	}
	return e.Code, true
}

// ToErrno converts a structured error into the kernel errno the FUSE adapter
// should return. Errors outside the taxonomy (programmer bugs, unexpected
// stdlib errors) map to EIO rather than panicking, per spec.md §7's rule that
// best-effort cleanup must not overwrite an already-decided error but must
// still surface *something* sane.
func ToErrno(err error) unix.Errno {
	if err == nil {
		return 0
	}

	code, ok := CodeOf(err)
	if !ok {
		return unix.EIO
	}

	switch code {
	case NotFound:
		return unix.ENOENT
	case NotDir:
		return unix.ENOTDIR
	case IsDir:
		return unix.EISDIR
	case NotEmpty:
		return unix.ENOTEMPTY
	case Exist:
		return unix.EEXIST
	case NetworkDown:
		return unix.ENETDOWN
	case TooBig:
		return unix.EFBIG
	case Unsupported:
		return unix.ENOTSUP
	case IOError:
		return unix.EIO
	case PreconditionStale, KeyExpired:
		// These must never escape their owning package; if one does, treat it
		// as an internal error rather than let a meaningless errno leak out.
		return unix.EIO
	default:
		return unix.EIO
	}
}
