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

// Command fusedav mounts a remote WebDAV collection as a local POSIX
// directory tree. This package owns only what spec.md marks out of scope
// for the core: flag parsing, logger/cache-directory setup, privilege
// dropping, and signal-driven shutdown. Every behavioral decision lives in
// internal/*.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kf6nux/fusedav/internal/clock"
	"github.com/kf6nux/fusedav/internal/dirrefresh"
	"github.com/kf6nux/fusedav/internal/filecache"
	"github.com/kf6nux/fusedav/internal/fsadapter"
	"github.com/kf6nux/fusedav/internal/fuseserver"
	"github.com/kf6nux/fusedav/internal/kv"
	"github.com/kf6nux/fusedav/internal/logger"
	"github.com/kf6nux/fusedav/internal/maintenance"
	"github.com/kf6nux/fusedav/internal/session"
	"github.com/kf6nux/fusedav/internal/statcache"
)

const (
	statCacheNegativeTTLDefault = 10 * time.Second
	statCachePositiveTTLDefault = 60 * time.Second
	cacheCleanupIntervalDefault = 10 * time.Minute
)

func newRootCmd() *cobra.Command {
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:   "fusedav --uri=<webdav-url> [flags] <mountpoint>",
		Short: "Mount a remote WebDAV collection as a local filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mountpoint, err := resolveMountpoint(args[0])
			if err != nil {
				return err
			}
			cfg.Mountpoint = mountpoint

			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	bindFlags(cmd, cfg)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// severityFromString maps the --log-level flag onto logger.Severity,
// defaulting to INFO on anything unrecognized.
func severityFromString(s string) logger.Severity {
	switch s {
	case "trace":
		return logger.TRACE
	case "debug":
		return logger.DEBUG
	case "info":
		return logger.INFO
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// run wires every subsystem package together per SPEC_FULL.md's module map
// and blocks serving FUSE callbacks until signaled to shut down.
func run(cfg *Config) error {
	if cfg.LogPath != "" {
		al := logger.ConfigureFile(logger.FileOptions{
			Path:       cfg.LogPath,
			MaxSizeMB:  cfg.MaxLogSizeMB,
			MaxBackups: cfg.MaxLogBackups,
			MaxAgeDays: cfg.MaxLogAgeDays,
			Compress:   true,
		}, cfg.LogFormat)
		defer al.Close()
	} else {
		logger.Configure(os.Stderr, cfg.LogFormat)
	}

	sev := severityFromString(cfg.LogLevel)
	mainLog := logger.New("main", sev)

	if err := os.MkdirAll(cfg.CachePath, 0700); err != nil {
		return fmt.Errorf("creating cache-path: %w", err)
	}
	filesDir := filepath.Join(cfg.CachePath, "files")
	havenDir := filepath.Join(cfg.CachePath, "forensic-haven")
	levelDir := filepath.Join(cfg.CachePath, "leveldb")
	for _, d := range []string{filesDir, havenDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
	}

	store, err := kv.Open(levelDir)
	if err != nil {
		return fmt.Errorf("opening leveldb store at %s: %w", levelDir, err)
	}
	defer store.Close()

	httpClient, err := buildHTTPClient(cfg)
	if err != nil {
		return err
	}
	transport := session.NewHTTPTransport(httpClient)

	nodes := make([]session.Node, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		nodes = append(nodes, session.Node{BaseURL: n})
	}

	clk := clock.RealClock{}

	pool := session.NewPool(nodes, transport, clk, logger.New("session", sev))
	stat := statcache.New(store, clk, logger.New("statcache", sev), cfg.StatCacheNegativeTTL, cfg.StatCachePositiveTTL)
	files := filecache.New(filesDir, havenDir, cfg.MaxFileSizeMB*1024*1024, clk, logger.New("filecache", sev))
	refresh := dirrefresh.New(pool, stat, files, clk, logger.New("dirrefresh", sev), cfg.URI, cfg.ProgressivePropfind)

	adapter := fsadapter.New(stat, files, refresh, pool, clk, logger.New("fsadapter", sev), fsadapter.Config{
		BaseURL:               cfg.URI,
		Uid:                   uint32(cfg.RunAsUid),
		Gid:                   uint32(cfg.RunAsGid),
		Umask:                 currentUmask(),
		RefreshDirForFileStat: cfg.RefreshDirForFileStat,
	})

	maint := maintenance.New(files, clk, logger.New("maintenance", sev), cfg.CacheCleanupInterval, nil, 0)
	if err := maint.Start(context.Background()); err != nil {
		return fmt.Errorf("starting maintenance: %w", err)
	}
	defer maint.Stop()

	if err := dropPrivileges(cfg.RunAsUid, cfg.RunAsGid); err != nil {
		return fmt.Errorf("dropping privileges: %w", err)
	}

	srv := fuseserver.New(adapter, logger.New("fuseserver", sev), cfg.Mountpoint, "fusedav", cfg.SingleThread)
	if err := srv.Mount(); err != nil {
		return fmt.Errorf("mounting %s: %w", cfg.Mountpoint, err)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.Serve()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		mainLog.Infof("received signal %s, unmounting %s", sig, cfg.Mountpoint)
		if err := srv.Close(); err != nil {
			mainLog.Warnf("closing fuse connection: %v", err)
		}
		<-serveErrCh
	case err := <-serveErrCh:
		if err != nil {
			mainLog.Errorf("fuse serve loop exited: %v", err)
			return err
		}
	}

	mainLog.Infof("clean shutdown")
	return nil
}
