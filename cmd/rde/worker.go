// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/rde/internal/bootstrap"
	"github.com/kraklabs/rde/internal/config"
	"github.com/kraklabs/rde/internal/errors"
)

// runWorker executes the 'worker' CLI command.
//
// It claims pending repositories from the queue and runs the documentation
// pipeline on each, while a background updater refreshes documentation for
// completed git repositories whose update interval has elapsed. The worker
// runs until interrupted.
//
// Flags:
//   - --owner: Lease owner identity (default: hostname plus a random suffix)
//   - --metrics-addr: Address for the Prometheus /metrics endpoint (empty disables)
//
// Examples:
//
//	rde worker
//	rde worker --owner worker-1 --metrics-addr :9090
func runWorker(args []string, configPath string, logger *slog.Logger) {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	var (
		owner       = fs.String("owner", "", "Lease owner identity")
		metricsAddr = fs.String("metrics-addr", "", "Prometheus /metrics listen address (empty disables)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: rde worker [options]

Runs the processing worker and incremental updater until interrupted.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		errors.FatalError(err, false)
	}
	app, err := bootstrap.Open(cfg, logger)
	if err != nil {
		errors.FatalError(err, false)
	}
	defer func() { _ = app.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr, logger)
	}

	w := app.NewWorker(*owner)
	logger.Info("worker.start", "owner", w.Owner(), "provider", app.Provider.Name())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil && !goerrors.Is(err, context.Canceled) {
			logger.Error("worker.run", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := w.RunUpdater(ctx); err != nil && !goerrors.Is(err, context.Canceled) {
			logger.Error("worker.updater", "error", err)
		}
	}()
	wg.Wait()

	logger.Info("worker.stop")
}

// serveMetrics exposes the Prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("metrics.listen", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics.serve", "error", err)
	}
}
