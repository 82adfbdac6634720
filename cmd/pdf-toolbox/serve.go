// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pdf-toolbox/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI",
	Long: `Serve starts the browser UI. When the port is taken the next nine ports
are tried in turn.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := state.cfg
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		svc, registry := state.services()
		defer svc.Close()

		server := web.NewServer(registry, web.Options{
			Port:        cfg.Server.Port,
			MaxUploadMB: cfg.Server.MaxUploadMB,
			ArtifactTTL: cfg.Server.ArtifactTTL,
		}, state.observer)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			state.logger.Info("Shutting down web UI")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errCh
		}
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port for the web UI")
	rootCmd.AddCommand(serveCmd)
}
