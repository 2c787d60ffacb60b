package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/David-Botos/tag-remediation/pkg/server"
)

func (c *cli) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the remediation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if c.cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			if addr == "" {
				addr = c.cfg.ListenAddr
			}

			dataCleaner, err := c.newCleaner()
			if err != nil {
				return err
			}
			metrics, registry, err := c.newMetrics()
			if err != nil {
				return err
			}
			defer c.finishMetrics(cmd, metrics)

			recorder, closeRecorder, err := c.openRecorder(ctx)
			if err != nil {
				return fmt.Errorf("failed to open audit sink: %w", err)
			}
			defer closeRecorder()

			srv, err := server.New(c.logger.Named("server"), dataCleaner, c.newSession(recorder, metrics),
				server.WithMetrics(metrics, registry))
			if err != nil {
				return err
			}
			return srv.Run(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LISTEN_ADDR)")
	return cmd
}
