package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"docchat/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve [file...]",
		Short: "Run the HTTP API, optionally preloading documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRuntime(cmd, false)
			if err != nil {
				return err
			}
			defer r.Close()

			if len(args) > 0 {
				if _, err := r.ingest(cmd.Context(), args); err != nil {
					return err
				}
			}
			if addr == "" {
				addr = r.cfg.Server.Addr
			}
			if !r.cfg.Logging.Debug {
				gin.SetMode(gin.ReleaseMode)
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewRouter(httpapi.NewAPI(r.svc, r.logger.With("component", "http"))),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				r.logger.Info("listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()
			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			r.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config server.addr)")
	return cmd
}
