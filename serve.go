package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/config"
	"github.com/diegoturueno/provokers-tool/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the case tools over MCP (stdio or streamable HTTP)",
		Args:  cobra.NoArgs,
		RunE:  a.serve,
	}
	cmd.Flags().String("transport", "", "transport mode: stdio or http")
	cmd.Flags().String("addr", "", "listen address for --transport http")
	_ = a.v.BindPFlag(config.KeyServerTransport, cmd.Flags().Lookup("transport"))
	_ = a.v.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) serve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(store, a.newEngine(ctx, store), server.Options{
		Version:      version,
		PhaseTimeout: a.cfg.Model.Timeout,
	})
	log := a.logger.With(zap.String("transport", a.cfg.Server.Transport))

	switch a.cfg.Server.Transport {
	case "stdio":
		log.Info("MCP server starting", zap.String("db", a.cfg.DB.Path))
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serve stdio: %w", err)
		}
		return nil
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return srv
		}, nil)
		return a.serveHTTP(ctx, log, handler)
	default:
		return fmt.Errorf("unknown transport %q (use stdio or http)", a.cfg.Server.Transport)
	}
}

// serveHTTP runs handler until ctx is cancelled, then drains connections.
func (a *app) serveHTTP(ctx context.Context, log *zap.Logger, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("MCP server listening", zap.String("addr", httpSrv.Addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	log.Info("MCP server stopped")
	return nil
}
