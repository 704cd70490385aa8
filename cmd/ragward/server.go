package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/perimeterlab/ragward/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the guarded pipeline over HTTP and MCP (foreground)",
	Long: `Serve the guarded pipeline over HTTP and MCP.

The HTTP API listens on the configured port (query, ingest, scan and
audit endpoints, bearer auth when RAGWARD_API_TOKEN is set). The MCP
server speaks stdio, so an agent host can spawn "ragward serve" directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mcpOnly, _ := cmd.Flags().GetBool("mcp-only")
		return runServer(mcpOnly)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp-only", false, "serve only the MCP stdio transport")
}

func runServer(mcpOnly bool) error {
	fmt.Fprintf(os.Stderr, "ragward version %s\n", version)

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !a.engine.IsRunning(ctx) {
		printWarning("Ollama is not reachable at %s; queries will fail until it is up", a.cfg.Ollama.BaseURL)
	}

	// MCP server on stdio.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Pipeline: a.pipeline,
		Gate:     a.gate,
		Scanner:  a.scanner,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	if mcpOnly {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		return nil
	}

	handler := api.NewAppHandler(api.AppDeps{
		Pipeline:   a.pipeline,
		Gate:       a.gate,
		Scanner:    a.scanner,
		LedgerPath: a.cfg.LedgerPath(),
		Token:      a.cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", a.cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "ragward listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
