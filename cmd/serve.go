package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hcdonia/planner-app/internal/logging"
	"github.com/hcdonia/planner-app/internal/tools"
)

func newServeCmd() *cobra.Command {
	var (
		transport      string
		httpAddr       string
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the planner's
scheduling, knowledge and to-do tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			var metricsServer *http.Server
			if metricsEnabled && a.provider != nil && a.provider.Enabled() {
				metricsServer = startMetricsServer(a, metricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := metricsServer.Shutdown(shutdownCtx); err != nil {
						a.logger.Warn("metrics server shutdown failed", logging.Err(err))
					}
				}()
			}

			mcpSrv := mcpserver.NewMCPServer("planner", version,
				mcpserver.WithToolCapabilities(true),
			)
			registerMCPTools(mcpSrv, a.registry)

			switch transport {
			case "stdio":
				return runStdioServer(mcpSrv)
			case "streamable-http":
				return runStreamableHTTPServer(ctx, a, mcpSrv, httpAddr)
			default:
				return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", transport)
			}
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "stdio", "Transport type (stdio or streamable-http)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "Address for the streamable-http transport")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Start the Prometheus metrics server")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Address for the metrics server")
	return cmd
}

// registerMCPTools exposes every registry tool over MCP. The registry
// already carries JSON Schema definitions, so they are attached verbatim.
func registerMCPTools(s *mcpserver.MCPServer, registry *tools.Registry) {
	for _, def := range registry.Defs() {
		name := def.Function.Name
		tool := mcp.NewToolWithRawSchema(name, def.Function.Description, def.Function.Parameters)
		s.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := json.Marshal(request.GetArguments())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to encode arguments: %v", err)), nil
			}
			result := registry.Dispatch(ctx, name, args)
			return mcp.NewToolResultText(string(result)), nil
		})
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, a *app, mcpSrv *mcpserver.MCPServer, addr string) error {
	httpSrv := mcpserver.NewStreamableHTTPServer(mcpSrv)
	a.logger.Info("starting MCP server", "transport", "streamable-http", "addr", addr)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpSrv.Start(addr); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// startMetricsServer serves /metrics and /health on its own listener.
func startMetricsServer(a *app, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.provider.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		a.logger.Info("starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return srv
}
