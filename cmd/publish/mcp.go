package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	pubmcp "github.com/deixis/publish/internal/mcp"
)

func (a *app) mcpCmd() *cobra.Command {
	var (
		instructions bool
		httpAddr     string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(a.stdout, pubmcp.Instructions)
				return nil
			}
			return a.serve(cmd.Context(), httpAddr)
		},
	}

	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	return cmd
}

func (a *app) serve(ctx context.Context, httpAddr string) error {
	ws, err := a.load()
	if err != nil {
		return err
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}

	server := pubmcp.NewServer(ws.cfg, ws.runner, store, ws.root,
		pubmcp.WithProject(ws.meta),
		pubmcp.WithConfigPath(ws.configPath),
	)

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
