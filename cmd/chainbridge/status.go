package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockberries/chainbridge/rpc/jsonrpc"
)

var statusRPCAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a JSON-RPC backend",
	Long: `Check that a chainbridge JSON-RPC backend is serving.

Example:
  chainbridge status
  chainbridge status --rpc http://localhost:8081`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusRPCAddr, "rpc", "", "JSON-RPC server address (defaults to transport.endpoint)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	clientCfg := clientConfig(cfg.Transport)
	if statusRPCAddr != "" {
		clientCfg.Endpoint = statusRPCAddr
	}
	clientCfg.RateLimit = 0

	client, err := jsonrpc.NewClient(clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Health(ctx); err != nil {
		return fmt.Errorf("backend at %s is not healthy: %w", client.Endpoint(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Backend at %s is healthy (%s)\n",
		client.Endpoint(), time.Since(start).Round(time.Millisecond))
	return nil
}
