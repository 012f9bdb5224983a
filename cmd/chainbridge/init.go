package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockberries/chainbridge/config"
)

var (
	initDataDir   string
	initTransport string
	initEndpoint  string
	initOverride  bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long: `Initialize a chainbridge configuration file and data directory.

This command creates:
  - config.toml: Bridge, transport, server and telemetry configuration
  - data/archive/: Archive directory for on-disk transports

Example:
  chainbridge init --transport leveldb
  chainbridge init --transport jsonrpc --endpoint http://10.0.0.5:8081`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().StringVar(&initTransport, "transport", "jsonrpc", "transport kind (jsonrpc, leveldb, badgerdb, memory)")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "JSON-RPC endpoint for the jsonrpc transport")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}

	// Check if config already exists
	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.Transport.Kind = config.TransportKind(initTransport)
	cfg.Transport.Path = filepath.Join(dataDir, "data", "archive")
	if initEndpoint != "" {
		cfg.Transport.Endpoint = initEndpoint
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized chainbridge\n")
	fmt.Fprintf(out, "  Transport:   %s\n", cfg.Transport.Kind)
	if cfg.Transport.Kind == config.TransportJSONRPC {
		fmt.Fprintf(out, "  Endpoint:    %s\n", cfg.Transport.Endpoint)
	} else {
		fmt.Fprintf(out, "  Archive:     %s\n", cfg.Transport.Path)
	}
	fmt.Fprintf(out, "  Config:      %s\n", configPath)

	return nil
}
