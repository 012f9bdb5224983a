package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockberries/chainbridge/archive"
	"github.com/blockberries/chainbridge/config"
)

var importCmd = &cobra.Command{
	Use:   "import <fixtures.json>",
	Short: "Import accounts and transactions into the archive",
	Long: `Import a JSON fixture document into the configured on-disk archive.

Example:
  chainbridge import fixtures.json --config config.toml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	switch cfg.Transport.Kind {
	case config.TransportLevelDB, config.TransportBadgerDB:
	default:
		return fmt.Errorf("import needs an on-disk archive transport, have %q", cfg.Transport.Kind)
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening fixtures: %w", err)
	}
	defer f.Close()

	store, err := openArchive(cfg.Transport)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	stats, importErr := archive.ImportFixtures(store, f)
	if err := store.Close(); err != nil && importErr == nil {
		importErr = fmt.Errorf("closing archive: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts and %d transactions into %s\n",
		stats.Accounts, stats.Transactions, cfg.Transport.Path)
	return importErr
}
