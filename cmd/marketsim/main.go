// Command marketsim runs the star market simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/talgya/star-market/internal/catalog"
	"github.com/talgya/star-market/internal/entropy"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", "error", err)
	}

	root := &cobra.Command{
		Use:          "marketsim",
		Short:        "Star market trading simulation",
		SilenceUsage: true,
	}
	root.AddCommand(
		newServeCmd(),
		newSimulateCmd(),
		newCatalogCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadCatalog reads the catalog at path, or the embedded one when empty.
func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}

// newSource returns a reproducible source for a non-zero seed and the
// crypto source otherwise.
func newSource(seed int64) entropy.Source {
	if seed == 0 {
		return entropy.Crypto{}
	}
	return entropy.NewSeeded(seed)
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the item catalog",
	}
	var path string
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Report dangling references in a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = os.Getenv("STARMARKET_CATALOG")
			}
			cat, err := loadCatalog(path)
			if err != nil {
				return err
			}
			if err := cat.Validate(); err != nil {
				return fmt.Errorf("catalog invalid:\n%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalog ok: %d items, %d traders, %d galaxies, %d events\n",
				len(cat.Items), len(cat.Traders), len(cat.Galaxies), len(cat.Events))
			return nil
		},
	}
	validate.Flags().StringVar(&path, "path", "", "catalog YAML file (default: embedded)")
	cmd.AddCommand(validate)
	return cmd
}
