package cli

import (
	"fmt"

	"github.com/example/musclecards/internal/catalog"
	"github.com/example/musclecards/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and export the card catalog",
	}
	cmd.AddCommand(newCatalogTemplateCmd(opts), newCatalogListCmd(opts))
	return cmd
}

// catalogOnly loads the catalog without touching the database
func catalogOnly(opts *rootOptions) (config.CatalogConfig, error) {
	cfg, err := config.Init(opts.configPath)
	if err != nil {
		return config.CatalogConfig{}, fmt.Errorf("load config: %w", err)
	}
	if opts.catalogPath != "" {
		cfg.Catalog.Path = opts.catalogPath
	}
	return cfg.Catalog, nil
}

func newCatalogTemplateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template <path.xlsx>",
		Short: "Write the current catalog as an Excel sheet to edit and load with --catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catCfg, err := catalogOnly(opts)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(catCfg, zap.NewNop())
			if err != nil {
				return err
			}
			if err := catalog.WriteXLSX(args[0], cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cards to %s\n", cat.Len(), args[0])
			return nil
		},
	}
}

func newCatalogListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cards of the catalog in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catCfg, err := catalogOnly(opts)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(catCfg, zap.NewNop())
			if err != nil {
				return err
			}

			w := newTabWriter(cmd.OutOrStdout())
			fmt.Fprintln(w, "#\tID\tTOPIC\tPROMPT")
			for i, card := range cat.Cards() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, card.ID, card.Topic, card.Prompt)
			}
			fmt.Fprintf(w, "fingerprint\t%s\n", cat.Fingerprint())
			return w.Flush()
		},
	}
}
