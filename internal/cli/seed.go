package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tyrowin/tapwars/internal/factory"
	"github.com/Tyrowin/tapwars/internal/model"
)

func newSeedCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default shop catalog into the configured store",
		Long: `Insert every default shop item that the store does not have yet.
Existing items are left untouched, so running it twice is safe.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			factoryCfg, err := cfg.FactoryConfig(logger)
			if err != nil {
				return err
			}

			store, err := factory.NewStorage(factoryCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			catalog := model.DefaultCatalog()
			if err := factory.SeedCatalog(store, catalog); err != nil {
				return err
			}

			items, err := store.ListShopItems(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing shop items: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "shop catalog seeded (%d items in %s store)\n", len(items), factoryCfg.StorageType)
			for _, item := range items {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %-12s %-14s %6d  %s +%d\n", item.ID, item.Name, item.Price, item.Kind, item.Value)
			}
			return nil
		},
	}
}
