package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Run without a subcommand it serves
// the game.
func NewRootCmd() *cobra.Command {
	cfg := DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tapwars",
		Short: "Real-time multiplayer clicker game server",
		Long: `tapwars runs the clicker game server: players connect over WebSocket,
claim a nickname, tap for coins, buy upgrades and chat.

Storage can be kept in memory, in Redis or in PostgreSQL.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.StorageType, "storage", cfg.StorageType, "Storage backend: memory, redis, postgres (env: STORAGE_TYPE)")
	rootCmd.PersistentFlags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL (env: REDIS_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	addServeFlags(rootCmd, cfg)

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newSeedCmd(cfg))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
