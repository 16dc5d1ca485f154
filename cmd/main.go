package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/duynhne/rango/config"
	database "github.com/duynhne/rango/internal/core"
	"github.com/duynhne/rango/internal/core/repository"
	"github.com/duynhne/rango/internal/logger"
	logicv1 "github.com/duynhne/rango/internal/logic/v1"
)

var (
	cfg      *config.Config
	seedFile string
)

var rootCmd = &cobra.Command{
	Use:   "rango",
	Short: "Rango category and page directory",
	Long: `Rango serves a directory of categories and pages with view tracking,
user registration and profiles.

Without a subcommand it runs the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long:  `Create every table and index. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()
		log.Info().Msg("Schema is up to date")
		return nil
	},
}

var populateCmd = &cobra.Command{
	Use:   "populate",
	Short: "Seed categories and pages",
	Long: `Get-or-create the categories and pages listed in a YAML file, or the
built-in tutorial data when --file is not given. Running it twice is harmless.`,
	RunE: runPopulate,
}

func init() {
	populateCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed file (default: built-in data)")
	rootCmd.AddCommand(serveCmd, migrateCmd, populateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// connect opens the pool and applies the schema.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pool, nil
}

func runPopulate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := loadSeed()
	if err != nil {
		return err
	}

	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	catalog := logicv1.NewCatalogService(repository.NewCategoryRepository(pool), repository.NewPageRepository(pool))
	res, err := catalog.Populate(ctx, data)
	if err != nil {
		return err
	}

	log.Info().Int("categories", res.Categories).Int("pages", res.Pages).Msg("Population complete")
	return nil
}

func loadSeed() (*logicv1.SeedData, error) {
	if seedFile == "" {
		return logicv1.DefaultSeed()
	}
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return logicv1.ParseSeed(raw)
}
