package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"straus/internal/config"
	"straus/internal/database"
	"straus/internal/logger"
	"straus/internal/repository"
	"straus/internal/seed"
	"straus/internal/service"
	"straus/migrations"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "straus-seed",
		Short:        "Local data and credentials for the shop API",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		catalogCommand(),
		tokenCommand(),
		migrationsCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func catalogCommand() *cobra.Command {
	var force bool
	var randomSeed uint64

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Populate five demo categories with eight products each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			log, err := logger.New(cfg.Server.Env, "straus-seed")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			if !cmd.Flags().Changed("random-seed") {
				randomSeed = viper.GetUint64("SEED_RANDOM_SEED")
				if randomSeed == 0 {
					randomSeed = uint64(time.Now().UnixNano())
				}
			}

			dbService, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			if err := database.RunMigrations(dbService.DB(), migrations.FS, log); err != nil {
				return err
			}

			db := dbService.DB()
			catalog := service.NewCatalogService(
				repository.NewCategoryRepository(db),
				repository.NewProductRepository(db),
				log,
			)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			result, err := seed.New(catalog, randomSeed, log).Run(ctx, force)
			if err != nil {
				return err
			}

			log.Info("Seed completed",
				zap.Int("categories", result.Categories),
				zap.Int("products", result.Products),
				zap.Bool("skipped", result.Skipped),
				zap.Uint64("random_seed", randomSeed),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "seed even when categories already exist")
	cmd.Flags().Uint64Var(&randomSeed, "random-seed", 0, "seed for product prices (default SEED_RANDOM_SEED or the clock)")
	return cmd
}

func tokenCommand() *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a short-lived admin bearer token signed with JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("JWT_SECRET must be set")
			}

			token, err := service.NewTokenService(cfg.JWT.Secret).Issue(userID, service.RoleAdmin, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "local-admin", "user_id claim of the token")
	cmd.Flags().DurationVar(&ttl, "ttl", service.DefaultTokenExpiration, "token lifetime")
	return cmd
}

func migrationsCommand() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrations",
		Short: "Apply pending schema migrations and print their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			log, err := logger.New(cfg.Server.Env, "straus-seed")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer log.Sync()

			dbService, err := database.New(cfg.Database)
			if err != nil {
				return err
			}
			defer dbService.Close()

			if !statusOnly {
				if err := database.RunMigrations(dbService.DB(), migrations.FS, log); err != nil {
					return err
				}
			}

			return database.GetMigrationStatus(dbService.DB(), migrations.FS)
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "only print the status, apply nothing")
	return cmd
}
