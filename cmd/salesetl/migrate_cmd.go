package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/migration"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the destination schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(a *app) error {
				// SQLite destinations are created from the models
				if strings.HasPrefix(a.cfg.Database.DSN(), persistence.SQLitePrefix) {
					_, err := a.openDatabase()
					return err
				}
				return withMigrator(a, func(m *migration.Migrator) error { return m.Up() })
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(a *app) error {
				return withMigrator(a, func(m *migration.Migrator) error { return m.Down() })
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "step <n>",
		Short: "Apply n migrations (positive=up, negative=down)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n == 0 {
				return withCode(exitConfig, fmt.Errorf("invalid step count %q", args[0]))
			}
			return withApp(cmd, root, func(a *app) error {
				return withMigrator(a, func(m *migration.Migrator) error { return m.Steps(n) })
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(a *app) error {
				return withMigrator(a, func(m *migration.Migrator) error {
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					if version == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d", version)
					if dirty {
						fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
					}
					fmt.Fprintln(cmd.OutOrStdout())
					return nil
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Force set the migration version (use with caution)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return withCode(exitConfig, fmt.Errorf("invalid version number %q", args[0]))
			}
			return withApp(cmd, root, func(a *app) error {
				return withMigrator(a, func(m *migration.Migrator) error { return m.Force(version) })
			})
		},
	})

	cmd.AddCommand(newMigrateCreateCmd(root))
	cmd.AddCommand(newMigrateListCmd())
	return cmd
}

func newMigrateCreateCmd(root *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create a new migration file pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := ""
			if len(args) > 1 {
				description = args[1]
			}
			return withApp(cmd, root, func(a *app) error {
				mf, err := migration.CreateMigration(dir, args[0], description)
				if err != nil {
					return err
				}
				a.log.Info("Migration created successfully",
					zap.String("version", mf.Version),
					zap.String("up_file", mf.UpPath),
					zap.String("down_file", mf.DownPath),
				)
				fmt.Fprintln(cmd.OutOrStdout(), mf.UpPath)
				fmt.Fprintln(cmd.OutOrStdout(), mf.DownPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", migration.DefaultDir, "Directory the migration files are written to")
	return cmd
}

func newMigrateListCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List migrations (embedded unless --dir is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var fsys fs.FS = migration.Files()
			if dir != "" {
				fsys = os.DirFS(dir)
			}
			migrations, err := migration.ListMigrations(fsys)
			if err != nil {
				return err
			}
			if len(migrations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No migrations found")
				return nil
			}
			for _, m := range migrations {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Read migrations from this directory")
	return cmd
}

// withApp bootstraps the process collaborators around fn
func withApp(cmd *cobra.Command, root *rootOptions, fn func(a *app) error) error {
	a, err := bootstrap(cmd.Context(), root, nil)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(cmd.Context()))
	return fn(a)
}

// withMigrator opens a migrator on the configured PostgreSQL destination
func withMigrator(a *app, fn func(m *migration.Migrator) error) error {
	dsn := a.cfg.Database.DSN()
	if dsn == "" {
		return &bulk.ConfigurationError{Setting: "database.url", Err: persistence.ErrMissingDSN}
	}
	if strings.HasPrefix(dsn, persistence.SQLitePrefix) {
		return bulk.NewConfigurationError("database.url", "versioned migrations need PostgreSQL; sqlite schemas are created by migrate up")
	}
	m, err := migration.Open(dsn, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			a.log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}
