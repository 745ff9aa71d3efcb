package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/tools/common"
	"github.com/pedalacom/catalog-api/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Catalog schema migration tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newUpCommand(opts),
		newStatusCommand(opts),
		newPlanCommand(opts),
	)
	return cmd
}

func newUpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply catalog schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "migrate up", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)

				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return []string{"schema migration applied", "driver: " + cfg.DatabaseDriver, "service: " + cfg.OTELServiceName}, nil
			})
			return finish(opts, "migrate up", details, err)
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report which catalog tables exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "migrate status", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				return tableStatus(db), nil
			})
			return finish(opts, "migrate status", details, err)
		},
	}
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show migration plan (dry-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "migrate plan", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				pending := make([]string, 0)
				for _, model := range database.Models() {
					if !db.Migrator().HasTable(model) {
						pending = append(pending, tableName(db, model))
					}
				}
				if len(pending) == 0 {
					return []string{"schema up to date; AutoMigrate would only reconcile columns", "no mutation executed in plan mode"}, nil
				}
				return []string{
					"would create tables: " + strings.Join(pending, ", "),
					"no mutation executed in plan mode",
				}, nil
			})
			return finish(opts, "migrate plan", details, err)
		},
	}
}

func tableStatus(db *gorm.DB) []string {
	models := database.Models()
	out := make([]string, 0, len(models))
	for _, model := range models {
		state := "missing"
		if db.Migrator().HasTable(model) {
			state = "present"
		}
		out = append(out, fmt.Sprintf("%s: %s", tableName(db, model), state))
	}
	return out
}

func tableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}

func finish(opts *options, title string, details []string, err error) error {
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
	}
	if err != nil {
		os.Exit(3)
	}
	return nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	defer common.StartTelemetry(opts.envFile, "migrate")()
	fn = common.Track("migrate", strings.TrimPrefix(title, "migrate "), fn)
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
