package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/tools/common"
	"github.com/pedalacom/catalog-api/internal/tools/ui"
)

type options struct {
	envFile string
	migrate bool
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Sample catalog seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.migrate, "migrate", true, "apply schema migrations before seeding")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newCountsCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Insert the sample catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "apply", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				if opts.migrate {
					if err := database.Migrate(db); err != nil {
						return nil, err
					}
				}
				report, err := database.SeedSync(db)
				if err != nil {
					return nil, err
				}
				return reportDetails(report), nil
			})
			return finish(opts, "seed apply", details, err)
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "dry-run", func(ctx context.Context) ([]string, error) {
				return []string{
					"would ensure top-level categories and their subcategories by name",
					"would ensure product models with localized descriptions",
					fmt.Sprintf("would ensure %d sample products by product number", database.SampleProductCount),
					"existing rows are left untouched",
				}, nil
			})
			return finish(opts, "seed dry-run", details, err)
		},
	}
}

func newCountsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show current catalog row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "counts", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer closeDB(db)
				return catalogCounts(ctx, db)
			})
			return finish(opts, "seed counts", details, err)
		},
	}
}

func reportDetails(report *database.SeedReport) []string {
	if report.Noop {
		return []string{"sample catalog already present; nothing created"}
	}
	return []string{
		fmt.Sprintf("created_categories=%d", report.CreatedCategories),
		fmt.Sprintf("created_models=%d", report.CreatedModels),
		fmt.Sprintf("created_descriptions=%d", report.CreatedDescriptions),
		fmt.Sprintf("created_products=%d", report.CreatedProducts),
	}
}

func catalogCounts(ctx context.Context, db *gorm.DB) ([]string, error) {
	tables := []struct {
		label string
		model any
	}{
		{"categories", &domain.ProductCategory{}},
		{"models", &domain.ProductModel{}},
		{"descriptions", &domain.ProductDescription{}},
		{"products", &domain.Product{}},
	}
	out := make([]string, 0, len(tables))
	for _, tbl := range tables {
		var n int64
		if err := db.WithContext(ctx).Model(tbl.model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", tbl.label, err)
		}
		out = append(out, fmt.Sprintf("%s=%d", tbl.label, n))
	}
	return out, nil
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

func run(opts *options, command string, fn func(context.Context) ([]string, error)) ([]string, error) {
	defer common.StartTelemetry(opts.envFile, "seed")()
	fn = common.Track("seed", command, fn)
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run("seed "+command, fn)
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
