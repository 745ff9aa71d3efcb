package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/config"
	"github.com/pedalacom/catalog-api/internal/database"
	"github.com/pedalacom/catalog-api/internal/repository"
	"github.com/pedalacom/catalog-api/internal/tools/common"
	"github.com/pedalacom/catalog-api/internal/tools/ui"
)

type options struct {
	envFile string
	out     string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "export", Short: "Catalog export tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", time.Minute, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newXLSXCommand(opts))
	return cmd
}

func newXLSXCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write the product catalog to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "export xlsx", func(ctx context.Context) ([]string, error) {
				db, err := loadDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() {
					if sqlDB, err := db.DB(); err == nil {
						_ = sqlDB.Close()
					}
				}()
				return ExportCatalog(ctx, db, opts.out)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "export xlsx", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.out, "out", "catalog.xlsx", "output workbook path")
	return cmd
}

// ExportCatalog reads every product and category and saves them to path.
func ExportCatalog(ctx context.Context, db *gorm.DB, path string) ([]string, error) {
	products, err := repository.NewProductRepository(db).ListDetailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	categories, err := repository.NewCategoryRepository(db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	f, err := BuildWorkbook(products, categories)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	return []string{
		fmt.Sprintf("products=%d", len(products)),
		fmt.Sprintf("categories=%d", len(categories)),
		"written: " + path,
	}, nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	defer common.StartTelemetry(opts.envFile, "export")()
	fn = common.Track("export", "xlsx", fn)
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func loadDB(envFile string) (*gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg)
}
