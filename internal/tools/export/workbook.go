package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pedalacom/catalog-api/internal/domain"
)

const (
	productsSheet   = "Products"
	categoriesSheet = "Categories"
)

var productHeader = []any{
	"ID", "Name", "Product Number", "Category", "Model", "Color", "Size",
	"Standard Cost", "List Price", "Weight", "Sell Start", "Sell End", "Discontinued", "Row Version",
}

var categoryHeader = []any{"ID", "Name", "Parent", "Products"}

// BuildWorkbook renders products and categories into a two-sheet workbook.
// The caller owns the returned file and must Close it.
func BuildWorkbook(products []domain.Product, categories []domain.ProductCategory) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", productsSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(categoriesSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := writeProducts(f, header, products); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeCategories(f, header, categories, products); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func writeProducts(f *excelize.File, header int, products []domain.Product) error {
	if err := writeRow(f, productsSheet, 1, productHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(productsSheet, 1, 1, header); err != nil {
		return err
	}
	for i, p := range products {
		row := []any{
			p.ID, p.Name, p.ProductNumber, categoryName(p), modelName(p), p.Color, p.Size,
			p.StandardCost, p.ListPrice, optionalFloat(p.Weight), formatDate(&p.SellStartDate),
			formatDate(p.SellEndDate), formatDate(p.DiscontinuedDate), p.RowVersion,
		}
		if err := writeRow(f, productsSheet, i+2, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(productsSheet, "B", "B", 32)
}

func writeCategories(f *excelize.File, header int, categories []domain.ProductCategory, products []domain.Product) error {
	names := make(map[uint]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	counts := make(map[uint]int, len(categories))
	for _, p := range products {
		if p.ProductCategoryID != nil {
			counts[*p.ProductCategoryID]++
		}
	}
	sorted := append([]domain.ProductCategory(nil), categories...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if err := writeRow(f, categoriesSheet, 1, categoryHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(categoriesSheet, 1, 1, header); err != nil {
		return err
	}
	for i, c := range sorted {
		parent := ""
		if c.ParentProductCategoryID != nil {
			parent = names[*c.ParentProductCategoryID]
		}
		if err := writeRow(f, categoriesSheet, i+2, []any{c.ID, c.Name, parent, counts[c.ID]}); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func categoryName(p domain.Product) string {
	if p.ProductCategory == nil {
		return ""
	}
	return p.ProductCategory.Name
}

func modelName(p domain.Product) string {
	if p.ProductModel == nil {
		return ""
	}
	return p.ProductModel.Name
}

func optionalFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
