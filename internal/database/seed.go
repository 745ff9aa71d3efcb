package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/pedalacom/catalog-api/internal/domain"
	"github.com/pedalacom/catalog-api/internal/observability"
)

type seedCategory struct {
	Name   string
	Parent string
}

type seedModel struct {
	Name         string
	Descriptions map[string]string
}

type seedProduct struct {
	Name          string
	ProductNumber string
	Color         string
	StandardCost  float64
	ListPrice     float64
	Size          string
	Weight        float64
	Category      string
	Model         string
}

var sampleCategories = []seedCategory{
	{Name: "Bikes"},
	{Name: "Components"},
	{Name: "Clothing"},
	{Name: "Accessories"},
	{Name: "Mountain Bikes", Parent: "Bikes"},
	{Name: "Road Bikes", Parent: "Bikes"},
	{Name: "Touring Bikes", Parent: "Bikes"},
	{Name: "Handlebars", Parent: "Components"},
	{Name: "Jerseys", Parent: "Clothing"},
	{Name: "Gloves", Parent: "Clothing"},
	{Name: "Helmets", Parent: "Accessories"},
	{Name: "Bottles and Cages", Parent: "Accessories"},
}

var sampleModels = []seedModel{
	{Name: "Mountain-200", Descriptions: map[string]string{
		"en": "Serious back-country riding. Perfect for all levels of competition.",
		"fr": "Conçu pour les parcours tout-terrain les plus exigeants.",
	}},
	{Name: "Road-150", Descriptions: map[string]string{
		"en": "This bike is ridden by race winners. Developed with the team.",
	}},
	{Name: "Touring-1000", Descriptions: map[string]string{
		"en": "Travel in style and comfort. Designed for maximum comfort and safety.",
	}},
	{Name: "Sport-100", Descriptions: map[string]string{
		"en": "Universal fit, well-vented, lightweight helmet.",
	}},
	{Name: "Long-Sleeve Logo Jersey", Descriptions: map[string]string{
		"en": "Unisex long-sleeve AWC logo microfiber cycling jersey.",
	}},
}

var sampleProducts = []seedProduct{
	{Name: "Mountain-200 Black, 38", ProductNumber: "BK-M68B-38", Color: "Black", StandardCost: 1251.98, ListPrice: 2294.99, Size: "38", Weight: 10591, Category: "Mountain Bikes", Model: "Mountain-200"},
	{Name: "Mountain-200 Black, 42", ProductNumber: "BK-M68B-42", Color: "Black", StandardCost: 1251.98, ListPrice: 2294.99, Size: "42", Weight: 10782, Category: "Mountain Bikes", Model: "Mountain-200"},
	{Name: "Mountain-200 Silver, 38", ProductNumber: "BK-M68S-38", Color: "Silver", StandardCost: 1265.62, ListPrice: 2319.99, Size: "38", Weight: 10591, Category: "Mountain Bikes", Model: "Mountain-200"},
	{Name: "Road-150 Red, 44", ProductNumber: "BK-R93R-44", Color: "Red", StandardCost: 2171.29, ListPrice: 3578.27, Size: "44", Weight: 6349, Category: "Road Bikes", Model: "Road-150"},
	{Name: "Road-150 Red, 48", ProductNumber: "BK-R93R-48", Color: "Red", StandardCost: 2171.29, ListPrice: 3578.27, Size: "48", Weight: 6440, Category: "Road Bikes", Model: "Road-150"},
	{Name: "Touring-1000 Blue, 46", ProductNumber: "BK-T79U-46", Color: "Blue", StandardCost: 1481.94, ListPrice: 2384.07, Size: "46", Weight: 11304, Category: "Touring Bikes", Model: "Touring-1000"},
	{Name: "Touring-1000 Yellow, 50", ProductNumber: "BK-T79Y-50", Color: "Yellow", StandardCost: 1481.94, ListPrice: 2384.07, Size: "50", Weight: 11422, Category: "Touring Bikes", Model: "Touring-1000"},
	{Name: "HL Mountain Handlebars", ProductNumber: "HB-M918", Color: "", StandardCost: 53.40, ListPrice: 120.27, Category: "Handlebars"},
	{Name: "Long-Sleeve Logo Jersey, M", ProductNumber: "LJ-0192-M", Color: "Multi", StandardCost: 38.49, ListPrice: 49.99, Size: "M", Category: "Jerseys", Model: "Long-Sleeve Logo Jersey"},
	{Name: "Long-Sleeve Logo Jersey, L", ProductNumber: "LJ-0192-L", Color: "Multi", StandardCost: 38.49, ListPrice: 49.99, Size: "L", Category: "Jerseys", Model: "Long-Sleeve Logo Jersey"},
	{Name: "Half-Finger Gloves, S", ProductNumber: "GL-H102-S", Color: "Black", StandardCost: 9.16, ListPrice: 24.49, Size: "S", Category: "Gloves"},
	{Name: "Sport-100 Helmet, Red", ProductNumber: "HL-U509-R", Color: "Red", StandardCost: 13.09, ListPrice: 34.99, Category: "Helmets", Model: "Sport-100"},
	{Name: "Sport-100 Helmet, Black", ProductNumber: "HL-U509", Color: "Black", StandardCost: 13.09, ListPrice: 34.99, Category: "Helmets", Model: "Sport-100"},
	{Name: "Water Bottle - 30 oz.", ProductNumber: "WB-H098", StandardCost: 1.87, ListPrice: 4.99, Category: "Bottles and Cages"},
}

// SampleProductCount is the number of products SeedSync creates on an empty catalog.
var SampleProductCount = len(sampleProducts)

type SeedReport struct {
	CreatedCategories   int  `json:"created_categories"`
	CreatedModels       int  `json:"created_models"`
	CreatedDescriptions int  `json:"created_descriptions"`
	CreatedProducts     int  `json:"created_products"`
	Noop                bool `json:"noop"`
}

func Seed(db *gorm.DB) error {
	_, err := SeedSync(db)
	return err
}

// SeedSync inserts the sample catalog, skipping rows that already exist by name.
func SeedSync(db *gorm.DB) (*SeedReport, error) {
	ctx := context.Background()
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(ctx, "seed", time.Since(start))
	}()

	report := &SeedReport{}
	err := db.Transaction(func(tx *gorm.DB) error {
		return seedCatalog(tx, report, time.Now().UTC())
	})
	if err != nil {
		observability.RecordDatabaseStartupEvent(ctx, "seed", "error")
		return nil, err
	}

	report.Noop = report.CreatedCategories == 0 && report.CreatedModels == 0 &&
		report.CreatedDescriptions == 0 && report.CreatedProducts == 0
	observability.RecordDatabaseStartupEvent(ctx, "seed", "success")
	return report, nil
}

func seedCatalog(tx *gorm.DB, report *SeedReport, now time.Time) error {
	categoryIDs := make(map[string]uint, len(sampleCategories))
	for _, c := range sampleCategories {
		row := domain.ProductCategory{Name: c.Name, ModifiedDate: now}
		if c.Parent != "" {
			parentID := categoryIDs[c.Parent]
			row.ParentProductCategoryID = &parentID
		}
		res := tx.Where("name = ?", c.Name).FirstOrCreate(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedCategories++
		}
		categoryIDs[c.Name] = row.ID
	}

	modelIDs := make(map[string]uint, len(sampleModels))
	for _, m := range sampleModels {
		row := domain.ProductModel{Name: m.Name, ModifiedDate: now}
		res := tx.Where("name = ?", m.Name).FirstOrCreate(&row)
		if res.Error != nil {
			return res.Error
		}
		modelIDs[m.Name] = row.ID
		if res.RowsAffected == 0 {
			continue
		}
		report.CreatedModels++
		for culture, text := range m.Descriptions {
			desc := domain.ProductDescription{Description: text, ModifiedDate: now}
			if err := tx.Create(&desc).Error; err != nil {
				return err
			}
			link := domain.ProductModelProductDescription{
				ProductModelID:       row.ID,
				ProductDescriptionID: desc.ID,
				Culture:              culture,
				ModifiedDate:         now,
			}
			if err := tx.Create(&link).Error; err != nil {
				return err
			}
			report.CreatedDescriptions++
		}
	}

	for _, p := range sampleProducts {
		row := domain.Product{
			Name:          p.Name,
			ProductNumber: p.ProductNumber,
			Color:         p.Color,
			StandardCost:  p.StandardCost,
			ListPrice:     p.ListPrice,
			Size:          p.Size,
			SellStartDate: now,
			RowVersion:    1,
			ModifiedDate:  now,
		}
		if p.Weight > 0 {
			weight := p.Weight
			row.Weight = &weight
		}
		if id, ok := categoryIDs[p.Category]; ok {
			row.ProductCategoryID = &id
		}
		if id, ok := modelIDs[p.Model]; ok {
			row.ProductModelID = &id
		}
		res := tx.Where("product_number = ?", p.ProductNumber).FirstOrCreate(&row)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedProducts++
		}
	}
	return nil
}
