package domain

import "time"

type Product struct {
	ID                     uint             `gorm:"primaryKey" json:"id"`
	Name                   string           `gorm:"size:50;not null;uniqueIndex" json:"name"`
	ProductNumber          string           `gorm:"size:25;not null;uniqueIndex" json:"product_number"`
	Color                  string           `gorm:"size:15" json:"color,omitempty"`
	StandardCost           float64          `gorm:"not null" json:"standard_cost"`
	ListPrice              float64          `gorm:"not null" json:"list_price"`
	Size                   string           `gorm:"size:5" json:"size,omitempty"`
	Weight                 *float64         `json:"weight,omitempty"`
	ProductCategoryID      *uint            `gorm:"index" json:"product_category_id,omitempty"`
	ProductModelID         *uint            `gorm:"index" json:"product_model_id,omitempty"`
	SellStartDate          time.Time        `gorm:"not null" json:"sell_start_date"`
	SellEndDate            *time.Time       `json:"sell_end_date,omitempty"`
	DiscontinuedDate       *time.Time       `json:"discontinued_date,omitempty"`
	ThumbnailPhoto         []byte           `json:"thumbnail_photo,omitempty"`
	ThumbnailPhotoFileName string           `gorm:"size:50" json:"thumbnail_photo_file_name,omitempty"`
	RowVersion             int64            `gorm:"not null;default:1" json:"row_version"`
	ModifiedDate           time.Time        `gorm:"not null" json:"modified_date"`
	ProductCategory        *ProductCategory `json:"product_category,omitempty"`
	ProductModel           *ProductModel    `json:"product_model,omitempty"`
}

// InfoProduct is the flattened row returned by catalog searches.
type InfoProduct struct {
	ProductID      uint    `json:"product_id"`
	ProductName    string  `json:"product_name"`
	ProductPrice   float64 `json:"product_price"`
	ThumbnailPhoto []byte  `json:"thumbnail_photo,omitempty"`
	CategoryName   string  `json:"category_name"`
}
