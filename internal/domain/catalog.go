package domain

import "time"

type ProductCategory struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	ParentProductCategoryID *uint     `gorm:"index" json:"parent_product_category_id,omitempty"`
	Name                    string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	ModifiedDate            time.Time `json:"modified_date"`
}

type ProductModel struct {
	ID                              uint                             `gorm:"primaryKey" json:"id"`
	Name                            string                           `gorm:"size:50;not null;uniqueIndex" json:"name"`
	CatalogDescription              string                           `gorm:"type:text" json:"catalog_description,omitempty"`
	ModifiedDate                    time.Time                        `json:"modified_date"`
	ProductModelProductDescriptions []ProductModelProductDescription `json:"product_model_product_descriptions,omitempty"`
}

type ProductDescription struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Description  string    `gorm:"size:400;not null" json:"description"`
	ModifiedDate time.Time `json:"modified_date"`
}

// ProductModelProductDescription links a model to a localized description.
type ProductModelProductDescription struct {
	ProductModelID       uint                `gorm:"primaryKey" json:"product_model_id"`
	ProductDescriptionID uint                `gorm:"primaryKey" json:"product_description_id"`
	Culture              string              `gorm:"primaryKey;size:6" json:"culture"`
	ModifiedDate         time.Time           `json:"modified_date"`
	ProductDescription   *ProductDescription `json:"product_description,omitempty"`
}
