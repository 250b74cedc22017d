// internal/service/product/infrastructure/gorm_model.go
package infrastructure

import "stockledger/internal/service/product/domain"

// ProductModel 对应数据库中的 products 表。
type ProductModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(255);index"`
	Description string `gorm:"type:text"`
	Category    string `gorm:"type:varchar(64);index"`
	ImageURL    string `gorm:"type:varchar(512)"`
	Price       float64 `gorm:"type:decimal(10,2)"`
	Stock       int
}

// TableName 指定 GORM 应该使用的表名
func (ProductModel) TableName() string {
	return "products"
}

func toModel(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}

func toDomain(m *ProductModel) *domain.Product {
	return &domain.Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		ImageURL:    m.ImageURL,
		Price:       m.Price,
		Stock:       m.Stock,
	}
}
