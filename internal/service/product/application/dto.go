// internal/service/product/application/dto.go
package application

import "stockledger/internal/service/product/domain"

// ProductDTO 是商品的出站视图。
type ProductDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// CreateProductRequest 创建商品的入站 DTO。
type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// UpdateProductRequest 全量更新商品的入站 DTO。
type UpdateProductRequest struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

// StockUpdateRequest 库存增量请求，Quantity 是带符号的增量。
type StockUpdateRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// FilterProductsRequest 组合可选的商品查询条件。
type FilterProductsRequest struct {
	Name     *string
	Category *string
	MinPrice *float64
	MaxPrice *float64
	MinStock *int
	MaxStock *int
}

func toDTO(p *domain.Product) *ProductDTO {
	return &ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       p.Price,
		Stock:       p.Stock,
	}
}
