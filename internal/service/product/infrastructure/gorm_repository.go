// internal/service/product/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"stockledger/internal/service/product/domain"
)

// GormProductRepository 是 ProductRepository 的 GORM 实现。
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository 创建一个新的 GORM 仓储实例
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func wrapPersistence(err error, msg string) error {
	return errors.Wrapf(domain.ErrPersistence, "%s: %v", msg, err)
}

func (r *GormProductRepository) GetAll(ctx context.Context) ([]*domain.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, wrapPersistence(err, "get all products")
	}
	return toDomainSlice(models), nil
}

// GetByID 查不到返回 (nil, nil)。
func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapPersistence(err, "get product by id")
	}
	return toDomain(&model), nil
}

// Filter 组合可选谓词，nil 条件不参与查询。
func (r *GormProductRepository) Filter(ctx context.Context, criteria domain.FilterCriteria) ([]*domain.Product, error) {
	query := r.db.WithContext(ctx).Model(&ProductModel{})

	if criteria.Name != nil {
		query = query.Where("name LIKE ?", "%"+*criteria.Name+"%")
	}
	if criteria.Category != nil {
		query = query.Where("category = ?", *criteria.Category)
	}
	if criteria.MinPrice != nil {
		query = query.Where("price >= ?", *criteria.MinPrice)
	}
	if criteria.MaxPrice != nil {
		query = query.Where("price <= ?", *criteria.MaxPrice)
	}
	if criteria.MinStock != nil {
		query = query.Where("stock >= ?", *criteria.MinStock)
	}
	if criteria.MaxStock != nil {
		query = query.Where("stock <= ?", *criteria.MaxStock)
	}

	var models []ProductModel
	if err := query.Find(&models).Error; err != nil {
		return nil, wrapPersistence(err, "filter products")
	}
	return toDomainSlice(models), nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) (int64, error) {
	model := toModel(product)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, wrapPersistence(err, "create product")
	}
	return model.ID, nil
}

func (r *GormProductRepository) Update(ctx context.Context, product *domain.Product) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ?", product.ID).
		Select("Name", "Description", "Category", "ImageURL", "Price", "Stock").
		Updates(toModel(product))
	if result.Error != nil {
		return false, wrapPersistence(result.Error, "update product")
	}
	return result.RowsAffected > 0, nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&ProductModel{}, id)
	if result.Error != nil {
		return false, wrapPersistence(result.Error, "delete product")
	}
	return result.RowsAffected > 0, nil
}

// AdjustStock 原子受保护增量：WHERE 谓词保证结果不会为负，
// 拒绝与成功之间没有窗口，这是并发销售下防止超卖的最终防线。
func (r *GormProductRepository) AdjustStock(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	result := r.db.WithContext(ctx).
		Model(&ProductModel{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return nil, wrapPersistence(result.Error, "adjust stock")
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrapf(domain.ErrStockConflict, "product %d, delta %d", id, delta)
	}

	var model ProductModel
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		return nil, wrapPersistence(err, "reload product after stock adjustment")
	}
	return toDomain(&model), nil
}

func toDomainSlice(models []ProductModel) []*domain.Product {
	products := make([]*domain.Product, 0, len(models))
	for i := range models {
		products = append(products, toDomain(&models[i]))
	}
	return products
}
