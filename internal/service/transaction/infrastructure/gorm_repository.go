// internal/service/transaction/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"stockledger/internal/service/transaction/domain"
)

// GormTransactionRepository 是 TransactionRepository 的 GORM 实现。
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository 创建一个新的 GORM 仓储实例
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// wrapPersistence 把底层存储错误统一归类为持久化失败，
// 协调器据此决定是否走补偿路径。
func wrapPersistence(err error, msg string) error {
	return errors.Wrapf(domain.ErrPersistence, "%s: %v", msg, err)
}

func (r *GormTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) (int64, error) {
	model := toModel(txn)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, wrapPersistence(err, "create transaction")
	}
	return model.ID, nil
}

// GetByID 查不到返回 (nil, nil)。
func (r *GormTransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	var model TransactionModel
	err := r.db.WithContext(ctx).First(&model, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapPersistence(err, "get transaction by id")
	}
	return toDomain(&model), nil
}

func (r *GormTransactionRepository) Update(ctx context.Context, txn *domain.Transaction) (bool, error) {
	// Select 强制写入全部列，包括归零的字段
	result := r.db.WithContext(ctx).
		Model(&TransactionModel{}).
		Where("id = ?", txn.ID).
		Select("Date", "Type", "ProductID", "Quantity", "UnitPrice", "TotalPrice", "Details").
		Updates(toModel(txn))
	if result.Error != nil {
		return false, wrapPersistence(result.Error, "update transaction")
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTransactionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&TransactionModel{}, id)
	if result.Error != nil {
		return false, wrapPersistence(result.Error, "delete transaction")
	}
	return result.RowsAffected > 0, nil
}

func (r *GormTransactionRepository) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	var models []TransactionModel
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&models).Error; err != nil {
		return nil, wrapPersistence(err, "get all transactions")
	}
	return toDomainSlice(models), nil
}

// Filter 组合可选谓词，nil 条件不参与查询。
func (r *GormTransactionRepository) Filter(ctx context.Context, criteria domain.FilterCriteria) ([]*domain.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&TransactionModel{})

	if criteria.StartDate != nil {
		query = query.Where("date >= ?", *criteria.StartDate)
	}
	if criteria.EndDate != nil {
		query = query.Where("date <= ?", *criteria.EndDate)
	}
	if criteria.Type != nil {
		query = query.Where("type = ?", string(*criteria.Type))
	}
	if criteria.ProductID != nil {
		query = query.Where("product_id = ?", *criteria.ProductID)
	}

	var models []TransactionModel
	if err := query.Order("date DESC").Find(&models).Error; err != nil {
		return nil, wrapPersistence(err, "filter transactions")
	}
	return toDomainSlice(models), nil
}

func (r *GormTransactionRepository) GetByProductID(ctx context.Context, productID int64) ([]*domain.Transaction, error) {
	var models []TransactionModel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("date DESC").
		Find(&models).Error
	if err != nil {
		return nil, wrapPersistence(err, "get transactions by product id")
	}
	return toDomainSlice(models), nil
}

func toDomainSlice(models []TransactionModel) []*domain.Transaction {
	txns := make([]*domain.Transaction, 0, len(models))
	for i := range models {
		txns = append(txns, toDomain(&models[i]))
	}
	return txns
}
