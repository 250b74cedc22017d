// internal/service/product/application/service.go
package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/product/domain"
	"stockledger/internal/service/product/domain/port"
)

// ProductService 是商品服务的应用层。
// 库存的所有变更都经过 AdjustStock 的原子受保护增量；
// 变更成功后派生的审计事件与告警是尽力而为的旁路，
// 绝不影响变更本身的结果。
type ProductService struct {
	repo        domain.ProductRepository
	publisher   port.MovementPublisher
	broadcaster port.MovementBroadcaster
	alerts      port.AlertEngine
	tracer      trace.Tracer
}

func NewProductService(repo domain.ProductRepository, publisher port.MovementPublisher, broadcaster port.MovementBroadcaster, alerts port.AlertEngine, tracer trace.Tracer) *ProductService {
	return &ProductService{
		repo:        repo,
		publisher:   publisher,
		broadcaster: broadcaster,
		alerts:      alerts,
		tracer:      tracer,
	}
}

func (s *ProductService) GetAllProducts(ctx context.Context) ([]*ProductDTO, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return toDTOSlice(products), nil
}

// GetProductByID 不存在返回 (nil, nil)。
func (s *ProductService) GetProductByID(ctx context.Context, id int64) (*ProductDTO, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toDTO(product), nil
}

func (s *ProductService) FilterProducts(ctx context.Context, req *FilterProductsRequest) ([]*ProductDTO, error) {
	products, err := s.repo.Filter(ctx, domain.FilterCriteria{
		Name:     req.Name,
		Category: req.Category,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		MinStock: req.MinStock,
		MaxStock: req.MaxStock,
	})
	if err != nil {
		return nil, err
	}
	return toDTOSlice(products), nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductDTO, error) {
	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Stock:       req.Stock,
	}
	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, err
	}
	product.ID = id
	return toDTO(product), nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, req *UpdateProductRequest) (bool, error) {
	existing, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	return s.repo.Update(ctx, &domain.Product{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Stock:       req.Stock,
	})
}

func (s *ProductService) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// AdjustStock 对商品库存施加带符号增量。
// 这是台账协调器唯一依赖的写入口：增量在存储层原子生效，
// 结果会为负时整体拒绝。成功后旁路发出审计事件与告警。
func (s *ProductService) AdjustStock(ctx context.Context, id int64, delta int) (*ProductDTO, error) {
	ctx, span := s.tracer.Start(ctx, "product.AdjustStock")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("stock.delta", delta),
	)

	product, err := s.repo.AdjustStock(ctx, id, delta)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.emitMovement(ctx, product, delta)

	return toDTO(product), nil
}

// emitMovement 发布审计事件并评估告警规则。全部尽力而为：
// 任何失败只记日志，库存变更已经提交，不能因为旁路失败而报错。
func (s *ProductService) emitMovement(ctx context.Context, product *domain.Product, delta int) {
	movement := &domain.StockMovement{
		EventID:    uuid.New().String(),
		ProductID:  product.ID,
		Name:       product.Name,
		Category:   product.Category,
		Delta:      delta,
		Stock:      product.Stock,
		Price:      product.Price,
		OccurredAt: time.Now(),
	}

	if s.publisher != nil {
		if err := s.publisher.PublishMovement(ctx, movement); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Int64("product_id", product.ID).Msg("failed to publish stock movement")
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMovement(movement)

		if s.alerts != nil {
			for _, rule := range s.alerts.Matches(movement) {
				logger.Ctx(ctx).Warn().
					Str("rule", rule).
					Int64("product_id", product.ID).
					Int("stock", product.Stock).
					Msg("stock alert rule matched")
				s.broadcaster.BroadcastAlert(movement, rule)
			}
		}
	}
}

func toDTOSlice(products []*domain.Product) []*ProductDTO {
	dtos := make([]*ProductDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, toDTO(p))
	}
	return dtos
}
