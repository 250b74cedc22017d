// internal/service/transaction/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/transaction/application/saga"
	"stockledger/internal/service/transaction/domain"
	"stockledger/internal/service/transaction/domain/port"
)

// productNameUnavailable 是读路径降级时的占位商品名。
// 单行的富化失败不应让整个列表请求失败。
const productNameUnavailable = "[Product info unavailable]"

// enrichConcurrency 列表富化时对库存服务的最大并发调用数。
const enrichConcurrency = 8

// TransactionService 是跨服务一致性协调器。
//
// 每个写操作都是一条固定顺序的远程/本地调用链：当一侧已经提交而
// 另一侧失败时，对已提交的副作用执行恰好一次补偿（手工 Saga），
// 透给调用方的始终是原始错误。两个存储之间没有共享事务，也没有
// 持久化的补偿日志——补偿失败只能记账给运维（见 saga 包）。
//
// 协调器本身无状态，不同流水上的操作可以并发执行。快照读取与
// 增量施加之间没有任何锁或版本号保护：两笔并发销售可能同时读到
// 足够的库存，最终由库存服务端的原子受保护增量兜底拒绝超卖。
type TransactionService struct {
	repo   domain.TransactionRepository
	stock  port.StockService
	tracer trace.Tracer

	// operationTimeout 约束单次协调操作的正向链路
	operationTimeout time.Duration
}

func NewTransactionService(repo domain.TransactionRepository, stock port.StockService, tracer trace.Tracer, operationTimeout time.Duration) *TransactionService {
	return &TransactionService{
		repo:             repo,
		stock:            stock,
		tracer:           tracer,
		operationTimeout: operationTimeout,
	}
}

// detached 返回一个与业务 ctx 解耦的补偿上下文：
// 保留追踪信息，丢弃取消信号（业务 ctx 很可能已经超时）。
func (s *TransactionService) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.operationTimeout)
}

// CreateTransaction 创建一条流水并把库存增量同步到商品服务。
//
// 顺序：校验 -> 读快照 -> 落库 -> 远程增量。远程增量失败时补偿删除
// 刚写入的行；补偿删除再失败则记录 compensation_failure 并保留原始错误。
func (s *TransactionService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*TransactionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.CreateTransaction")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	// 1. 业务校验，任何副作用之前就地拒绝
	txnType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return nil, err
	}
	txn, err := domain.NewTransaction(txnType, req.ProductID, req.Quantity, req.UnitPrice, req.Details)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("transaction.type", string(txnType)),
		attribute.Int64("product.id", req.ProductID),
		attribute.Int("transaction.quantity", req.Quantity),
	)

	// 2. 读取商品快照。注意这只是建议性预检，见 port.StockService 的约定
	snapshot, err := s.stock.GetProduct(ctx, req.ProductID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// 3. 销售出库需要预检库存
	if txnType == domain.TypeSale && snapshot.Stock < req.Quantity {
		err := errors.Wrapf(domain.ErrInsufficientStock, "available: %d, requested: %d", snapshot.Stock, req.Quantity)
		span.RecordError(err)
		return nil, err
	}

	// 4. 本地落库。这里失败还没有任何远程副作用，直接返回
	id, err := s.repo.Create(ctx, txn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist transaction")
		return nil, err
	}
	txn.ID = id
	span.AddEvent("Transaction row persisted.")

	// 5. 行已落库，注册对应的补偿动作
	sg := saga.New(s.tracer)
	sg.RegisterCompensation("delete-ledger-row", func(compCtx context.Context) error {
		_, delErr := s.repo.Delete(compCtx, id)
		return delErr
	})

	// 6. 施加远程库存增量；失败则回滚刚写入的行并透出原始错误
	if err := s.stock.ApplyStockDelta(ctx, txn.ProductID, txn.StockDelta()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock mutation failed, rolling back ledger row")
		logger.Ctx(ctx).Warn().
			Err(err).
			Int64("transaction_id", id).
			Int64("product_id", txn.ProductID).
			Msg("stock delta failed after persist, compensating")

		compCtx, compCancel := s.detached(ctx)
		defer compCancel()
		sg.Compensate(compCtx)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Int64("transaction_id", id).
		Int64("product_id", txn.ProductID).
		Int("delta", txn.StockDelta()).
		Msg("transaction created")

	return toDTO(txn, snapshot.Name), nil
}

// UpdateTransaction 更新一条流水并调整受影响商品的库存。
// 返回 false 表示目标不存在或业务规则拒绝（缺货、新商品不存在）。
//
// 同商品：施加新旧增量之差；跨商品：先撤销旧商品上的增量，再把新
// 增量施加到新商品。落库失败时精确回退刚施加过的库存变更。
func (s *TransactionService) UpdateTransaction(ctx context.Context, req *UpdateTransactionRequest) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.UpdateTransaction")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	newType, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		return false, err
	}
	if req.Quantity <= 0 {
		return false, errors.Wrapf(domain.ErrInvalidQuantity, "got %d", req.Quantity)
	}

	// 1. 读取现有流水；不存在直接返回，无任何副作用
	existing, err := s.repo.GetByID(ctx, req.ID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	oldDelta := existing.StockDelta()
	newDelta := domain.StockDeltaFor(newType, req.Quantity)

	span.SetAttributes(
		attribute.Int64("transaction.id", req.ID),
		attribute.Int("stock.old_delta", oldDelta),
		attribute.Int("stock.new_delta", newDelta),
	)

	sg := saga.New(s.tracer)

	if existing.ProductID == req.ProductID {
		// 2a. 同商品：只需要施加差值
		netChange := newDelta - oldDelta

		// 销售流水加量意味着要占用更多库存，重新预检一次
		if existing.Type == domain.TypeSale && netChange < 0 {
			snapshot, err := s.stock.GetProduct(ctx, req.ProductID)
			if err != nil {
				span.RecordError(err)
				return false, err
			}
			if snapshot.Stock < -netChange {
				span.AddEvent("Update rejected: insufficient stock for net change.")
				return false, nil
			}
		}

		if err := s.stock.ApplyStockDelta(ctx, req.ProductID, netChange); err != nil {
			span.RecordError(err)
			return false, err
		}
		sg.RegisterCompensation("revert-net-delta", func(compCtx context.Context) error {
			return s.stock.ApplyStockDelta(compCtx, req.ProductID, -netChange)
		})
	} else {
		// 2b. 跨商品：先把旧商品上的影响撤掉
		if err := s.stock.ApplyStockDelta(ctx, existing.ProductID, -oldDelta); err != nil {
			span.RecordError(err)
			return false, err
		}
		sg.RegisterCompensation("restore-old-product-delta", func(compCtx context.Context) error {
			return s.stock.ApplyStockDelta(compCtx, existing.ProductID, oldDelta)
		})

		// 新商品必须存在，销售时还要有足够库存
		snapshot, err := s.stock.GetProduct(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				span.AddEvent("Update rejected: target product not found.")
				return false, nil
			}
			span.RecordError(err)
			return false, err
		}
		if newType == domain.TypeSale && snapshot.Stock < req.Quantity {
			span.AddEvent("Update rejected: insufficient stock on target product.")
			return false, nil
		}

		if err := s.stock.ApplyStockDelta(ctx, req.ProductID, newDelta); err != nil {
			span.RecordError(err)
			return false, err
		}
		sg.RegisterCompensation("undo-new-product-delta", func(compCtx context.Context) error {
			return s.stock.ApplyStockDelta(compCtx, req.ProductID, -newDelta)
		})
	}

	// 3. 持久化更新后的行；失败则精确回退上面施加过的库存变更
	updated := &domain.Transaction{
		ID:         req.ID,
		Date:       req.Date,
		Type:       newType,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		TotalPrice: float64(req.Quantity) * req.UnitPrice,
		Details:    req.Details,
	}
	ok, err := s.repo.Update(ctx, updated)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to persist update, reverting stock mutations")
		logger.Ctx(ctx).Warn().
			Err(err).
			Int64("transaction_id", req.ID).
			Msg("update persistence failed after stock mutation, compensating")

		compCtx, compCancel := s.detached(ctx)
		defer compCancel()
		sg.Compensate(compCtx)
		return false, err
	}

	logger.Ctx(ctx).Info().Int64("transaction_id", req.ID).Msg("transaction updated")
	return ok, nil
}

// DeleteTransaction 删除一条流水并撤销其库存影响。
//
// 先撤销库存再删行：撤销失败时立即中止，不能在库存未对账的状态下
// 删掉台账记录。删行失败则把刚撤销的增量重新施加回去。
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.DeleteTransaction")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	span.SetAttributes(
		attribute.Int64("transaction.id", id),
		attribute.Int("stock.revert_delta", -existing.StockDelta()),
	)

	// 1. 撤销库存影响；失败则中止，台账行保持原样
	if err := s.stock.ApplyStockDelta(ctx, existing.ProductID, -existing.StockDelta()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to revert stock, aborting delete")
		return false, err
	}

	sg := saga.New(s.tracer)
	sg.RegisterCompensation("reapply-original-delta", func(compCtx context.Context) error {
		return s.stock.ApplyStockDelta(compCtx, existing.ProductID, existing.StockDelta())
	})

	// 2. 删除台账行；失败则把库存恢复到删除前的状态
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete row, restoring stock")
		logger.Ctx(ctx).Warn().
			Err(err).
			Int64("transaction_id", id).
			Msg("delete persistence failed after stock revert, compensating")

		compCtx, compCancel := s.detached(ctx)
		defer compCancel()
		sg.Compensate(compCtx)
		return false, err
	}

	logger.Ctx(ctx).Info().Int64("transaction_id", id).Msg("transaction deleted")
	return ok, nil
}

// GetAllTransactions 返回全部流水，并逐行富化商品名。
func (s *TransactionService) GetAllTransactions(ctx context.Context) ([]*TransactionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.GetAllTransactions")
	defer span.End()

	txns, err := s.repo.GetAll(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.enrichAll(ctx, txns), nil
}

// GetTransactionByID 返回单条流水，不存在返回 (nil, nil)。
func (s *TransactionService) GetTransactionByID(ctx context.Context, id int64) (*TransactionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.GetTransactionByID")
	defer span.End()

	txn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if txn == nil {
		return nil, nil
	}
	return toDTO(txn, s.lookupProductName(ctx, txn.ProductID)), nil
}

// FilterTransactions 按日期区间/类型/商品过滤流水。
func (s *TransactionService) FilterTransactions(ctx context.Context, req *FilterTransactionsRequest) ([]*TransactionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.FilterTransactions")
	defer span.End()

	criteria := domain.FilterCriteria{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		ProductID: req.ProductID,
	}
	if req.Type != "" {
		txnType, err := domain.ParseTransactionType(req.Type)
		if err != nil {
			return nil, err
		}
		criteria.Type = &txnType
	}

	txns, err := s.repo.Filter(ctx, criteria)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return s.enrichAll(ctx, txns), nil
}

// GetTransactionsByProductID 返回某个商品的全部流水。
// 商品名只查一次，供所有行复用。
func (s *TransactionService) GetTransactionsByProductID(ctx context.Context, productID int64) ([]*TransactionDTO, error) {
	ctx, span := s.tracer.Start(ctx, "coordinator.GetTransactionsByProductID")
	defer span.End()

	txns, err := s.repo.GetByProductID(ctx, productID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	name := s.lookupProductName(ctx, productID)
	dtos := make([]*TransactionDTO, 0, len(txns))
	for _, txn := range txns {
		dtos = append(dtos, toDTO(txn, name))
	}
	return dtos, nil
}

// enrichAll 并发富化商品名，单行失败彼此隔离，从不使整个列表失败。
func (s *TransactionService) enrichAll(ctx context.Context, txns []*domain.Transaction) []*TransactionDTO {
	dtos := make([]*TransactionDTO, len(txns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i, txn := range txns {
		g.Go(func() error {
			dtos[i] = toDTO(txn, s.lookupProductName(gctx, txn.ProductID))
			// 富化失败已经在 lookupProductName 里降级处理，这里永不返回错误
			return nil
		})
	}
	_ = g.Wait()

	return dtos
}

// lookupProductName 获取商品名。商品不存在返回空串（与原始行为一致），
// 远端故障返回占位串，保证读路径在依赖降级时仍然可用。
func (s *TransactionService) lookupProductName(ctx context.Context, productID int64) string {
	snapshot, err := s.stock.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return ""
		}
		logger.Ctx(ctx).Warn().
			Err(err).
			Int64("product_id", productID).
			Msg("product enrichment degraded")
		return productNameUnavailable
	}
	return snapshot.Name
}
