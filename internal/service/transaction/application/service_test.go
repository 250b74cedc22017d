// internal/service/transaction/application/service_test.go
package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"stockledger/internal/service/transaction/domain"
	"stockledger/internal/service/transaction/domain/port"
)

// fakeRepo 是内存版的台账仓储。
type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Transaction
	order  []int64

	createErr error
	updateErr error
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[int64]*domain.Transaction)}
}

func (f *fakeRepo) Create(ctx context.Context, txn *domain.Transaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	cp := *txn
	cp.ID = f.nextID
	f.rows[f.nextID] = &cp
	f.order = append(f.order, f.nextID)
	return f.nextID, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (f *fakeRepo) Update(ctx context.Context, txn *domain.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	if _, ok := f.rows[txn.ID]; !ok {
		return false, nil
	}
	cp := *txn
	f.rows[txn.ID] = &cp
	return true, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	if _, ok := f.rows[id]; !ok {
		return false, nil
	}
	delete(f.rows, id)
	for i, rid := range f.order {
		if rid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeRepo) GetAll(ctx context.Context) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.Transaction, 0, len(f.order))
	for _, id := range f.order {
		cp := *f.rows[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) Filter(ctx context.Context, criteria domain.FilterCriteria) ([]*domain.Transaction, error) {
	all, _ := f.GetAll(ctx)
	out := make([]*domain.Transaction, 0, len(all))
	for _, txn := range all {
		if criteria.Type != nil && txn.Type != *criteria.Type {
			continue
		}
		if criteria.ProductID != nil && txn.ProductID != *criteria.ProductID {
			continue
		}
		if criteria.StartDate != nil && txn.Date.Before(*criteria.StartDate) {
			continue
		}
		if criteria.EndDate != nil && txn.Date.After(*criteria.EndDate) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (f *fakeRepo) GetByProductID(ctx context.Context, productID int64) ([]*domain.Transaction, error) {
	all, _ := f.GetAll(ctx)
	out := make([]*domain.Transaction, 0, len(all))
	for _, txn := range all {
		if txn.ProductID == productID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type stubProduct struct {
	name  string
	price float64
	stock int
}

type appliedDelta struct {
	productID int64
	delta     int
}

// fakeStock 模拟商品服务：GetProduct 返回快照，ApplyStockDelta 执行
// 与真实服务端相同的受保护增量（结果为负即拒绝）。
// applyErrs 是一个错误队列，每次 ApplyStockDelta 消费一个条目，
// 用于注入指定调用次序上的远端故障。
type fakeStock struct {
	mu       sync.Mutex
	products map[int64]*stubProduct
	getErrs  map[int64]error
	getCalls int

	applyErrs []error
	applied   []appliedDelta
}

func newFakeStock() *fakeStock {
	return &fakeStock{
		products: make(map[int64]*stubProduct),
		getErrs:  make(map[int64]error),
	}
}

func (f *fakeStock) GetProduct(ctx context.Context, productID int64) (*port.ProductSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if err, ok := f.getErrs[productID]; ok {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &port.ProductSnapshot{ID: productID, Name: p.name, Price: p.price, Stock: p.stock}, nil
}

func (f *fakeStock) ApplyStockDelta(ctx context.Context, productID int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.applyErrs) > 0 {
		err := f.applyErrs[0]
		f.applyErrs = f.applyErrs[1:]
		if err != nil {
			return err
		}
	}
	p, ok := f.products[productID]
	if !ok || p.stock+delta < 0 {
		return domain.ErrStockRejected
	}
	p.stock += delta
	f.applied = append(f.applied, appliedDelta{productID: productID, delta: delta})
	return nil
}

func (f *fakeStock) stockOf(productID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].stock
}

func newTestService(repo *fakeRepo, stock *fakeStock) *TransactionService {
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewTransactionService(repo, stock, tracer, 5*time.Second)
}

func seedTransaction(t *testing.T, repo *fakeRepo, txnType domain.TransactionType, productID int64, quantity int) int64 {
	t.Helper()
	txn, err := domain.NewTransaction(txnType, productID, quantity, 1.0, "seed")
	if err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	id, err := repo.Create(context.Background(), txn)
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	return id
}

func TestCreateTransactionPurchase(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", price: 2.5, stock: 10}
	svc := newTestService(repo, stock)

	dto, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Purchase", ProductID: 1, Quantity: 5, UnitPrice: 2.5, Details: "restock",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if dto.ID == 0 {
		t.Error("expected assigned id")
	}
	if dto.ProductName != "Widget" {
		t.Errorf("product name = %q, want Widget", dto.ProductName)
	}
	if dto.TotalPrice != 12.5 {
		t.Errorf("total price = %v, want 12.5", dto.TotalPrice)
	}
	if got := stock.stockOf(1); got != 15 {
		t.Errorf("stock after purchase = %d, want 15", got)
	}
	if repo.count() != 1 {
		t.Errorf("row count = %d, want 1", repo.count())
	}
}

func TestCreateTransactionSale(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	svc := newTestService(repo, stock)

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Sale", ProductID: 1, Quantity: 4, UnitPrice: 3,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if got := stock.stockOf(1); got != 6 {
		t.Errorf("stock after sale = %d, want 6", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     *CreateTransactionRequest
		wantErr error
	}{
		{"unknown type", &CreateTransactionRequest{Type: "Refund", ProductID: 1, Quantity: 1}, domain.ErrInvalidTransactionType},
		{"zero quantity", &CreateTransactionRequest{Type: "Sale", ProductID: 1, Quantity: 0}, domain.ErrInvalidQuantity},
		{"negative quantity", &CreateTransactionRequest{Type: "Purchase", ProductID: 1, Quantity: -3}, domain.ErrInvalidQuantity},
		{"negative unit price", &CreateTransactionRequest{Type: "Purchase", ProductID: 1, Quantity: 1, UnitPrice: -1}, domain.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			stock := newFakeStock()
			stock.products[1] = &stubProduct{stock: 10}
			svc := newTestService(repo, stock)

			_, err := svc.CreateTransaction(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if repo.count() != 0 {
				t.Error("validation failure must not persist a row")
			}
			if len(stock.applied) != 0 {
				t.Error("validation failure must not touch stock")
			}
		})
	}
}

func TestCreateTransactionProductNotFound(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	svc := newTestService(repo, stock)

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Purchase", ProductID: 42, Quantity: 1,
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	if repo.count() != 0 {
		t.Error("missing product must not persist a row")
	}
}

func TestCreateTransactionInsufficientStock(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 3}
	svc := newTestService(repo, stock)

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Sale", ProductID: 1, Quantity: 5,
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if repo.count() != 0 || len(stock.applied) != 0 {
		t.Error("insufficient stock must leave both sides untouched")
	}
}

// 远端增量失败后，刚写入的台账行必须被补偿删除，并透出原始错误。
func TestCreateTransactionCompensatesLedgerRow(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 10}
	stock.applyErrs = []error{domain.ErrStockUnavailable}
	svc := newTestService(repo, stock)

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Sale", ProductID: 1, Quantity: 2,
	})
	if !errors.Is(err, domain.ErrStockUnavailable) {
		t.Fatalf("err = %v, want original ErrStockUnavailable", err)
	}
	if repo.count() != 0 {
		t.Error("ledger row must be deleted by compensation")
	}
	if got := stock.stockOf(1); got != 10 {
		t.Errorf("stock = %d, want untouched 10", got)
	}
}

// 补偿本身失败时，调用方仍然拿到原始错误，残留的行交给运维核账。
func TestCreateTransactionCompensationFailureKeepsOriginalError(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 10}
	stock.applyErrs = []error{domain.ErrStockUnavailable}
	svc := newTestService(repo, stock)

	repo.deleteErr = errors.New("database gone")

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Purchase", ProductID: 1, Quantity: 2,
	})
	if !errors.Is(err, domain.ErrStockUnavailable) {
		t.Fatalf("err = %v, want original ErrStockUnavailable, never the compensation error", err)
	}
	if repo.count() != 1 {
		t.Error("row should survive when compensation fails")
	}
}

// 预检通过但服务端拒绝：并发场景下的兜底路径。
func TestCreateTransactionServerSideRejection(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 5}
	stock.applyErrs = []error{domain.ErrStockRejected}
	svc := newTestService(repo, stock)

	_, err := svc.CreateTransaction(context.Background(), &CreateTransactionRequest{
		Type: "Sale", ProductID: 1, Quantity: 3,
	})
	if !errors.Is(err, domain.ErrStockRejected) {
		t.Fatalf("err = %v, want ErrStockRejected", err)
	}
	if repo.count() != 0 {
		t.Error("rejected delta must roll back the ledger row")
	}
}

func TestUpdateTransactionNotFound(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	svc := newTestService(repo, stock)

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: 99, Type: "Sale", ProductID: 1, Quantity: 1,
	})
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
	if len(stock.applied) != 0 {
		t.Error("missing row must not touch stock")
	}
}

func TestUpdateTransactionSameProductNetChange(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypePurchase, 1, 5)

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Date: time.Now(), Type: "Purchase", ProductID: 1, Quantity: 8, UnitPrice: 1,
	})
	if err != nil || !ok {
		t.Fatalf("got (%v, %v), want (true, nil)", ok, err)
	}
	// 旧增量 +5，新增量 +8，净变化 +3
	if got := stock.stockOf(1); got != 13 {
		t.Errorf("stock = %d, want 13", got)
	}
	row, _ := repo.GetByID(context.Background(), id)
	if row.Quantity != 8 {
		t.Errorf("row quantity = %d, want 8", row.Quantity)
	}
}

func TestUpdateTransactionSaleIncreaseInsufficient(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 5}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 2)

	// 净变化 -8，可用库存 5，业务拒绝而不是报错
	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Type: "Sale", ProductID: 1, Quantity: 10, UnitPrice: 1,
	})
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
	if len(stock.applied) != 0 {
		t.Error("rejected update must not mutate stock")
	}
	row, _ := repo.GetByID(context.Background(), id)
	if row.Quantity != 2 {
		t.Errorf("row quantity = %d, want unchanged 2", row.Quantity)
	}
}

func TestUpdateTransactionCrossProduct(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 7}
	stock.products[2] = &stubProduct{stock: 10}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 3)

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Type: "Sale", ProductID: 2, Quantity: 2, UnitPrice: 1,
	})
	if err != nil || !ok {
		t.Fatalf("got (%v, %v), want (true, nil)", ok, err)
	}
	// 旧商品撤销 -(-3)=+3，新商品施加 -2
	if got := stock.stockOf(1); got != 10 {
		t.Errorf("old product stock = %d, want 10", got)
	}
	if got := stock.stockOf(2); got != 8 {
		t.Errorf("new product stock = %d, want 8", got)
	}
	row, _ := repo.GetByID(context.Background(), id)
	if row.ProductID != 2 {
		t.Errorf("row product = %d, want 2", row.ProductID)
	}
}

// 跨商品更新中，新商品不存在时直接拒绝，此时旧商品上的撤销已经生效
// 且不会被回滚。这是沿袭下来的历史行为，见 DESIGN.md。
func TestUpdateTransactionCrossProductTargetMissing(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 7}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 3)

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Type: "Sale", ProductID: 2, Quantity: 2, UnitPrice: 1,
	})
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
	if got := stock.stockOf(1); got != 10 {
		t.Errorf("old product stock = %d, want 10 (revert is not compensated on rejection)", got)
	}
	row, _ := repo.GetByID(context.Background(), id)
	if row.ProductID != 1 || row.Quantity != 3 {
		t.Error("row must be unchanged after rejection")
	}
}

func TestUpdateTransactionCrossProductInsufficient(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 7}
	stock.products[2] = &stubProduct{stock: 1}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 3)

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Type: "Sale", ProductID: 2, Quantity: 5, UnitPrice: 1,
	})
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
	if got := stock.stockOf(2); got != 1 {
		t.Errorf("target product stock = %d, want untouched 1", got)
	}
}

// 库存增量已施加而落库失败：精确回退刚施加的净变化。
func TestUpdateTransactionPersistFailureCompensates(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 10}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypePurchase, 1, 5)
	repo.updateErr = errors.New("connection reset")

	ok, err := svc.UpdateTransaction(context.Background(), &UpdateTransactionRequest{
		ID: id, Type: "Purchase", ProductID: 1, Quantity: 8, UnitPrice: 1,
	})
	if ok || err == nil {
		t.Fatalf("got (%v, %v), want persistence error", ok, err)
	}
	if got := stock.stockOf(1); got != 10 {
		t.Errorf("stock = %d, want 10 after compensation", got)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 6}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 4)

	ok, err := svc.DeleteTransaction(context.Background(), id)
	if err != nil || !ok {
		t.Fatalf("got (%v, %v), want (true, nil)", ok, err)
	}
	if got := stock.stockOf(1); got != 10 {
		t.Errorf("stock = %d, want 10 after reverting the sale", got)
	}
	if repo.count() != 0 {
		t.Error("row must be gone")
	}
}

func TestDeleteTransactionNotFound(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	svc := newTestService(repo, stock)

	ok, err := svc.DeleteTransaction(context.Background(), 99)
	if err != nil || ok {
		t.Fatalf("got (%v, %v), want (false, nil)", ok, err)
	}
}

// 撤销库存失败时必须中止删除，台账行保持原样。
func TestDeleteTransactionAbortsWhenRevertFails(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 6}
	stock.applyErrs = []error{domain.ErrStockUnavailable}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 4)

	ok, err := svc.DeleteTransaction(context.Background(), id)
	if ok || !errors.Is(err, domain.ErrStockUnavailable) {
		t.Fatalf("got (%v, %v), want (false, ErrStockUnavailable)", ok, err)
	}
	if repo.count() != 1 {
		t.Error("row must survive an aborted delete")
	}
	if got := stock.stockOf(1); got != 6 {
		t.Errorf("stock = %d, want untouched 6", got)
	}
}

// 库存已撤销而删行失败：把撤销的增量重新施加回去。
func TestDeleteTransactionPersistFailureCompensates(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{stock: 6}
	svc := newTestService(repo, stock)

	id := seedTransaction(t, repo, domain.TypeSale, 1, 4)
	repo.deleteErr = errors.New("deadlock")

	ok, err := svc.DeleteTransaction(context.Background(), id)
	if ok || err == nil {
		t.Fatalf("got (%v, %v), want persistence error", ok, err)
	}
	if got := stock.stockOf(1); got != 6 {
		t.Errorf("stock = %d, want 6 after re-applying the delta", got)
	}
	if repo.count() != 1 {
		t.Error("row must still exist")
	}
}

func TestGetTransactionByIDAbsent(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeStock())

	dto, err := svc.GetTransactionByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if dto != nil {
		t.Errorf("dto = %+v, want nil", dto)
	}
}

// 列表富化的逐行降级：商品不存在得到空名，远端故障得到占位名，
// 任何一行的失败都不影响整个列表。
func TestGetAllTransactionsEnrichmentDegradation(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	stock.getErrs[3] = domain.ErrStockUnavailable
	svc := newTestService(repo, stock)

	seedTransaction(t, repo, domain.TypePurchase, 1, 1)
	seedTransaction(t, repo, domain.TypePurchase, 2, 1) // 商品不存在
	seedTransaction(t, repo, domain.TypePurchase, 3, 1) // 远端故障

	dtos, err := svc.GetAllTransactions(context.Background())
	if err != nil {
		t.Fatalf("GetAllTransactions: %v", err)
	}
	if len(dtos) != 3 {
		t.Fatalf("len = %d, want 3", len(dtos))
	}

	names := map[int64]string{}
	for _, dto := range dtos {
		names[dto.ProductID] = dto.ProductName
	}
	if names[1] != "Widget" {
		t.Errorf("product 1 name = %q, want Widget", names[1])
	}
	if names[2] != "" {
		t.Errorf("product 2 name = %q, want empty for missing product", names[2])
	}
	if names[3] != "[Product info unavailable]" {
		t.Errorf("product 3 name = %q, want placeholder", names[3])
	}
}

func TestGetTransactionsByProductIDSingleLookup(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	svc := newTestService(repo, stock)

	seedTransaction(t, repo, domain.TypePurchase, 1, 1)
	seedTransaction(t, repo, domain.TypeSale, 1, 1)
	seedTransaction(t, repo, domain.TypePurchase, 1, 2)

	dtos, err := svc.GetTransactionsByProductID(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetTransactionsByProductID: %v", err)
	}
	if len(dtos) != 3 {
		t.Fatalf("len = %d, want 3", len(dtos))
	}
	for _, dto := range dtos {
		if dto.ProductName != "Widget" {
			t.Errorf("name = %q, want Widget", dto.ProductName)
		}
	}
	if stock.getCalls != 1 {
		t.Errorf("GetProduct calls = %d, want 1", stock.getCalls)
	}
}

func TestFilterTransactionsInvalidType(t *testing.T) {
	svc := newTestService(newFakeRepo(), newFakeStock())

	_, err := svc.FilterTransactions(context.Background(), &FilterTransactionsRequest{Type: "Refund"})
	if !errors.Is(err, domain.ErrInvalidTransactionType) {
		t.Fatalf("err = %v, want ErrInvalidTransactionType", err)
	}
}

func TestFilterTransactionsByType(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	svc := newTestService(repo, stock)

	seedTransaction(t, repo, domain.TypePurchase, 1, 1)
	seedTransaction(t, repo, domain.TypeSale, 1, 1)

	dtos, err := svc.FilterTransactions(context.Background(), &FilterTransactionsRequest{Type: "Sale"})
	if err != nil {
		t.Fatalf("FilterTransactions: %v", err)
	}
	if len(dtos) != 1 || dtos[0].Type != "Sale" {
		t.Fatalf("got %d rows, want exactly the sale row", len(dtos))
	}
}

// 一条完整的业务流：销售、超卖拒绝、同商品改量、删除之后，
// 台账与库存始终对得上账。
func TestCoordinatorEndToEndScenario(t *testing.T) {
	repo := newFakeRepo()
	stock := newFakeStock()
	stock.products[1] = &stubProduct{name: "Widget", stock: 10}
	svc := newTestService(repo, stock)
	ctx := context.Background()

	first, err := svc.CreateTransaction(ctx, &CreateTransactionRequest{Type: "Sale", ProductID: 1, Quantity: 4, UnitPrice: 2.5})
	if err != nil {
		t.Fatalf("sale 4: %v", err)
	}
	if first.TotalPrice != 10.0 {
		t.Fatalf("total price = %v, want 10.0", first.TotalPrice)
	}
	if got := stock.stockOf(1); got != 6 {
		t.Fatalf("stock = %d, want 6", got)
	}

	if _, err := svc.CreateTransaction(ctx, &CreateTransactionRequest{Type: "Sale", ProductID: 1, Quantity: 10, UnitPrice: 2.5}); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("oversell: err = %v, want ErrInsufficientStock", err)
	}
	if got := stock.stockOf(1); got != 6 {
		t.Fatalf("stock = %d, want 6 after rejected oversell", got)
	}

	// 同商品改量 4 -> 6：净变化 -2，可用库存 6 足够
	ok, err := svc.UpdateTransaction(ctx, &UpdateTransactionRequest{
		ID: first.ID, Date: time.Now(), Type: "Sale", ProductID: 1, Quantity: 6, UnitPrice: 2.5,
	})
	if err != nil || !ok {
		t.Fatalf("update 4->6: (%v, %v)", ok, err)
	}
	if got := stock.stockOf(1); got != 4 {
		t.Fatalf("stock = %d, want 4 after update", got)
	}

	if ok, err := svc.DeleteTransaction(ctx, first.ID); err != nil || !ok {
		t.Fatalf("delete sale 6: (%v, %v)", ok, err)
	}
	if got := stock.stockOf(1); got != 10 {
		t.Fatalf("stock = %d, want 10 after delete reverted the sale", got)
	}
	if repo.count() != 0 {
		t.Fatalf("row count = %d, want 0", repo.count())
	}
}
