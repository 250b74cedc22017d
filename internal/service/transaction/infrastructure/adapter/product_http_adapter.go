// internal/service/transaction/infrastructure/adapter/product_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"stockledger/internal/pkg/constants"
	"stockledger/internal/pkg/httpclient"
	"stockledger/internal/service/transaction/domain"
	"stockledger/internal/service/transaction/domain/port"
)

// ProductHTTPAdapter 实现了 port.StockService 接口。
// 把商品服务的 HTTP 协议翻译成协调器的错误分类：
// 404 -> 不存在/被拒绝，超时与 5xx -> 远端不可用。
type ProductHTTPAdapter struct {
	client *httpclient.Client
}

// NewProductHTTPAdapter 创建一个新的库存服务适配器。
func NewProductHTTPAdapter(client *httpclient.Client) *ProductHTTPAdapter {
	return &ProductHTTPAdapter{client: client}
}

type productResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

type stockUpdateRequest struct {
	ProductID int64 `json:"productId"`
	// Quantity 是带符号的增量，不是绝对库存
	Quantity int `json:"quantity"`
}

// GetProduct 获取商品快照。
func (a *ProductHTTPAdapter) GetProduct(ctx context.Context, productID int64) (*port.ProductSnapshot, error) {
	var resp productResponse
	err := a.client.GetJSON(ctx, constants.ProductService, fmt.Sprintf("%s%d", constants.ProductPath, productID), &resp)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return nil, errors.Wrapf(domain.ErrProductNotFound, "product %d", productID)
		}
		return nil, errors.Wrapf(domain.ErrStockUnavailable, "get product %d: %v", productID, err)
	}

	return &port.ProductSnapshot{
		ID:    resp.ID,
		Name:  resp.Name,
		Price: resp.Price,
		Stock: resp.Stock,
	}, nil
}

// ApplyStockDelta 对商品库存施加带符号增量。
// 服务端保证增量是原子的且结果为负时拒绝，这里不做任何重试。
func (a *ProductHTTPAdapter) ApplyStockDelta(ctx context.Context, productID int64, delta int) error {
	path := fmt.Sprintf("%s%d%s", constants.ProductPath, productID, constants.ProductStockPath)
	err := a.client.PatchJSON(ctx, constants.ProductService, path, stockUpdateRequest{
		ProductID: productID,
		Quantity:  delta,
	})
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			// 商品服务对"商品不存在"和"结果会为负"返回同一种拒绝
			return errors.Wrapf(domain.ErrStockRejected, "product %d, delta %d", productID, delta)
		}
		return errors.Wrapf(domain.ErrStockUnavailable, "apply delta %d to product %d: %v", delta, productID, err)
	}
	return nil
}
