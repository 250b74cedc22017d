// internal/pkg/httpclient/client.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Resolver 将服务名解析为基础 URL，由 Nacos 客户端实现。
type Resolver interface {
	GetServiceURL(serviceName string) (string, error)
}

// StatusError 表示下游服务返回了非 2xx 状态码。
// 传输层错误（超时、连接失败）不会被包装成 StatusError。
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream returned status %d: %s", e.Code, e.Body)
}

// Client 是一个可追踪的、可注入的 JSON HTTP 客户端。
// 每次调用都受固定超时约束；调用失败不做自动重试，
// 重试与否由上层的补偿逻辑决定。
type Client struct {
	tracer     trace.Tracer
	httpClient *http.Client
	resolver   Resolver
	// staticURLs 是服务名到地址的静态兜底表，Nacos 未启用时使用
	staticURLs  map[string]string
	callTimeout time.Duration
}

// NewClient 创建一个新的客户端实例。resolver 可以为 nil，此时只用静态表。
func NewClient(tracer trace.Tracer, resolver Resolver, staticURLs map[string]string, callTimeout time.Duration) *Client {
	// 不设置 http.Client.Timeout，超时完全由每次请求的 context 控制
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		tracer:      tracer,
		httpClient:  httpClient,
		resolver:    resolver,
		staticURLs:  staticURLs,
		callTimeout: callTimeout,
	}
}

// resolve 返回目标服务的基础 URL，优先走注册中心。
func (c *Client) resolve(serviceName string) (string, error) {
	if c.resolver != nil {
		if u, err := c.resolver.GetServiceURL(serviceName); err == nil {
			return u, nil
		}
	}
	if u, ok := c.staticURLs[serviceName]; ok {
		return u, nil
	}
	return "", fmt.Errorf("no address known for service %s", serviceName)
}

// GetJSON 对目标服务执行 GET 并将响应体解析到 out。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, serviceName, path, nil, out)
}

// PatchJSON 对目标服务执行 PATCH，body 会被序列化为 JSON。
func (c *Client) PatchJSON(ctx context.Context, serviceName, path string, body interface{}) error {
	return c.doJSON(ctx, http.MethodPatch, serviceName, path, body, nil)
}

func (c *Client) doJSON(ctx context.Context, method, serviceName, path string, body, out interface{}) error {
	baseURL, err := c.resolve(serviceName)
	if err != nil {
		return err
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("call-%s", serviceName), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", baseURL+path),
		attribute.String("http.method", method),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{Code: resp.StatusCode, Body: string(raw)}
		span.RecordError(statusErr)
		span.SetStatus(codes.Error, statusErr.Error())
		return statusErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			span.RecordError(err)
			return err
		}
	}
	return nil
}
