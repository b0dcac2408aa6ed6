package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/nacos"
)

// Client 是一个可追踪的服务间 HTTP 客户端。
// 地址解析顺序：环境变量 <SERVICE>_URL 优先，其次走 Nacos 服务发现。
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Registry   *nacos.Client
}

// NewClient 创建一个新的客户端实例。registry 可以为 nil，此时只依赖环境变量寻址。
func NewClient(tracer trace.Tracer, registry *nacos.Client) *Client {
	// 不设置 Timeout 字段，让请求完全受控于传入的 context
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		Registry:   registry,
	}
}

// resolve 将逻辑服务名解析为 "http://host:port" 形式的基地址。
func (c *Client) resolve(serviceName string) (string, error) {
	envKey := strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")) + "_URL"
	if base := os.Getenv(envKey); base != "" {
		return strings.TrimSuffix(base, "/"), nil
	}
	if c.Registry == nil {
		return "", fmt.Errorf("cannot resolve service %q: %s not set and no registry configured", serviceName, envKey)
	}
	ip, port, err := c.Registry.DiscoverServiceInstance(serviceName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}

// PostJSON 向目标服务发送 JSON 请求并解码 JSON 响应。
// respBody 为 nil 时忽略响应体；非 2xx 状态码返回错误，错误信息中带上响应片段。
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, reqBody, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodPost, serviceName, path, reqBody, respBody)
}

// GetJSON 向目标服务发送 GET 请求并解码 JSON 响应。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, respBody interface{}) error {
	return c.doJSON(ctx, http.MethodGet, serviceName, path, nil, respBody)
}

func (c *Client) doJSON(ctx context.Context, method, serviceName, path string, reqBody, respBody interface{}) error {
	ctx, span := c.Tracer.Start(ctx, fmt.Sprintf("call-%s", serviceName), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	base, err := c.resolve(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	fullURL := base + path

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			span.RecordError(err)
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	span.SetAttributes(
		attribute.String("http.url", fullURL),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("service %s returned status %s: %s", serviceName, resp.Status, string(snippet))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to decode response from %s: %w", serviceName, err)
	}
	return nil
}
