// cmd/api-gateway/main.go
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"academy/internal/pkg/bootstrap"
	"academy/internal/pkg/constants"
	"academy/internal/pkg/logger"
	"academy/internal/pkg/nacos"
)

const (
	serviceName = "api-gateway"
	servicePort = 8080
)

// 路由表：/api/<prefix>/... 转发到对应的下游服务，去掉前缀。
var routeTable = map[string]string{
	"coupon":       constants.CouponServiceName,
	"order":        constants.OrderServiceName,
	"catalog":      constants.CatalogServiceName,
	"notification": constants.NotificationServiceName,
}

// proxy 按路由表把请求转发到下游服务。
type proxy struct {
	registry *nacos.Client
	client   *http.Client
	tracer   trace.Tracer
}

func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := p.tracer.Start(r.Context(), "gateway.Proxy")
	defer span.End()

	// 期望的路径形如 /api/order/create_order
	rest := strings.TrimPrefix(r.URL.Path, "/api/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		http.Error(w, "unknown route", http.StatusNotFound)
		return
	}
	serviceName, ok := routeTable[parts[0]]
	if !ok {
		http.Error(w, "unknown route", http.StatusNotFound)
		return
	}

	base, err := p.resolve(serviceName)
	if err != nil {
		span.RecordError(err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	// 会员标识经 Baggage 传递给下游，由券的 CEL 规则按需消费
	if r.URL.Query().Get("is_vip") == "true" {
		if member, err := baggage.NewMember("user_tier", "vip"); err == nil {
			b, _ := baggage.FromContext(ctx).SetMember(member)
			ctx = baggage.ContextWithBaggage(ctx, b)
		}
	}

	downstreamURL := base + "/" + parts[1]
	if r.URL.RawQuery != "" {
		downstreamURL += "?" + r.URL.RawQuery
	}
	span.SetAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("downstream.url", downstreamURL),
		attribute.String("peer.service", serviceName),
	)

	req, err := http.NewRequestWithContext(ctx, r.Method, downstreamURL, r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("service", serviceName).Msg("Downstream call failed")
		http.Error(w, "downstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// resolve 先看环境变量覆盖，再走注册中心发现。
func (p *proxy) resolve(serviceName string) (string, error) {
	envKey := strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_")) + "_URL"
	if base := os.Getenv(envKey); base != "" {
		return strings.TrimSuffix(base, "/"), nil
	}
	if p.registry == nil {
		return "", fmt.Errorf("cannot resolve service %q: %s not set and no registry configured", serviceName, envKey)
	}
	ip, port, err := p.registry.DiscoverServiceInstance(serviceName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			p := &proxy{
				registry: appCtx.Nacos,
				client:   &http.Client{},
				tracer:   otel.Tracer(serviceName),
			}
			appCtx.Mux.Handle("/api/", p)
		},
	})
}
