package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/authgate/pkg/httpclient"
)

const (
	// healthProbeTimeout は下流サービスのヘルスチェック1回あたりの制限時間。
	healthProbeTimeout = 5 * time.Second

	// 下流サービスの状態
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	// 全体の状態。1つでも不健全な下流があればdegradedになる
	statusDegraded = "degraded"
)

// HealthReport はGateway全体のヘルスチェック結果。
type HealthReport struct {
	// Status は全体の状態（healthy または degraded）。
	Status string `json:"status"`
	// Timestamp はチェック実施時刻（UTC, ISO 8601）。
	Timestamp string `json:"timestamp"`
	// Services は下流サービスごとの状態。
	Services map[string]string `json:"services"`
}

// downstream はヘルスチェック対象の下流サービス。
type downstream struct {
	name   string
	client *httpclient.Client
}

// HealthAggregator は下流サービスのヘルスを集約する。
// 結果はキャッシュせず、呼び出しごとに全サービスを確認する。
type HealthAggregator struct {
	services []downstream
	logger   *zap.Logger
	now      func() time.Time
	// probeTimeout は1回のヘルスチェックの制限時間。これを超えた下流はunhealthyになる。
	probeTimeout time.Duration
}

// NewHealthAggregator は新しいHealthAggregatorを生成する。
func NewHealthAggregator(logger *zap.Logger) *HealthAggregator {
	return &HealthAggregator{
		logger:       logger,
		now:          time.Now,
		probeTimeout: healthProbeTimeout,
	}
}

// Register はヘルスチェック対象の下流サービスを追加する。
// 各サービスの/healthをprobeTimeout以内に確認する。
func (h *HealthAggregator) Register(name, baseURL string) {
	h.services = append(h.services, downstream{
		name:   name,
		client: httpclient.New(baseURL, h.probeTimeout),
	})
}

// Check は全下流サービスを並行して確認し、結果を集約する。
// 下流の失敗理由はログにのみ残し、結果は healthy / unhealthy の2値に丸める。
// 個々の失敗はエラーとして返さないため、ctxがキャンセルされない限り全サービスの確認を待つ。
func (h *HealthAggregator) Check(ctx context.Context) HealthReport {
	var (
		mu       sync.Mutex
		services = make(map[string]string, len(h.services))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range h.services {
		g.Go(func() error {
			status := h.probe(gctx, svc)
			mu.Lock()
			services[svc.name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := statusHealthy
	for _, status := range services {
		if status != statusHealthy {
			overall = statusDegraded
			break
		}
	}

	return HealthReport{
		Status:    overall,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000000"),
		Services:  services,
	}
}

// probe は1つの下流サービスの/healthを呼び出し、200ならhealthyを返す。
func (h *HealthAggregator) probe(ctx context.Context, svc downstream) string {
	resp, err := svc.client.Get(ctx, "/health")
	if err != nil {
		h.logger.Warn("下流サービスのヘルスチェックに失敗しました",
			zap.String("service", svc.name),
			zap.Error(err),
		)
		return statusUnhealthy
	}
	if resp.StatusCode != http.StatusOK {
		h.logger.Warn("下流サービスが不健全です",
			zap.String("service", svc.name),
			zap.Int("status", resp.StatusCode),
		)
		return statusUnhealthy
	}
	return statusHealthy
}
