// Package rpcServer exposes transaction submission and the notification
// audit log over a JSON HTTP API.
package rpcServer

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Layr-Labs/chainwatch/pkg/metrics"
	"github.com/Layr-Labs/chainwatch/pkg/metrics/metricsTypes"
	"github.com/Layr-Labs/chainwatch/pkg/notificationStore"
	"github.com/Layr-Labs/chainwatch/pkg/transactionBuilder"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type RpcServerConfig struct {
	HttpPort int
}

// Submitter runs a single submission. *transactionBuilder.TransactionBuilder
// satisfies it.
type Submitter interface {
	Submit(ctx context.Context, req *transactionBuilder.SubmissionRequest) (*transactionBuilder.SubmissionResult, error)
}

type RpcServer struct {
	config      *RpcServerConfig
	submitter   Submitter
	store       notificationStore.NotificationStore
	metricsSink *metrics.MetricsSink
	Logger      *zap.Logger

	httpServer *http.Server
}

// NewRpcServer builds the server. store may be nil, in which case the audit
// log routes answer 503.
func NewRpcServer(
	cfg *RpcServerConfig,
	submitter Submitter,
	store notificationStore.NotificationStore,
	ms *metrics.MetricsSink,
	l *zap.Logger,
) *RpcServer {
	if ms == nil {
		ms = metrics.NewNoopMetricsSink()
	}
	rpc := &RpcServer{
		config:      cfg,
		submitter:   submitter,
		store:       store,
		metricsSink: ms,
		Logger:      l,
	}
	rpc.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HttpPort),
		Handler:           rpc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rpc
}

// Handler returns the routed API with CORS and request metrics applied.
func (rpc *RpcServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", rpc.handleHealth)
	mux.HandleFunc("POST /v1/submissions", rpc.handleSubmit)
	mux.HandleFunc("GET /v1/submissions/{sessionId}", rpc.handleListSubmissions)
	mux.HandleFunc("GET /v1/notifications/{trigger}", rpc.handleListNotifications)

	return cors.AllowAll().Handler(rpc.withMetrics(mux))
}

// Start serves in the background until ctx is done. Errors other than a
// clean shutdown are sent on errCh.
func (rpc *RpcServer) Start(ctx context.Context, errCh chan<- error) {
	go func() {
		rpc.Logger.Sugar().Infow("Starting http rpc server", zap.Int("port", rpc.config.HttpPort))
		if err := rpc.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rpc.Logger.Sugar().Errorw("Http rpc server failed", zap.Error(err))
			if errCh != nil {
				errCh <- err
			}
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rpc.httpServer.Shutdown(shutdownCtx); err != nil {
			rpc.Logger.Sugar().Errorw("Failed to shut down http rpc server", zap.Error(err))
		}
	}()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (rpc *RpcServer) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		labels := []metricsTypes.MetricsLabel{
			{Name: "method", Value: req.Method},
			{Name: "path", Value: routeLabel(req)},
			{Name: "status_code", Value: strconv.Itoa(rec.status)},
		}
		_ = rpc.metricsSink.Incr(metricsTypes.Metric_Incr_HttpRequest, labels, 1)
		_ = rpc.metricsSink.Timing(metricsTypes.Metric_Timing_HttpDuration, time.Since(start), labels)
	})
}

// routeLabel keeps path parameters out of metric labels.
func routeLabel(req *http.Request) string {
	if req.Pattern != "" {
		return req.Pattern
	}
	return "unmatched"
}
