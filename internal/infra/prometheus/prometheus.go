package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/ShortURL/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
	defaultPort       = 9090
)

// Handler exposes g in the Prometheus text or OpenMetrics format. Gathering
// errors are logged and the remaining metrics are still served.
func Handler(g prom.Gatherer, log *zap.Logger) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorLog:          zap.NewStdLog(log.Named("metrics")),
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}

// NewServer builds the HTTP server that exposes /metrics for scraping. It
// runs beside the main fiber app so metrics stay reachable when the app is
// rate limited.
func NewServer(cfg config.PrometheusConfig, log *zap.Logger) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(prom.DefaultGatherer, log))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// Serve runs the metrics server until ctx is done, then shuts it down.
func Serve(ctx context.Context, cfg config.PrometheusConfig, log *zap.Logger) error {
	srv := NewServer(cfg, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting Prometheus metrics server", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("prometheus: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("prometheus: shutdown: %w", err)
	}
	return nil
}
