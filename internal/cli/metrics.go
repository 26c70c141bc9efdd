package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/iseven/internal/domain"
)

// serveMetrics exposes /metrics on addr until the returned stop func is
// called.
func serveMetrics(ctx context.Context, addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, domain.NewResourceError("cannot listen for metrics on "+addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.ErrorContextf(ctx, "serve /metrics: %v", err)
		}
	}()
	clog.InfoContextf(ctx, "serving metrics on %s", ln.Addr())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			clog.WarnContextf(ctx, "shutdown metrics server: %v", err)
		}
	}, nil
}
