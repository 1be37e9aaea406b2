// Package pprofserver serves the runtime profiling endpoints on a separate, private listener.
package pprofserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
)

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

func newServer() *http.Server {
	mux := http.NewServeMux()
	Handle(mux)
	return &http.Server{ //nolint:exhaustruct // profiles take long to collect so no write timeout.
		Handler:           mux,
		ReadHeaderTimeout: time.Second,
	}
}

// Launch serves pprof at addr in the background until ctx is done. Use a loopback address so that it's not open to
// the world.
func Launch(ctx context.Context, addr string, logger *slog.Logger) {
	go func() {
		if err := serve(ctx, addr, logger); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(err))
		}
	}()
}

func serve(ctx context.Context, addr string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "TCP listen", slog.String("addr", addr))
	}
	srv := newServer()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("pprof_addr", listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
