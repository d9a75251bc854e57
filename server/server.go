package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/stackhpc/reductionist-go/internal/reduce"
	"github.com/stackhpc/reductionist-go/internal/stats"
)

// Router builds the full route table. Grounded on ais/target.go's
// initRecvHandlers: one entry per logical resource, registered once at
// startup, never mutated afterwards.
func (s *AppState) Router() http.Handler {
	mux := http.NewServeMux()
	for _, name := range []string{"count", "min", "max", "sum", "mean", "select"} {
		mux.HandleFunc("/v1/"+name, s.operationHandler(reduce.Lookup(name)))
	}
	mux.HandleFunc("/.well-known/reductionist-schema", s.schemaHandler)
	mux.Handle("/metrics", stats.Handler(s.Registry))
	mux.HandleFunc("/healthz", s.healthHandler)
	return recoverMiddleware(mux)
}

// recoverMiddleware is the top-level safety net described in §7: a panic
// inside one request's handling is logged and turned into a 500, rather
// than taking down the process.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				glog.Errorf("server: recovered panic handling %s %s: %v", r.Method, r.URL.Path, rec)
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Serve runs the HTTP(S) server until ctx is cancelled or a termination
// signal arrives, then drains in-flight requests for up to the configured
// graceful-shutdown timeout. Grounded on original_source/src/server.rs's
// serve/shutdown_signal pair.
func Serve(ctx context.Context, app *AppState) error {
	addr := app.Config.Host + ":" + portString(app.Config.Port)
	httpServer := &http.Server{Addr: addr, Handler: app.Router()}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		glog.Infof("server: listening on %s (https=%v)", addr, app.Config.HTTPS)
		var err error
		if app.Config.HTTPS {
			certFile, keyErr := expandPath(app.Config.CertFile)
			keyFile, keyErr2 := expandPath(app.Config.KeyFile)
			if keyErr != nil || keyErr2 != nil {
				serveErr <- errors.New("failed to resolve TLS certificate/key path")
				return
			}
			err = httpServer.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	glog.Infof("server: signal received, starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(app.Config.GracefulShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serveErr
}

func portString(port uint16) string {
	return strconv.Itoa(int(port))
}

// expandPath resolves a leading "~" to the user's home directory, the Go
// equivalent of the reference's expanduser crate.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
