// Package preview serves a published site locally and rebuilds it when
// its inputs change.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Nyukimin/daily-zodiac/internal/config"
	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// Rebuilder regenerates the site on demand.
type Rebuilder interface {
	Trigger(ctx context.Context) error
}

// Server serves the output directory under the site base path, so links
// behave the same as on the real host.
type Server struct {
	root      string
	basePath  string
	rebuilder Rebuilder
	router    chi.Router
}

// NewServer creates a server for root. rebuilder may be nil, in which case
// the rebuild endpoint is not registered.
func NewServer(root, basePath string, rebuilder Rebuilder) *Server {
	s := &Server{
		root:      root,
		basePath:  config.NormalizeBasePath(basePath),
		rebuilder: rebuilder,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if s.rebuilder != nil {
		r.Post("/-/rebuild", s.handleRebuild)
	}

	files := http.FileServer(http.Dir(s.root))
	if s.basePath == "/" {
		r.Handle("/*", files)
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, s.basePath, http.StatusFound)
		})
		r.Handle(s.basePath+"*", http.StripPrefix(strings.TrimSuffix(s.basePath, "/"), files))
	}
	return r
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if err := s.rebuilder.Trigger(r.Context()); err != nil {
		logging.PreviewWarn("Rebuild failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Preview("Serving %s at http://%s%s", s.root, addr, s.basePath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		logging.Preview("Preview server stopped")
		return nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.PreviewDebug("%s %s %d %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
