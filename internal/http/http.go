package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircraftconsole/internal/auth"
	"aircraftconsole/internal/config"
	"aircraftconsole/internal/console"
	"aircraftconsole/internal/http/middleware"
	"aircraftconsole/internal/notify"
	"aircraftconsole/internal/session"
	"aircraftconsole/internal/web"
	"aircraftconsole/resources"
)

// ActionsPrefix is where the console's form posts land.
const ActionsPrefix = "/app/actions/"

// Server holds what the console's handlers share across requests.
type Server struct {
	Config  *config.Config
	TPL     *web.Renderer
	Clients *console.Clients
	Signer  *auth.Signer
	Sealer  *auth.Sealer
	// DB backs the postgres session driver; nil with the cookie driver.
	DB           session.Querier
	StockAlerts  *notify.StockAlerts
	HTTPClient   *http.Client
	LoginLimiter *middleware.RateLimiter
	// Ready reports dependencies for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewMux(s *Server) (*http.ServeMux, error) {
	if s.TPL == nil {
		rend, err := web.NewRenderer()
		if err != nil {
			return nil, err
		}
		s.TPL = rend
	}
	if s.Clients == nil {
		s.Clients = console.NewClients(12 * time.Hour)
	}
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(resources.FS)))

	dash := routePath(s.Config.Console.DashboardURL)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, dash, http.StatusSeeOther)
	})

	ah := &AuthHandler{S: s}
	ah.Routes(mux)

	mux.Handle("GET "+dash+"{panel...}", &DashboardHandler{S: s})

	act := &ActionHandler{S: s}
	act.Routes(mux)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := s.Ready(ctx); err != nil {
				slog.Warn("http.not_ready", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return mux, nil
}

func WithStandardMiddleware(signer *auth.Signer, next http.Handler) http.Handler {
	return requestLogger(securityHeaders(middleware.WithClient(signer)(next)))
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		slog.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// pathOf is the path part of a configured URL, which may be absolute.
func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}

// routePath is the configured URL's path with exactly one trailing slash.
func routePath(raw string) string {
	return strings.TrimSuffix(pathOf(raw), "/") + "/"
}
