package dashboard

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xaenox/intent-bot/internal/metrics"
	"github.com/xaenox/intent-bot/internal/storage"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const shutdownTimeout = 5 * time.Second

// NewRouter wires the dashboard routes. Without a store only the liveness
// routes are served.
func NewRouter(store storage.Storage, logger *zap.Logger) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if store == nil {
		router.GET("/", Liveness)
		return router, nil
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)

	h := NewHandler(store, logger)
	router.GET("/", h.Index)
	router.GET("/user/:id", h.User)
	router.GET("/dashboard", h.Dashboard)

	return router, nil
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, store storage.Storage, logger *zap.Logger) (*Server, error) {
	router, err := NewRouter(store, logger)
	if err != nil {
		return nil, err
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Dashboard listening", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("Dashboard stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
