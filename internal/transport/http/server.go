package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"galebot/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server exposes the bot's operations over HTTP.
type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(addr string, svc Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("http server requires a service")
	}
	if addr == "" {
		addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	NewRouter(svc).Register(&router.RouterGroup)

	return &Server{addr: addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), client, time.Since(start))
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
