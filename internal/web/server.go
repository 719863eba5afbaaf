package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Config secret 来自 trigger/ingest 配置段
type Config struct {
	Addr          string `mapstructure:"addr"`
	Mode          string `mapstructure:"mode"`
	TriggerSecret string `mapstructure:"-"`
	IngestSecret  string `mapstructure:"-"`
}

func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		Mode: gin.ReleaseMode,
	}
}

// RouteRegistrar 各个 handler 自己注册路由
type RouteRegistrar interface {
	RegisterRoutes(r gin.IRouter)
}

// NewRouter liveFeed 为空时不注册 websocket
func NewRouter(mode string, liveFeed http.HandlerFunc, registrars ...RouteRegistrar) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())
	for _, reg := range registrars {
		reg.RegisterRoutes(r)
	}
	if liveFeed != nil {
		r.GET("/ws/spikes", gin.WrapF(liveFeed))
	}
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

// Serve 阻塞直到 ctx 取消, 之后优雅关闭
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("http server stopped")
	return nil
}
