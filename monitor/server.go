// Package monitor 提供只读的调试 HTTP 端点。
//
// 暴露 Provider 注册表、覆写规则和统计计数器的快照，便于诊断
// 注入层的配置问题，不提供任何修改入口。
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrapinghub/scrapy-poet-sub000/injection"
	"github.com/scrapinghub/scrapy-poet-sub000/logging"
	"github.com/scrapinghub/scrapy-poet-sub000/stats"
)

// ServerOptions 监控服务配置选项
type ServerOptions struct {
	Port   int
	Logger logging.Logger
}

// Server 监控 HTTP 服务
type Server struct {
	injector *injection.Injector
	sink     stats.Sink
	engine   *gin.Engine
	server   *http.Server
	logger   logging.Logger
}

// NewServer 创建监控服务
func NewServer(injector *injection.Injector, sink stats.Sink, opts *ServerOptions) (*Server, error) {
	if injector == nil {
		return nil, fmt.Errorf("monitor: injector is required")
	}
	if opts == nil {
		opts = &ServerOptions{}
	}
	if opts.Port == 0 {
		opts.Port = 6024
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		injector: injector,
		sink:     sink,
		engine:   engine,
		logger:   logger.WithCategory("monitor"),
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", opts.Port),
			Handler: engine,
		},
	}

	engine.GET("/providers", s.handleProviders)
	engine.GET("/overrides", s.handleOverrides)
	engine.GET("/stats", s.handleStats)
	return s, nil
}

func (s *Server) handleProviders(c *gin.Context) {
	c.JSON(http.StatusOK, s.injector.Providers().Providers())
}

func (s *Server) handleOverrides(c *gin.Context) {
	c.JSON(http.StatusOK, s.injector.Overrides().Rules())
}

func (s *Server) handleStats(c *gin.Context) {
	if s.sink == nil {
		c.JSON(http.StatusOK, map[string]int64{})
		return
	}
	c.JSON(http.StatusOK, s.sink.Snapshot())
}

// Handler 返回底层 HTTP 处理器（用于测试与嵌入）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 启动监听，阻塞直到服务关闭
func (s *Server) Start() error {
	s.logger.Info("monitor server listening", logging.Field{Key: "addr", Value: s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitor: server failed: %w", err)
	}
	return nil
}

// Stop 优雅关闭服务
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
