// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"monsterlab/config"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           5000,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// ConfigFrom 从应用配置转换
func ConfigFrom(cfg config.ServerConfig) ServerConfig {
	sc := DefaultServerConfig()
	if cfg.Port > 0 {
		sc.Port = cfg.Port
	}
	if cfg.Timeout > 0 {
		sc.Timeout = cfg.Timeout
	}
	if cfg.MaxBodyBytes > 0 {
		sc.MaxBodyBytes = cfg.MaxBodyBytes
	}
	if len(cfg.AllowedOrigins) > 0 {
		sc.AllowedOrigins = cfg.AllowedOrigins
	}
	return sc
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, app *App) *Server {
	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.Port),
			Handler: NewHandler(config, app),
			// 写超时由TimeoutMiddleware按路由控制，WebSocket连接不受限
			ReadTimeout: config.Timeout,
			IdleTimeout: 120 * time.Second,
		},
		config: config,
		logger: app.logger(),
	}
}

// NewHandler 注册路由并包装中间件链
func NewHandler(config ServerConfig, app *App) http.Handler {
	mux := http.NewServeMux()
	RegisterPages(mux, app)
	RegisterAPIHandlers(mux, app)

	chain := Chain(
		RecoveryMiddleware(app.logger()),                 // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(app.logger(), app.Metrics, mux), // 2. 日志与指标
		SecurityHeadersMiddleware,                        // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins),            // 4. CORS中间件
		TimeoutMiddleware(config.Timeout),                // 5. 超时中间件
		RequestSizeMiddleware(config.MaxBodyBytes),       // 6. 请求大小限制
	)
	return chain(mux)
}

// Start 启动服务器
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	s.logger.Info("WebSocket endpoint", zap.String("url", fmt.Sprintf("ws://localhost%s/api/ws/model", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
