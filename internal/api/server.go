package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"price-swing-alerts/internal/command"
	"price-swing-alerts/internal/monitor"
)

// Options configures the HTTP surface.
type Options struct {
	// Listen 是监听地址, 形如 ":8080"。
	Listen string
	// ReadTimeout and WriteTimeout bound each request.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes health, metrics, and watch set CRUD over REST.
type Server struct {
	echo     *echo.Echo
	listen   string
	commands *command.Service
	engine   *monitor.Engine
	logger   zerolog.Logger
}

// NewServer 构造 HTTP 服务, 路由已注册但尚未监听。
func NewServer(opts Options, commands *command.Service, engine *monitor.Engine, logger zerolog.Logger) *Server {
	listen := opts.Listen
	if listen == "" {
		listen = ":8080"
	}

	s := &Server{
		listen:   listen,
		commands: commands,
		engine:   engine,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if opts.ReadTimeout > 0 {
		e.Server.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		e.Server.WriteTimeout = opts.WriteTimeout
	}

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)

	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/api/v1")
	g.GET("/symbols", s.handleList)
	g.GET("/symbols/:symbol", s.handleDetail)
	g.POST("/symbols/:symbol", s.handleAdd)
	g.DELETE("/symbols/:symbol", s.handleRemove)

	s.echo = e
	return s
}

// Start begins serving in the background. Failures past startup surface in
// the log rather than the return value.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("listen", s.listen).Msg("http api listening")
		if err := s.echo.Start(s.listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http api terminated")
		}
	}()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	s.logger.Info().Msg("http api stopped")
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", c.Response().Status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
		return err
	}
}
