package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/strata-community/internal/config"
	"github.com/shinyyama/strata-community/internal/handler"
	"github.com/shinyyama/strata-community/internal/imagestore"
	appmw "github.com/shinyyama/strata-community/internal/middleware"
	"github.com/shinyyama/strata-community/internal/repository"
	"github.com/shinyyama/strata-community/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators a Server is built from. Admin may be nil, in
// which case admin routes are registered without authentication.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Images imagestore.Store
	Admin  *appmw.AdminAuth
	Logger *zap.Logger
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func New(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cfg := d.Config
	production := cfg.IsProduction()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadBytes>>20+1)))
	e.Use(middleware.CORSWithConfig(corsConfig(cfg.CORSAllowedOrigins)))

	if local, ok := d.Images.(*imagestore.LocalStore); ok {
		e.Static(cfg.UploadURLPrefix, local.Dir())
	}

	repo := repository.NewMarketplaceRepository(d.DB)
	marketSvc := service.NewMarketplaceService(repo, log)
	cleanupSvc := service.NewCleanupService(repo, d.Images, log)

	marketHandler := handler.NewMarketplaceHandler(marketSvc, log, production)
	adminHandler := handler.NewAdminHandler(cleanupSvc, log, production)
	uploadHandler := handler.NewUploadHandler(d.Images, cfg.MaxUploadBytes, log, production)

	var admin []echo.MiddlewareFunc
	if d.Admin != nil {
		admin = append(admin, d.Admin.RequireAdmin)
	} else {
		log.Warn("admin auth not configured; admin routes are open")
	}

	api := e.Group("/api")
	api.GET("/health", handler.Health(cfg.AppEnv))

	mp := api.Group("/marketplace")
	mp.GET("", marketHandler.List)
	mp.POST("", marketHandler.Create)
	mp.GET("/:id", marketHandler.Get, admin...)
	mp.PUT("/:id", marketHandler.Update)
	mp.PUT("/:id/sold", marketHandler.MarkSold)
	mp.DELETE("/:id", marketHandler.Delete)
	mp.POST("/:id/replies", marketHandler.CreateReply)
	mp.GET("/:id/replies", marketHandler.ListReplies, admin...)
	mp.DELETE("/:id/replies/:replyId", marketHandler.DeleteReply, admin...)

	api.POST("/admin/cleanup", adminHandler.Cleanup, admin...)

	api.POST("/upload/image", uploadHandler.UploadImage)
	api.DELETE("/upload/image", uploadHandler.DeleteImage, admin...)

	return &Server{e: e, log: log}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	s.log.Info("starting server", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}

// corsConfig allows the configured origins, or any localhost origin when
// none are configured.
func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
		return cfg
	}
	cfg.AllowOriginFunc = func(origin string) (bool, error) {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false, nil
		}
		host := strings.ToLower(u.Hostname())
		return host == "localhost" || host == "127.0.0.1", nil
	}
	return cfg
}
