package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, h *Handler, allowOrigins []string) {
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			h.logger.LogAttrs(context.Background(), slog.LevelInfo, "request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	e.GET("/health", h.HealthCheck)

	api := e.Group("/api")

	databases := api.Group("/databases")
	databases.POST("", h.CreateDatabase)
	databases.POST("/import", h.ImportDatabase)
	databases.GET("/:id", h.GetDatabase)
	databases.DELETE("/:id", h.CloseDatabase)
	databases.POST("/:id/rows", h.InsertRow)
	databases.GET("/:id/rows", h.ListRows)
	databases.GET("/:id/png", h.ExportPNG)
	databases.POST("/:id/save", h.SaveDatabase)

	files := api.Group("/files")
	files.GET("", h.ListFiles)
	files.POST("/:name/open", h.OpenFile)
	files.DELETE("/:name", h.DeleteFile)
}
