package server

import (
	"insiderkg/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	apiRoutes.POST("/ingest", routes.PostIngestHandler)
	apiRoutes.GET("/results", routes.GetResultsHandler)
	apiRoutes.GET("/results/:id", routes.GetResultHandler)
}
