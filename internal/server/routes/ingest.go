package routes

import (
	"encoding/json"
	"net/http"

	"insiderkg/internal/queue"
	"insiderkg/internal/server/middleware"
	"insiderkg/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PostIngestHandler enqueues an ingestion job for one company. The report
// URL is optional; without it the worker locates the report itself.
func PostIngestHandler(c echo.Context) error {
	type ingestBody struct {
		Company string `json:"company" validate:"required"`
		URL     string `json:"url" validate:"omitempty,url"`
	}

	cc := c.(*middleware.AppContext)

	var body ingestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	msg := queue.IngestMsg{
		Company: body.Company,
		URL:     body.URL,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to encode job"})
	}

	if err := queue.PublishFIFO(cc.App.Queue, queue.IngestQueue, data); err != nil {
		logger.Error("Failed to enqueue ingestion job", "company", body.Company, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to enqueue job"})
	}

	logger.Info("Ingestion job enqueued", "company", body.Company)
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Ingestion job enqueued",
		"company": body.Company,
	})
}
