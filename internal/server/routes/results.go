package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"insiderkg/internal/server/middleware"
	"insiderkg/internal/storage"

	"github.com/labstack/echo/v4"
)

// Result ids are either lowercased company slugs (local files) or nanoid
// run ids (archived documents), so uppercase is allowed. No separator can
// escape the results directory.
var reResultID = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// GetResultsHandler lists the available result documents: local JSON
// files plus, when configured, the archived runs in object storage.
func GetResultsHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)

	locals := []string{}
	entries, err := os.ReadDir(cc.App.ResultsDir)
	if err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
				locals = append(locals, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
	}

	archived := []string{}
	if cc.App.S3 != nil {
		ids, err := storage.ListResults(c.Request().Context(), cc.App.S3)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to list archived results"})
		}
		archived = ids
	}

	return c.JSON(http.StatusOK, map[string]any{
		"results":  locals,
		"archived": archived,
	})
}

// GetResultHandler serves one result document by id: local files first,
// then the archive when one is configured.
func GetResultHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)

	id := c.Param("id")
	if !reResultID.MatchString(id) {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid result id"})
	}

	path := filepath.Join(cc.App.ResultsDir, id+".json")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}

	if cc.App.S3 != nil {
		data, err := storage.GetResult(c.Request().Context(), cc.App.S3, storage.ResultKey(id))
		if err == nil {
			return c.Blob(http.StatusOK, "application/json", data)
		}
	}
	return c.JSON(http.StatusNotFound, map[string]string{"message": "Result not found"})
}
