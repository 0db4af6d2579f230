package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"pngdb/db/engine"
	"pngdb/internal/blob"
)

// ListFiles lists the images in the blob store.
func (h *Handler) ListFiles(c echo.Context) error {
	files, err := h.store.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// OpenFile opens a stored image as a new database.
func (h *Handler) OpenFile(c echo.Context) error {
	name, err := blob.CleanName(c.Param("name"))
	if err != nil {
		return h.respondError(c, err)
	}
	data, err := blob.ReadAll(c.Request().Context(), h.store, name)
	if err != nil {
		return h.respondError(c, err)
	}
	db, err := engine.FromPNG(data, h.opts...)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.respondOpened(c, db, name)
}

// DeleteFile removes a stored image.
func (h *Handler) DeleteFile(c echo.Context) error {
	name, err := blob.CleanName(c.Param("name"))
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.store.Delete(c.Request().Context(), name); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
