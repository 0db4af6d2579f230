package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"pngdb/db/engine"
	"pngdb/internal/blob"
)

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "pngdb",
		"databases": h.Len(),
	})
}

// CreateRequest is the body of CreateDatabase. Zero dimensions take the
// configured defaults.
type CreateRequest struct {
	Width  uint32          `json:"width"`
	Height uint32          `json:"height"`
	Schema json.RawMessage `json:"schema"`
}

// CreateDatabase makes a new empty database.
func (h *Handler) CreateDatabase(c echo.Context) error {
	var req CreateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return h.respondError(c, fmt.Errorf("%w: %v", errBadBody, err))
	}
	if len(req.Schema) == 0 {
		return h.respondError(c, fmt.Errorf("%w: schema is required", errBadBody))
	}
	if req.Width == 0 {
		req.Width = h.defaults.DefaultWidth
	}
	if req.Height == 0 {
		req.Height = h.defaults.DefaultHeight
	}

	def, err := parseSchema(req.Schema)
	if err != nil {
		return h.respondError(c, err)
	}
	db, err := engine.New(req.Width, req.Height, def, h.opts...)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.respondOpened(c, db, "")
}

// ImportDatabase opens a database from a PNG request body.
func (h *Handler) ImportDatabase(c echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUpload)
	data, err := io.ReadAll(body)
	if err != nil {
		return h.respondError(c, err)
	}
	db, err := engine.FromPNG(data, h.opts...)
	if err != nil {
		return h.respondError(c, err)
	}
	return h.respondOpened(c, db, "upload")
}

func (h *Handler) respondOpened(c echo.Context, db *engine.Database, source string) error {
	id, e := h.register(db, source)
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := info(id, e)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// GetDatabase describes an open database.
func (h *Handler) GetDatabase(c echo.Context) error {
	id, e, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out, err := info(id, e)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// InsertRequest is the body of InsertRow.
type InsertRequest struct {
	X    uint32          `json:"x"`
	Y    uint32          `json:"y"`
	Data json.RawMessage `json:"data"`
}

// InsertRow appends a row.
func (h *Handler) InsertRow(c echo.Context) error {
	_, e, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	var req InsertRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return h.respondError(c, fmt.Errorf("%w: %v", errBadBody, err))
	}
	if len(req.Data) == 0 {
		return h.respondError(c, fmt.Errorf("%w: data is required", errBadBody))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.db.Insert(req.X, req.Y, string(req.Data)); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"rows": e.db.RowCount(),
		"used": e.db.PayloadSize(),
	})
}

// ListRows returns every row, or those matching the where query parameter.
func (h *Handler) ListRows(c echo.Context) error {
	_, e, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	where := c.QueryParam("where")

	e.mu.Lock()
	defer e.mu.Unlock()
	var out []byte
	if where == "" {
		out, err = e.db.ListAllJSON()
	} else {
		out, err = e.db.QueryJSON(where)
	}
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSONBlob(http.StatusOK, out)
}

// ExportPNG returns the database as a PNG image.
func (h *Handler) ExportPNG(c echo.Context) error {
	id, e, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	e.mu.Lock()
	out, err := e.db.ToPNG()
	e.mu.Unlock()
	if err != nil {
		return h.respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.png"`, id))
	return c.Blob(http.StatusOK, "image/png", out)
}

// SaveRequest is the body of SaveDatabase.
type SaveRequest struct {
	Name string `json:"name"`
}

// SaveDatabase writes the database as a PNG into the blob store.
func (h *Handler) SaveDatabase(c echo.Context) error {
	id, e, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	var req SaveRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return h.respondError(c, fmt.Errorf("%w: %v", errBadBody, err))
	}
	name, err := blob.CleanName(req.Name)
	if err != nil {
		return h.respondError(c, err)
	}

	e.mu.Lock()
	out, err := e.db.ToPNG()
	e.mu.Unlock()
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.store.Write(c.Request().Context(), name, bytes.NewReader(out), int64(len(out))); err != nil {
		return h.respondError(c, err)
	}
	h.logger.Info("database saved", "id", id, "name", name, "bytes", len(out))
	return c.JSON(http.StatusOK, blob.File{Name: name, Size: int64(len(out))})
}

// CloseDatabase forgets an open database. Saved images are kept.
func (h *Handler) CloseDatabase(c echo.Context) error {
	id, _, err := h.lookup(c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	h.mu.Lock()
	delete(h.dbs, id)
	h.mu.Unlock()
	h.logger.Info("database closed", "id", id)
	return c.NoContent(http.StatusNoContent)
}
