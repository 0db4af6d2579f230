package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"pngdb/db/codec"
	"pngdb/db/container"
	"pngdb/db/engine"
	"pngdb/db/parser"
	"pngdb/db/pixel"
	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/internal/blob"
)

var (
	errBadID     = errors.New("invalid database id")
	errUnknownID = errors.New("database not found")
	errBadBody   = errors.New("invalid request body")
)

var badRequest = []error{
	errBadID,
	errBadBody,
	schema.ErrInvalidJSON,
	schema.ErrUnknownType,
	schema.ErrEmpty,
	schema.ErrDuplicateColumn,
	schema.ErrInvalidColumn,
	schema.ErrValidation,
	storage.ErrOutOfBounds,
	parser.ErrSyntax,
	engine.ErrUnknownColumn,
	engine.ErrTypeMismatch,
	codec.ErrBadMagic,
	codec.ErrBadVersion,
	codec.ErrTruncated,
	codec.ErrMalformed,
	container.ErrContainer,
	blob.ErrInvalidName,
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, pixel.ErrCapacity), errors.Is(err, pixel.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errUnknownID), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondError(c echo.Context, err error) error {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
	} else {
		h.logger.Debug("request rejected", "path", c.Path(), "status", code, "err", err)
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}
