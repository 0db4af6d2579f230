package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pngdb/db/engine"
	"pngdb/db/schema"
	"pngdb/internal/blob"
	"pngdb/internal/config"
)

// Handler serves the JSON API over a registry of open databases. Each
// database is guarded by its own mutex since the engine has no locking.
type Handler struct {
	mu  sync.RWMutex
	dbs map[uuid.UUID]*entry

	store     blob.Store
	logger    *slog.Logger
	defaults  config.DatabaseConfig
	maxUpload int64
	opts      []engine.Option
}

type entry struct {
	mu      sync.Mutex
	db      *engine.Database
	source  string
	created time.Time
}

// NewHandler creates a handler that saves images to store.
func NewHandler(store blob.Store, cfg *config.Config, logger *slog.Logger) (*Handler, error) {
	level, err := cfg.Database.CompressionLevel()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		dbs:       make(map[uuid.UUID]*entry),
		store:     store,
		logger:    logger,
		defaults:  cfg.Database,
		maxUpload: cfg.Server.MaxUploadBytes,
		opts: []engine.Option{
			engine.WithLogger(logger),
			engine.WithCompressionLevel(level),
			engine.WithMaxPixels(cfg.Database.MaxPixels),
		},
	}, nil
}

func (h *Handler) register(db *engine.Database, source string) (uuid.UUID, *entry) {
	id := uuid.New()
	e := &entry{db: db, source: source, created: time.Now().UTC()}
	h.mu.Lock()
	h.dbs[id] = e
	h.mu.Unlock()
	h.logger.Info("database opened", "id", id, "source", source, "rows", db.RowCount())
	return id, e
}

func (h *Handler) lookup(raw string) (uuid.UUID, *entry, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: %q", errBadID, raw)
	}
	h.mu.RLock()
	e, ok := h.dbs[id]
	h.mu.RUnlock()
	if !ok {
		return id, nil, fmt.Errorf("%w: %s", errUnknownID, id)
	}
	return id, e, nil
}

// Len returns the number of open databases.
func (h *Handler) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dbs)
}

// DatabaseInfo is the JSON description of an open database.
type DatabaseInfo struct {
	ID       uuid.UUID       `json:"id"`
	Width    uint32          `json:"width"`
	Height   uint32          `json:"height"`
	Rows     int             `json:"rows"`
	Schema   json.RawMessage `json:"schema"`
	Capacity uint64          `json:"capacity"`
	Used     int             `json:"used"`
	Source   string          `json:"source,omitempty"`
	Created  time.Time       `json:"created"`
}

// info must be called with e.mu held.
func info(id uuid.UUID, e *entry) (DatabaseInfo, error) {
	s, err := e.db.SchemaJSON()
	if err != nil {
		return DatabaseInfo{}, err
	}
	w, h := e.db.Dimensions()
	return DatabaseInfo{
		ID:       id,
		Width:    w,
		Height:   h,
		Rows:     e.db.RowCount(),
		Schema:   s,
		Capacity: e.db.Capacity(),
		Used:     e.db.PayloadSize(),
		Source:   e.source,
		Created:  e.created,
	}, nil
}

// parseSchema accepts a JSON object or a JSON string holding either a
// JSON object or the compact name:type form.
func parseSchema(raw json.RawMessage) (*schema.Schema, error) {
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", schema.ErrInvalidJSON, err)
		}
		return schema.ParseAny(s)
	}
	return schema.Parse(text)
}
