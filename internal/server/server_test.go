package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pngdb/db/engine"
	"pngdb/internal/blob"
	"pngdb/internal/config"
)

type rowView struct {
	X    uint32          `json:"x"`
	Y    uint32          `json:"y"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*echo.Echo, *Handler, *blob.Memory) {
	t.Helper()
	store := blob.NewMemory()
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 1 << 20
	h, err := NewHandler(store, cfg, nil)
	require.NoError(t, err)
	e := echo.New()
	SetupRoutes(e, h, nil)
	return e, h, store
}

func do(t *testing.T, e *echo.Echo, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createPeople(t *testing.T, e *echo.Echo) DatabaseInfo {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/databases",
		strings.NewReader(`{"width":100,"height":100,"schema":{"name":"string","age":"number"}}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))

	for _, row := range []string{
		`{"x":10,"y":20,"data":{"name":"Alice","age":30}}`,
		`{"x":50,"y":60,"data":{"name":"Bob","age":25}}`,
	} {
		rec := do(t, e, http.MethodPost, "/api/databases/"+info.ID.String()+"/rows", strings.NewReader(row))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return info
}

func decodeRows(t *testing.T, rec *httptest.ResponseRecorder) []rowView {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rows []rowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	return rows
}

func TestHealthCheck(t *testing.T) {
	_, h, _ := newTestServer(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HealthCheck(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
	assert.Contains(t, rec.Body.String(), "pngdb")
}

func TestCreateAndQuery(t *testing.T) {
	e, h, _ := newTestServer(t)
	info := createPeople(t, e)

	assert.Equal(t, uint32(100), info.Width)
	assert.Equal(t, `{"name":"string","age":"number"}`, string(info.Schema))
	assert.Equal(t, uint64(40000), info.Capacity)
	assert.Equal(t, 1, h.Len())

	base := "/api/databases/" + info.ID.String()

	rows := decodeRows(t, do(t, e, http.MethodGet, base+"/rows?where="+url.QueryEscape("age > 28"), nil))
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(10), rows[0].X)
	assert.JSONEq(t, `{"name":"Alice","age":30}`, string(rows[0].Data))

	rows = decodeRows(t, do(t, e, http.MethodGet, base+"/rows?where="+url.QueryEscape("age > 100"), nil))
	assert.Empty(t, rows)

	rows = decodeRows(t, do(t, e, http.MethodGet, base+"/rows?where="+url.QueryEscape(`name = "Bob"`), nil))
	require.Len(t, rows, 1)
	assert.Equal(t, uint32(50), rows[0].X)

	rows = decodeRows(t, do(t, e, http.MethodGet, base+"/rows", nil))
	require.Len(t, rows, 2)
	assert.Equal(t, uint32(10), rows[0].X)
	assert.Equal(t, uint32(50), rows[1].X)

	rec := do(t, e, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Rows)
	assert.Greater(t, got.Used, 0)
}

func TestCreateDefaultsAndCompactSchema(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/api/databases", strings.NewReader(`{"schema":"name:string,active:boolean"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, uint32(256), info.Width)
	assert.Equal(t, uint32(256), info.Height)
	assert.Equal(t, `{"name":"string","active":"boolean"}`, string(info.Schema))

	rec = do(t, e, http.MethodPost, "/api/databases", strings.NewReader(`{"schema":"{\"n\":\"number\"}"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestErrorStatuses(t *testing.T) {
	e, _, _ := newTestServer(t)
	info := createPeople(t, e)
	base := "/api/databases/" + info.ID.String()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"bad body", http.MethodPost, "/api/databases", `{`, http.StatusBadRequest},
		{"missing schema", http.MethodPost, "/api/databases", `{"width":10}`, http.StatusBadRequest},
		{"unknown type", http.MethodPost, "/api/databases", `{"schema":{"a":"date"}}`, http.StatusBadRequest},
		{"empty schema", http.MethodPost, "/api/databases", `{"schema":{}}`, http.StatusBadRequest},
		{"too small", http.MethodPost, "/api/databases", `{"width":1,"height":1,"schema":{"a":"string"}}`, http.StatusRequestEntityTooLarge},
		{"too many pixels", http.MethodPost, "/api/databases", `{"width":1048576,"height":1048576,"schema":{"a":"string"}}`, http.StatusRequestEntityTooLarge},
		{"overflowing dimensions", http.MethodPost, "/api/databases", `{"width":4294967295,"height":4294967295,"schema":{"a":"string"}}`, http.StatusRequestEntityTooLarge},
		{"invalid utf-8 column", http.MethodPost, "/api/databases", "{\"schema\":{\"na\xffme\":\"string\"}}", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/databases/nope", "", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/databases/" + uuid.NewString(), "", http.StatusNotFound},
		{"validation", http.MethodPost, base + "/rows", `{"x":1,"y":1,"data":{"name":"C"}}`, http.StatusBadRequest},
		{"bounds", http.MethodPost, base + "/rows", `{"x":100,"y":1,"data":{"name":"C","age":1}}`, http.StatusBadRequest},
		{"negative coordinate", http.MethodPost, base + "/rows", `{"x":-1,"y":1,"data":{"name":"C","age":1}}`, http.StatusBadRequest},
		{"missing data", http.MethodPost, base + "/rows", `{"x":1,"y":1}`, http.StatusBadRequest},
		{"syntax", http.MethodGet, base + "/rows?where=" + url.QueryEscape("age >"), "", http.StatusBadRequest},
		{"unknown column", http.MethodGet, base + "/rows?where=" + url.QueryEscape("weight > 1"), "", http.StatusBadRequest},
		{"type mismatch", http.MethodGet, base + "/rows?where=" + url.QueryEscape(`age = "x"`), "", http.StatusBadRequest},
		{"not a png", http.MethodPost, "/api/databases/import", "garbage", http.StatusBadRequest},
		{"missing file", http.MethodPost, "/api/files/nothing/open", "", http.StatusNotFound},
		{"bad save name", http.MethodPost, base + "/save", `{"name":"../x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			rec := do(t, e, tt.method, tt.target, body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestCapacityExceeded(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/api/databases", strings.NewReader(`{"width":6,"height":2,"schema":{"n":"number"}}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))

	target := "/api/databases/" + info.ID.String() + "/rows"
	require.Equal(t, http.StatusCreated, do(t, e, http.MethodPost, target, strings.NewReader(`{"x":0,"y":0,"data":{"n":1}}`)).Code)
	rec = do(t, e, http.MethodPost, target, strings.NewReader(`{"x":0,"y":0,"data":{"n":2}}`))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestExportImport(t *testing.T) {
	e, _, _ := newTestServer(t)
	info := createPeople(t, e)

	rec := do(t, e, http.MethodGet, "/api/databases/"+info.ID.String()+"/png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	png := rec.Body.Bytes()

	db, err := engine.FromPNG(png)
	require.NoError(t, err)
	assert.Equal(t, 2, db.RowCount())

	rec = do(t, e, http.MethodPost, "/api/databases/import", bytes.NewReader(png))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var imported DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &imported))
	assert.NotEqual(t, info.ID, imported.ID)
	assert.Equal(t, 2, imported.Rows)

	rows := decodeRows(t, do(t, e, http.MethodGet, "/api/databases/"+imported.ID.String()+"/rows", nil))
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"name":"Bob","age":25}`, string(rows[1].Data))
}

func TestImportTooLarge(t *testing.T) {
	store := blob.NewMemory()
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 16
	h, err := NewHandler(store, cfg, nil)
	require.NoError(t, err)
	e := echo.New()
	SetupRoutes(e, h, nil)

	rec := do(t, e, http.MethodPost, "/api/databases/import", bytes.NewReader(make([]byte, 64)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSaveOpenFiles(t *testing.T) {
	e, _, store := newTestServer(t)
	info := createPeople(t, e)

	rec := do(t, e, http.MethodPost, "/api/databases/"+info.ID.String()+"/save", strings.NewReader(`{"name":"people"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, e, http.MethodGet, "/api/files", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []blob.File
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "people.png", files[0].Name)
	assert.Greater(t, files[0].Size, int64(0))

	rec = do(t, e, http.MethodPost, "/api/files/people.png/open", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var opened DatabaseInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	assert.Equal(t, "people.png", opened.Source)
	assert.Equal(t, 2, opened.Rows)

	rec = do(t, e, http.MethodDelete, "/api/files/people", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	files, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCloseDatabase(t *testing.T) {
	e, h, _ := newTestServer(t)
	info := createPeople(t, e)
	target := "/api/databases/" + info.ID.String()

	rec := do(t, e, http.MethodDelete, target, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, h.Len())

	rec = do(t, e, http.MethodGet, target, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
