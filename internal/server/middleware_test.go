package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

type captureRecorder struct {
	mu       sync.Mutex
	entries  []domain.AuditEntry
	err      error
	attempts int
}

func (r *captureRecorder) Record(_ context.Context, entry domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts++
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *captureRecorder) attempted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *captureRecorder) last() domain.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[len(r.entries)-1]
}

func newAuditTestServer(recorder AuditRecorder, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	api := e.Group("/api", RequestAudit(recorder))
	api.GET("/fiscal/iris", handler)
	api.POST("/fiscal/iris", handler)
	api.DELETE("/fiscal/iris/:id", handler)
	return e
}

func okHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestRequestAuditRecordsMutationsOnly(t *testing.T) {
	recorder := &captureRecorder{}
	e := newAuditTestServer(recorder, okHandler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fiscal/iris", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"cnpj":"12345678000195","periodo":"01/2025"}`
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fiscal/iris", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool { return recorder.count() == 1 }, time.Second, 10*time.Millisecond)

	entry := recorder.last()
	assert.Equal(t, "create", entry.Acao)
	assert.Equal(t, "/api/fiscal/iris", entry.Rota)
	assert.Equal(t, http.MethodPost, entry.Metodo)
	assert.JSONEq(t, body, string(entry.Payload))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestRequestAuditPreservesBodyForBinding(t *testing.T) {
	recorder := &captureRecorder{}
	e := newAuditTestServer(recorder, func(c echo.Context) error {
		var req struct {
			CNPJ string `json:"cnpj"`
		}
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bind failed"})
		}
		return c.JSON(http.StatusOK, map[string]string{"cnpj": req.CNPJ})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/fiscal/iris", strings.NewReader(`{"cnpj":"12345678000195"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "12345678000195", resp["cnpj"], "the handler must still see the full body")

	assert.Eventually(t, func() bool { return recorder.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRequestAuditRecordsErrorResponses(t *testing.T) {
	recorder := &captureRecorder{}
	e := newAuditTestServer(recorder, func(c echo.Context) error {
		return c.JSON(http.StatusConflict, map[string]string{"error": "conflito de versão"})
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/fiscal/iris/some-id", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	assert.Eventually(t, func() bool { return recorder.count() == 1 }, time.Second, 10*time.Millisecond)
	entry := recorder.last()
	assert.Equal(t, "delete", entry.Acao)
	assert.Equal(t, "/api/fiscal/iris/some-id", entry.Rota)
	assert.Empty(t, entry.Payload)
}

func TestRequestAuditFailureLeavesResponseUntouched(t *testing.T) {
	recorder := &captureRecorder{err: errors.New("store offline")}
	e := newAuditTestServer(recorder, okHandler)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fiscal/iris", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Eventually(t, func() bool { return recorder.attempted() == 1 }, time.Second, 10*time.Millisecond)
}

func TestAuditPayload(t *testing.T) {
	assert.Nil(t, auditPayload(nil))
	assert.Nil(t, auditPayload([]byte{}))

	valid := auditPayload([]byte(`{"a":1}`))
	assert.JSONEq(t, `{"a":1}`, string(valid))

	quoted := auditPayload([]byte("plain text"))
	assert.Equal(t, `"plain text"`, string(quoted))
}
