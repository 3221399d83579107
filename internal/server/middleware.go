package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/domain"
)

const (
	maxAuditPayloadBytes = 64 << 10
	auditWriteTimeout    = 5 * time.Second
)

// AuditRecorder persists one entry per mutating API call.
type AuditRecorder interface {
	Record(ctx context.Context, entry domain.AuditEntry) error
}

// RequestAudit records every mutating request routed through the group,
// error responses included. The write happens after the response status
// is committed, on its own goroutine and deadline, so auditing never
// adds latency or failures to the call itself.
func RequestAudit(recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(c)
			}

			// The body is snapshotted before the handler consumes it and
			// restored so binding still works downstream.
			var body []byte
			if c.Request().Body != nil {
				body, _ = io.ReadAll(c.Request().Body)
				c.Request().Body = io.NopCloser(bytes.NewReader(body))
			}

			entry := domain.AuditEntry{
				ID:        uuid.NewString(),
				Acao:      domain.AuditActionForMethod(method),
				Rota:      c.Request().URL.Path,
				Metodo:    method,
				Payload:   auditPayload(body),
				Timestamp: time.Now().UTC(),
			}

			// After funcs run on every Write of the response, so the
			// entry must be recorded exactly once.
			var once sync.Once
			c.Response().After(func() {
				once.Do(func() {
					go func() {
						ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
						defer cancel()

						if err := recorder.Record(ctx, entry); err != nil {
							log.WithError(err).WithFields(log.Fields{
								"rota":   entry.Rota,
								"metodo": entry.Metodo,
							}).Error("Failed to record audit entry")
						}
					}()
				})
			})

			return next(c)
		}
	}
}

// auditPayload bounds the stored copy and keeps it valid JSON. Bodies
// that are not JSON, or that got cut by the bound, are stored as a JSON
// string.
func auditPayload(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if len(body) > maxAuditPayloadBytes {
		body = body[:maxAuditPayloadBytes]
	}
	if json.Valid(body) {
		payload := make(json.RawMessage, len(body))
		copy(payload, body)
		return payload
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
