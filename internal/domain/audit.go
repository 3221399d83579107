package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// AuditEntry is one recorded mutating API call. Entries are standalone:
// they reference the route and raw request payload, never a stored record.
type AuditEntry struct {
	ID        string          `json:"id"`
	Acao      string          `json:"acao"`
	Rota      string          `json:"rota"`
	Metodo    string          `json:"metodo"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// AuditEvent is the envelope mirrored to the audit topic.
type AuditEvent struct {
	Service    string          `json:"service"`
	EventType  string          `json:"event_type"`
	Rota       string          `json:"rota"`
	Metodo     string          `json:"metodo"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Event converts the entry into its topic envelope.
func (e AuditEntry) Event(service string) AuditEvent {
	return AuditEvent{
		Service:    service,
		EventType:  e.Acao,
		Rota:       e.Rota,
		Metodo:     e.Metodo,
		OccurredAt: e.Timestamp,
		Payload:    e.Payload,
	}
}

// AuditActionForMethod maps an HTTP method onto the recorded action name.
func AuditActionForMethod(method string) string {
	switch method {
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
