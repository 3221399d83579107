package domain

// DashboardSummary carries the aggregate counters shown on the office
// dashboard. Counters degrade to zero when their source query fails.
type DashboardSummary struct {
	EmpresasAtivas   int64 `json:"empresasAtivas"`
	CalculosFiscais  int64 `json:"calculosFiscais"`
	ComPendencias    int64 `json:"registrosComPendencias"`
	EventosAuditoria int64 `json:"eventosAuditoria"`
}
