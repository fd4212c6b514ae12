package domain

type AuditEventType string

const (
	AuditRecordCreated AuditEventType = "audit_record.created"
	AuditRecordUpdated AuditEventType = "audit_record.updated"
)

// AuditEvent is published whenever a record is created or changes state.
type AuditEvent struct {
	Type   AuditEventType `json:"type"`
	Record *AuditRecord   `json:"record"`
}

type AlertKind string

const (
	AlertAnchorFailed AlertKind = "anchor_failed"
	AlertSweepGaveUp  AlertKind = "sweep_gave_up"
)

// AnchorAlert reports a record that needs operator attention.
type AnchorAlert struct {
	Kind   AlertKind
	Record *AuditRecord
	Reason string
}
