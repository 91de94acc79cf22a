// Package queue defines the audit event payload exchanged over RabbitMQ and
// the consumer that records those events.
package queue

// AuditQueueName is the durable queue audit events are published to.
const AuditQueueName = "invoice.audit"

const (
	EventSubmissionCreated = "submission.created"
	EventRecordsPurged     = "records.purged"
	EventCatalogChanged    = "catalog.changed"
)

// AuditEvent describes a state change worth keeping an audit line for.
// Fields that do not apply to the event type are left empty.
type AuditEvent struct {
	Type string `json:"type"`
	At   string `json:"at"`

	SubmissionID string `json:"submission_id,omitempty"`
	Email        string `json:"email,omitempty"`
	StoreCode    string `json:"store_code,omitempty"`

	// Scope of a purge: all, filtered, invoices or invoice.
	Scope       string `json:"scope,omitempty"`
	Invoices    int64  `json:"invoices,omitempty"`
	Submissions int64  `json:"submissions,omitempty"`
	Employees   int64  `json:"employees,omitempty"`
	Files       int    `json:"files,omitempty"`

	// Catalog changes: created, updated or deleted.
	Action string `json:"action,omitempty"`
	Model  string `json:"model,omitempty"`
}
