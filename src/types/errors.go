package types

import (
	"errors"
	"fmt"
)

// ErrNotConfigured reports that a tenant has no usable settings for an
// integration. Callers skip that tenant/integration; it is never fatal.
var ErrNotConfigured = errors.New("integration not configured")

// IntegrationError wraps a failure talking to an external system, carrying
// enough tenant context for the sync ledger and operator logs.
type IntegrationError struct {
	Integration Integration
	Tenant      Tenant
	Endpoint    string
	StatusCode  int
	Err         error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s: org=%d endpoint=%s status=%d: %v",
		e.Integration, e.Tenant.OrganizationID, e.Endpoint, e.StatusCode, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

// Retriable reports whether the failure is transient (timeout, 5xx,
// connection reset). 4xx responses are never retried.
func (e *IntegrationError) Retriable() bool {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return false
	}
	return true
}

// ReconciliationConflict means an external record could not be mapped to a
// unique local reservation. The record is left untouched and the raw
// payload kept for manual inspection.
type ReconciliationConflict struct {
	ExternalID string
	Reason     string
	Payload    string
}

func (e *ReconciliationConflict) Error() string {
	return fmt.Sprintf("reconciliation conflict for %q: %s", e.ExternalID, e.Reason)
}

// DispatchFailure is a per-channel notification failure. It never blocks
// other channels or other reservations.
type DispatchFailure struct {
	Channel Channel
	Reason  string
	Err     error
}

func (e *DispatchFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dispatch via %s failed: %s: %v", e.Channel, e.Reason, e.Err)
	}
	return fmt.Sprintf("dispatch via %s failed: %s", e.Channel, e.Reason)
}

func (e *DispatchFailure) Unwrap() error { return e.Err }
