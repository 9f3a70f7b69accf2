package resilience

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category buckets a failure by its origin.
type Category string

const (
	CategoryNetwork          Category = "NETWORK"
	CategoryAuthentication   Category = "AUTHENTICATION"
	CategoryAuthorization    Category = "AUTHORIZATION"
	CategoryRateLimiting     Category = "RATE_LIMITING"
	CategoryResourceNotFound Category = "RESOURCE_NOT_FOUND"
	CategoryResourceConflict Category = "RESOURCE_CONFLICT"
	CategoryValidation       Category = "VALIDATION"
	CategoryStorage          Category = "STORAGE"
	CategoryEncryption       Category = "ENCRYPTION"
	CategoryConfiguration    Category = "CONFIGURATION"
	CategoryUnknown          Category = "UNKNOWN"
)

// Severity is the impact axis, independent of category.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// OpContext identifies where in a workflow a failure happened.
// Extra carries collaborator-specific metadata that has no named field.
type OpContext struct {
	OperationID   string            `json:"operation_id,omitempty"`
	OperationType string            `json:"operation_type,omitempty"`
	StepName      string            `json:"step_name,omitempty"`
	ResourceType  string            `json:"resource_type,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// ErrorRecord is a classified failure. It implements error so it can flow
// through normal return paths and be picked out with errors.As.
type ErrorRecord struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Category     Category          `json:"category"`
	Severity     Severity          `json:"severity"`
	Message      string            `json:"message"`
	ProviderCode string            `json:"provider_code,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
	Context      OpContext         `json:"context"`

	SuggestedActions []string `json:"suggested_actions,omitempty"`
	RemediationSteps []string `json:"remediation_steps,omitempty"`

	RetryCount  int  `json:"retry_count"`
	MaxRetries  int  `json:"max_retries"`
	Recoverable bool `json:"recoverable"`

	cause error
}

func newRecord(cause error, ctx OpContext) *ErrorRecord {
	return &ErrorRecord{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Message:   cause.Error(),
		Context:   ctx,
		cause:     cause,
	}
}

// Error implements the error interface.
func (r *ErrorRecord) Error() string {
	if r.ProviderCode != "" {
		return fmt.Sprintf("%s [%s/%s]: %s", r.ProviderCode, r.Category, r.Severity, r.Message)
	}
	return fmt.Sprintf("[%s/%s]: %s", r.Category, r.Severity, r.Message)
}

// Unwrap exposes the original failure.
func (r *ErrorRecord) Unwrap() error {
	return r.cause
}
