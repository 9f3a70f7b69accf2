package resilience

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
	"github.com/lib/pq"
)

// codeRule maps a provider error code pattern to a classification.
// Pattern matching: a trailing '*' matches any suffix, a leading '*' any prefix.
type codeRule struct {
	pattern     string
	category    Category
	severity    Severity
	recoverable bool
	maxRetries  int // 0 = leave the policy's budget alone
}

// Order matters: first match wins.
var codeRules = []codeRule{
	{"Throttling*", CategoryRateLimiting, SeverityMedium, true, 5},
	{"TooManyRequests*", CategoryRateLimiting, SeverityMedium, true, 5},
	{"ServiceQuotaExceeded*", CategoryRateLimiting, SeverityMedium, true, 5},
	{"RequestLimitExceeded", CategoryRateLimiting, SeverityMedium, true, 5},
	{"AccessDenied*", CategoryAuthorization, SeverityHigh, false, 0},
	{"UnauthorizedAccess", CategoryAuthorization, SeverityHigh, false, 0},
	{"ExpiredToken*", CategoryAuthentication, SeverityHigh, false, 0},
	{"InvalidClientTokenId", CategoryAuthentication, SeverityHigh, false, 0},
	{"UnrecognizedClient*", CategoryAuthentication, SeverityHigh, false, 0},
	{"*NotFound", CategoryResourceNotFound, SeverityMedium, false, 0},
	{"*NotFoundException", CategoryResourceNotFound, SeverityMedium, false, 0},
	{"Conflict*", CategoryResourceConflict, SeverityLow, true, 0},
	{"*Exists", CategoryResourceConflict, SeverityLow, true, 0},
	{"*AlreadyExistsException", CategoryResourceConflict, SeverityLow, true, 0},
	{"ValidationException", CategoryValidation, SeverityHigh, false, 0},
	{"InvalidParameter*", CategoryValidation, SeverityHigh, false, 0},
	{"InternalServer*", CategoryNetwork, SeverityMedium, true, 0},
	{"ServiceUnavailable*", CategoryNetwork, SeverityMedium, true, 0},
	{"RequestTimeout*", CategoryNetwork, SeverityMedium, true, 0},
}

// knowledgeBase holds the per-category remediation guidance attached to
// every classified record.
var knowledgeBase = map[Category]struct {
	actions []string
	steps   []string
}{
	CategoryNetwork: {
		actions: []string{"retry with backoff", "check network connectivity"},
		steps:   []string{"verify DNS resolution and proxy settings", "confirm the service endpoint is reachable from this host"},
	},
	CategoryAuthentication: {
		actions: []string{"refresh credentials", "verify the active profile"},
		steps:   []string{"run 'aws sso login' or refresh the credential source", "confirm the configured region matches the SSO instance"},
	},
	CategoryAuthorization: {
		actions: []string{"check IAM permissions", "verify trust policy"},
		steps:   []string{"attach the required identitystore/sso-admin read or write policies", "review any permission boundary or SCP denying the call"},
	},
	CategoryRateLimiting: {
		actions: []string{"retry with backoff", "reduce request rate"},
		steps:   []string{"lower concurrency or batch size", "request a service quota increase if throttling persists"},
	},
	CategoryResourceNotFound: {
		actions: []string{"verify the resource identifier", "refresh the source snapshot"},
		steps:   []string{"confirm the resource was not deleted out of band", "re-run collection to pick up the current directory state"},
	},
	CategoryResourceConflict: {
		actions: []string{"retry the operation", "reconcile the conflicting resource"},
		steps:   []string{"check for a concurrent writer against the same directory", "use a dry-run preview to inspect the conflicting change"},
	},
	CategoryValidation: {
		actions: []string{"validate inputs", "fix the reported fields"},
		steps:   []string{"inspect the rejected payload fields in the error details", "re-run validation locally before retrying"},
	},
	CategoryStorage: {
		actions: []string{"check storage availability", "verify database connectivity"},
		steps:   []string{"confirm the database URL and credentials", "check disk space and table permissions"},
	},
	CategoryEncryption: {
		actions: []string{"verify the encryption key", "check key permissions"},
		steps:   []string{"confirm the key material is present and readable", "rotate the key if it has been revoked"},
	},
	CategoryConfiguration: {
		actions: []string{"review the configuration file", "check environment overrides"},
		steps:   []string{"validate the YAML against the documented surface", "remove stale environment variables shadowing file values"},
	},
	CategoryUnknown: {
		actions: []string{"inspect the underlying error", "retry once manually"},
		steps:   []string{"enable debug logging and reproduce", "file the full error details for investigation"},
	},
}

// Classify converts a raw failure into a structured record. Pure lookup, no
// side effects; safe for concurrent use.
func Classify(err error, ctx OpContext) *ErrorRecord {
	// Already classified failures pass through untouched.
	var existing *ErrorRecord
	if errors.As(err, &existing) {
		return existing
	}

	rec := newRecord(err, ctx)

	if code, ok := providerCode(err); ok {
		rec.ProviderCode = code
		if rule, ok := matchCode(code); ok {
			rec.Category = rule.category
			rec.Severity = rule.severity
			rec.Recoverable = rule.recoverable
			rec.MaxRetries = rule.maxRetries
			attachGuidance(rec)
			return rec
		}
		// Coded but unrecognized: fall through to the failure-kind rules.
		// A cancellation or network failure wrapped under a novel code
		// still has to classify by what actually went wrong.
	}

	classifyKind(err, rec)
	attachGuidance(rec)
	return rec
}

// providerCode extracts the remote service's error code, if any.
func providerCode(err error) (string, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode(), true
	}
	return "", false
}

func matchCode(code string) (codeRule, bool) {
	for _, r := range codeRules {
		if matchPattern(r.pattern, code) {
			return r, true
		}
	}
	return codeRule{}, false
}

func matchPattern(pattern, code string) bool {
	switch {
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(code, strings.TrimSuffix(pattern, "*"))
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(code, strings.TrimPrefix(pattern, "*"))
	default:
		return code == pattern
	}
}

// classifyKind applies the failure-kind fallback rules for uncoded errors.
func classifyKind(err error, rec *ErrorRecord) {
	switch {
	case errors.Is(err, context.Canceled):
		// Cancellation must stop retries immediately.
		rec.Category = CategoryUnknown
		rec.Severity = SeverityMedium
		rec.Recoverable = false
	case errors.Is(err, context.DeadlineExceeded):
		rec.Category = CategoryNetwork
		rec.Severity = SeverityMedium
		rec.Recoverable = true
	case isNetworkErr(err):
		rec.Category = CategoryNetwork
		rec.Severity = SeverityMedium
		rec.Recoverable = true
	case isPostgresErr(err, rec):
		// category/severity/recoverable set by isPostgresErr
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		rec.Category = CategoryStorage
		rec.Severity = SeverityHigh
		rec.Recoverable = false
	case errors.Is(err, ErrInvalidPayload):
		rec.Category = CategoryValidation
		rec.Severity = SeverityHigh
		rec.Recoverable = false
	case errors.Is(err, ErrConnectionInvalid):
		rec.Category = CategoryConfiguration
		rec.Severity = SeverityHigh
		rec.Recoverable = false
	case errors.Is(err, ErrCorruptPayload):
		rec.Category = CategoryStorage
		rec.Severity = SeverityCritical
		rec.Recoverable = false
	default:
		rec.Category = CategoryUnknown
		rec.Severity = SeverityMedium
		rec.Recoverable = true
	}
}

func isNetworkErr(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED)
}

// isPostgresErr classifies database driver errors. Connection-class failures
// (SQLSTATE 08xxx) are transient; everything else is a hard storage error.
func isPostgresErr(err error, rec *ErrorRecord) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	rec.Category = CategoryStorage
	rec.Severity = SeverityHigh
	rec.Recoverable = strings.HasPrefix(string(pqErr.Code), "08")
	rec.Details = map[string]string{"sqlstate": string(pqErr.Code)}
	return true
}

func attachGuidance(rec *ErrorRecord) {
	kb := knowledgeBase[rec.Category]
	rec.SuggestedActions = append([]string(nil), kb.actions...)
	rec.RemediationSteps = append([]string(nil), kb.steps...)
}

// Sentinel failures the orchestrators raise themselves.
var (
	// ErrInvalidPayload marks a payload that failed structural validation.
	ErrInvalidPayload = errors.New("payload failed validation")

	// ErrConnectionInvalid marks a failed pre-flight connection check.
	ErrConnectionInvalid = errors.New("connection validation failed")

	// ErrCorruptPayload marks a stored snapshot that failed its integrity check.
	ErrCorruptPayload = errors.New("snapshot integrity check failed")
)
