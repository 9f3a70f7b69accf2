package resilience

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/aws/smithy-go"
)

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "simulated"}
}

func TestClassify_ProviderCodes(t *testing.T) {
	tests := []struct {
		code        string
		category    Category
		severity    Severity
		recoverable bool
	}{
		{"ThrottlingException", CategoryRateLimiting, SeverityMedium, true},
		{"TooManyRequestsException", CategoryRateLimiting, SeverityMedium, true},
		{"AccessDeniedException", CategoryAuthorization, SeverityHigh, false},
		{"ResourceNotFound", CategoryResourceNotFound, SeverityMedium, false},
		{"ConflictException", CategoryResourceConflict, SeverityLow, true},
		{"GroupAlreadyExists", CategoryResourceConflict, SeverityLow, true},
		{"ExpiredTokenException", CategoryAuthentication, SeverityHigh, false},
		{"ValidationException", CategoryValidation, SeverityHigh, false},
		{"ServiceUnavailableException", CategoryNetwork, SeverityMedium, true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := Classify(apiErr(tt.code), OpContext{StepName: "collect_users"})
			if rec.Category != tt.category {
				t.Errorf("category = %s, want %s", rec.Category, tt.category)
			}
			if rec.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", rec.Severity, tt.severity)
			}
			if rec.Recoverable != tt.recoverable {
				t.Errorf("recoverable = %v, want %v", rec.Recoverable, tt.recoverable)
			}
			if rec.ProviderCode != tt.code {
				t.Errorf("provider code = %s, want %s", rec.ProviderCode, tt.code)
			}
		})
	}
}

func TestClassify_ThrottlingRaisesRetryBudget(t *testing.T) {
	rec := Classify(apiErr("Throttling"), OpContext{})
	if rec.Category != CategoryRateLimiting {
		t.Fatalf("category = %s, want RATE_LIMITING", rec.Category)
	}
	if !rec.Recoverable {
		t.Fatal("throttling must be recoverable")
	}
	if rec.MaxRetries < 5 {
		t.Errorf("max retries = %d, want >= 5", rec.MaxRetries)
	}
}

func TestClassify_UnknownCodeFallsBack(t *testing.T) {
	rec := Classify(apiErr("SomethingNovel"), OpContext{})
	if rec.Category != CategoryUnknown {
		t.Errorf("category = %s, want UNKNOWN", rec.Category)
	}
	if rec.Severity != SeverityMedium {
		t.Errorf("severity = %s, want MEDIUM", rec.Severity)
	}
	if !rec.Recoverable {
		t.Error("unknown codes should stay recoverable so policy tables decide")
	}
}

// wrappedAPIError carries a provider code around an underlying cause, the
// way SDK operation errors wrap transport failures.
type wrappedAPIError struct {
	smithy.GenericAPIError
	cause error
}

func (e *wrappedAPIError) Unwrap() error { return e.cause }

func codedErr(code string, cause error) error {
	return &wrappedAPIError{
		GenericAPIError: smithy.GenericAPIError{Code: code, Message: "simulated"},
		cause:           cause,
	}
}

func TestClassify_CodedCauseUsesKindRules(t *testing.T) {
	tests := []struct {
		name        string
		cause       error
		category    Category
		severity    Severity
		recoverable bool
	}{
		{"cancellation stays non-recoverable", context.Canceled, CategoryUnknown, SeverityMedium, false},
		{"deadline is a network failure", context.DeadlineExceeded, CategoryNetwork, SeverityMedium, true},
		{"permission is a hard storage failure", fs.ErrPermission, CategoryStorage, SeverityHigh, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(codedErr("NovelCode", tt.cause), OpContext{})
			if rec.Category != tt.category {
				t.Errorf("category = %s, want %s", rec.Category, tt.category)
			}
			if rec.Severity != tt.severity {
				t.Errorf("severity = %s, want %s", rec.Severity, tt.severity)
			}
			if rec.Recoverable != tt.recoverable {
				t.Errorf("recoverable = %v, want %v", rec.Recoverable, tt.recoverable)
			}
			if rec.ProviderCode != "NovelCode" {
				t.Errorf("provider code = %s, want NovelCode", rec.ProviderCode)
			}
		})
	}
}

func TestClassify_KindRules(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		category    Category
		recoverable bool
	}{
		{"deadline", context.DeadlineExceeded, CategoryNetwork, true},
		{"cancelled", context.Canceled, CategoryUnknown, false},
		{"file missing", fs.ErrNotExist, CategoryStorage, false},
		{"permission", fs.ErrPermission, CategoryStorage, false},
		{"invalid payload", fmt.Errorf("restore: %w", ErrInvalidPayload), CategoryValidation, false},
		{"plain", errors.New("boom"), CategoryUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.err, OpContext{})
			if rec.Category != tt.category {
				t.Errorf("category = %s, want %s", rec.Category, tt.category)
			}
			if rec.Recoverable != tt.recoverable {
				t.Errorf("recoverable = %v, want %v", rec.Recoverable, tt.recoverable)
			}
		})
	}
}

func TestClassify_AttachesGuidance(t *testing.T) {
	rec := Classify(apiErr("AccessDenied"), OpContext{})
	if len(rec.SuggestedActions) == 0 || len(rec.RemediationSteps) == 0 {
		t.Fatal("expected guidance attached from the knowledge base")
	}
	if rec.SuggestedActions[0] != "check IAM permissions" {
		t.Errorf("first action = %q", rec.SuggestedActions[0])
	}
}

func TestClassify_PassesThroughClassified(t *testing.T) {
	first := Classify(apiErr("AccessDenied"), OpContext{StepName: "apply_users"})
	second := Classify(fmt.Errorf("wrapped: %w", first), OpContext{})
	if second != first {
		t.Fatal("already classified errors must pass through unchanged")
	}
}

func TestClassify_ErrorsAsRecord(t *testing.T) {
	err := error(Classify(apiErr("ThrottlingException"), OpContext{}))
	var rec *ErrorRecord
	if !errors.As(err, &rec) {
		t.Fatal("ErrorRecord should satisfy errors.As")
	}
}
