package resilience

import (
	"time"

	"github.com/google/uuid"
)

// ReportSummary aggregates counts across the reported errors.
type ReportSummary struct {
	TotalErrors          int              `json:"total_errors"`
	CriticalErrors       int              `json:"critical_errors"`
	HighErrors           int              `json:"high_errors"`
	Categories           []Category       `json:"categories"`
	SeverityDistribution map[Severity]int `json:"severity_distribution"`
}

// ReportRemediation pools de-duplicated guidance from all reported errors.
type ReportRemediation struct {
	ImmediateActions []string `json:"immediate_actions"`
	DetailedSteps    []string `json:"detailed_steps"`
	RecoveryOptions  []string `json:"recovery_options"`
}

// Report is the stable, serializable error report handed back to callers.
type Report struct {
	ReportID         string                      `json:"report_id"`
	Timestamp        time.Time                   `json:"timestamp"`
	OperationContext OpContext                   `json:"operation_context"`
	Summary          ReportSummary               `json:"summary"`
	ErrorsByCategory map[Category][]*ErrorRecord `json:"errors_by_category"`
	Remediation      ReportRemediation           `json:"remediation"`
	NextSteps        []string                    `json:"next_steps"`
}

// Reporter aggregates classified errors into actionable reports.
type Reporter struct{}

// NewReporter creates a Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Report builds a de-duplicated, prioritized report over the given records.
func (r *Reporter) Report(records []*ErrorRecord, opctx OpContext) *Report {
	rep := &Report{
		ReportID:         uuid.New().String(),
		Timestamp:        time.Now().UTC(),
		OperationContext: opctx,
		ErrorsByCategory: make(map[Category][]*ErrorRecord),
		Summary: ReportSummary{
			TotalErrors:          len(records),
			SeverityDistribution: make(map[Severity]int),
		},
	}

	actions := newDedup()
	steps := newDedup()
	var anyRecoverable, anyCritical, anyHigh bool
	seenCategory := make(map[Category]bool)

	for _, rec := range records {
		rep.ErrorsByCategory[rec.Category] = append(rep.ErrorsByCategory[rec.Category], rec)
		rep.Summary.SeverityDistribution[rec.Severity]++

		if !seenCategory[rec.Category] {
			seenCategory[rec.Category] = true
			rep.Summary.Categories = append(rep.Summary.Categories, rec.Category)
		}
		switch rec.Severity {
		case SeverityCritical:
			anyCritical = true
			rep.Summary.CriticalErrors++
		case SeverityHigh:
			anyHigh = true
			rep.Summary.HighErrors++
		}
		if rec.Recoverable {
			anyRecoverable = true
		}
		actions.add(rec.SuggestedActions...)
		steps.add(rec.RemediationSteps...)
	}

	rep.Remediation.ImmediateActions = actions.list
	rep.Remediation.DetailedSteps = steps.list
	rep.Remediation.RecoveryOptions = recoveryOptions(anyRecoverable, anyCritical, anyHigh, seenCategory)
	rep.NextSteps = nextSteps(seenCategory, opctx.OperationType)

	return rep
}

func recoveryOptions(anyRecoverable, anyCritical, anyHigh bool, seen map[Category]bool) []string {
	var opts []string
	if anyRecoverable {
		opts = append(opts, "retry the failed step with exponential backoff")
	}
	if seen[CategoryNetwork] || seen[CategoryRateLimiting] {
		opts = append(opts, "attempt partial recovery from recorded checkpoints")
	}
	if anyCritical || anyHigh {
		opts = append(opts, "roll back partially applied changes")
	}
	if anyCritical {
		opts = append(opts, "escalate for manual intervention")
	}
	return opts
}

func nextSteps(seen map[Category]bool, operationType string) []string {
	var steps []string
	if seen[CategoryAuthorization] {
		steps = append(steps, "review the access policy granted to this tool")
	}
	if seen[CategoryRateLimiting] {
		steps = append(steps, "implement throttling controls before the next run")
	}
	if seen[CategoryNetwork] {
		steps = append(steps, "check connectivity to the directory service")
	}
	if seen[CategoryValidation] {
		steps = append(steps, "validate inputs before reapplying")
	}
	if isCollectionType(operationType) {
		steps = append(steps, "consider an incremental run to reduce load")
	} else {
		steps = append(steps, "use a dry-run preview before reapplying")
	}
	return steps
}

// dedup keeps first-seen insertion order.
type dedup struct {
	seen map[string]bool
	list []string
}

func newDedup() *dedup {
	return &dedup{seen: make(map[string]bool)}
}

func (d *dedup) add(items ...string) {
	for _, item := range items {
		if d.seen[item] {
			continue
		}
		d.seen[item] = true
		d.list = append(d.list, item)
	}
}
