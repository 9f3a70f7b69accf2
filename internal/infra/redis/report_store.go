package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/idcvault/idcvault/internal/resilience"
	"github.com/redis/go-redis/v9"
)

// ErrReportNotFound is returned when a report id doesn't exist or has expired
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists error reports for later inspection.
type ReportStore interface {
	Save(ctx context.Context, report *resilience.Report, ttl time.Duration) error
	Load(ctx context.Context, reportID string) (*resilience.Report, error)
}

func reportKey(id string) string {
	return fmt.Sprintf("reports:%s", id)
}

// Save stores a report under its id with the given TTL.
func (c *Client) Save(ctx context.Context, report *resilience.Report, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.rdb.Set(ctx, reportKey(report.ReportID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Load fetches a report by id.
func (c *Client) Load(ctx context.Context, reportID string) (*resilience.Report, error) {
	data, err := c.rdb.Get(ctx, reportKey(reportID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report resilience.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// MemoryReportStore is the fallback when redis is not configured. Entries
// expire lazily on read.
type MemoryReportStore struct {
	mu      sync.Mutex
	reports map[string]memoryReport
}

type memoryReport struct {
	report    *resilience.Report
	expiresAt time.Time
}

// NewMemoryReportStore creates an empty in-process report store.
func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]memoryReport)}
}

func (s *MemoryReportStore) Save(ctx context.Context, report *resilience.Report, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ReportID] = memoryReport{
		report:    report,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *MemoryReportStore) Load(ctx context.Context, reportID string) (*resilience.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.reports[reportID]
	if !ok {
		return nil, ErrReportNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.reports, reportID)
		return nil, ErrReportNotFound
	}
	return entry.report, nil
}
