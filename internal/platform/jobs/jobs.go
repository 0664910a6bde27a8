package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"zenora/internal/domain/leave"
	"zenora/internal/platform/querier"
)

const JobAnnualAllocation = "annual_allocation"

// Allocator is the slice of the leave service the scheduler drives.
type Allocator interface {
	Allocate(ctx context.Context, tenantID string, input leave.AllocationInput) (leave.AllocationResult, error)
}

// TenantLister yields tenants with auto-allocation enabled, keyed to their
// MM-DD allocation day.
type TenantLister interface {
	ListAutoAllocating(ctx context.Context) (map[string]string, error)
}

type Run struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenantId"`
	Job        string     `json:"job"`
	Status     string     `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Scheduler runs the yearly auto-allocation for tenants that opted in. Each
// tick it checks whether today matches a tenant's allocation day and whether
// a run for that tenant and year already happened; the job_runs table makes
// restarts safe.
type Scheduler struct {
	DB        querier.Querier
	Tenants   TenantLister
	Allocator Allocator
	Interval  time.Duration
}

func NewScheduler(db querier.Querier, tenants TenantLister, allocator Allocator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{DB: db, Tenants: tenants, Allocator: allocator, Interval: interval}
}

// Start blocks until ctx is cancelled. Run it on its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	tenants, err := s.Tenants.ListAutoAllocating(ctx)
	if err != nil {
		slog.Warn("allocation scheduler tenant listing failed", "err", err)
		return
	}
	today := now.Format("01-02")
	for tenantID, day := range tenants {
		if day != today {
			continue
		}
		if err := s.runAllocation(ctx, tenantID, now.Year()); err != nil {
			slog.Warn("scheduled allocation failed", "tenantId", tenantID, "err", err)
		}
	}
}

// RunNow triggers the allocation job for a tenant outside the schedule, the
// path behind the admin "run allocation" endpoint when async execution is
// wanted.
func (s *Scheduler) RunNow(ctx context.Context, tenantID string, year int) error {
	return s.runAllocation(ctx, tenantID, year)
}

func (s *Scheduler) runAllocation(ctx context.Context, tenantID string, year int) error {
	jobKey := fmt.Sprintf("%s:%d", JobAnnualAllocation, year)

	var exists bool
	if err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM job_runs
      WHERE tenant_id = $1 AND job = $2 AND status IN ('running','succeeded')
    )
  `, tenantID, jobKey).Scan(&exists); err != nil {
		return fmt.Errorf("check job run: %w", err)
	}
	if exists {
		return nil
	}

	var runID string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (tenant_id, job, status) VALUES ($1, $2, 'running')
    RETURNING id
  `, tenantID, jobKey).Scan(&runID); err != nil {
		return fmt.Errorf("record job run: %w", err)
	}

	result, err := s.Allocator.Allocate(ctx, tenantID, leave.AllocationInput{Year: year, Prorated: true})
	if err != nil {
		_, uerr := s.DB.Exec(ctx,
			"UPDATE job_runs SET status = 'failed', detail = $2, finished_at = now() WHERE id = $1",
			runID, err.Error())
		if uerr != nil {
			slog.Warn("job run update failed", "err", uerr)
		}
		return err
	}

	detail, _ := json.Marshal(map[string]int{
		"totalEmployees": result.TotalEmployees,
		"successCount":   result.SuccessCount,
		"errorCount":     result.ErrorCount,
	})
	if _, err := s.DB.Exec(ctx,
		"UPDATE job_runs SET status = 'succeeded', detail = $2, finished_at = now() WHERE id = $1",
		runID, string(detail)); err != nil {
		slog.Warn("job run update failed", "err", err)
	}
	slog.Info("annual allocation completed", "tenantId", tenantID, "year", year,
		"success", result.SuccessCount, "errors", result.ErrorCount)
	return nil
}

// ListRuns returns recent job runs for a tenant, newest first.
func (s *Scheduler) ListRuns(ctx context.Context, tenantID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.Query(ctx, `
    SELECT id, tenant_id, job, status, COALESCE(detail, ''), started_at, finished_at
    FROM job_runs
    WHERE tenant_id = $1
    ORDER BY started_at DESC
    LIMIT $2
  `, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.TenantID, &run.Job, &run.Status, &run.Detail, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
