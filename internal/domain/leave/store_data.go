package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int) (Balance, bool, error) {
	var b Balance
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_id, leave_type, year, balance, updated_at
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND leave_type = $3 AND year = $4
  `, tenantID, employeeID, leaveType, year).Scan(&b.ID, &b.EmployeeID, &b.LeaveType, &b.Year, &b.Balance, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, false, nil
	}
	if err != nil {
		return Balance{}, false, err
	}
	return b, true, nil
}

func (s *Store) ListBalancesForYear(ctx context.Context, tenantID, employeeID string, year int) ([]Balance, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, leave_type, year, balance, updated_at
    FROM leave_balances
    WHERE tenant_id = $1 AND employee_id = $2 AND year = $3
    ORDER BY leave_type
  `, tenantID, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ID, &b.EmployeeID, &b.LeaveType, &b.Year, &b.Balance, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SetBalance overwrites the balance row, creating it when absent. The unique
// key on (tenant_id, employee_id, leave_type, year) keeps this a single
// upsert. Returns whether the row was newly created.
func (s *Store) SetBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int, value float64) (bool, error) {
	var created bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type, year, balance)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (tenant_id, employee_id, leave_type, year)
    DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()
    RETURNING (xmax = 0)
  `, tenantID, employeeID, leaveType, year, value).Scan(&created)
	return created, err
}

func (s *Store) AdjustBalance(ctx context.Context, tenantID, employeeID, leaveType string, year int, delta float64) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (tenant_id, employee_id, leave_type, year, balance)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (tenant_id, employee_id, leave_type, year)
    DO UPDATE SET balance = leave_balances.balance + EXCLUDED.balance, updated_at = now()
  `, tenantID, employeeID, leaveType, year, delta)
	return err
}

// AllocateEmployeeYear writes one employee's full-year balances in a single
// transaction, so a crash mid-batch never leaves an employee half-allocated.
func (s *Store) AllocateEmployeeYear(ctx context.Context, tenantID, employeeID string, year int, totals map[string]float64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin allocation tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Warn("allocation tx rollback failed", "err", err)
		}
	}()

	for leaveType, total := range totals {
		if _, err := tx.Exec(ctx, `
      INSERT INTO leave_balances (tenant_id, employee_id, leave_type, year, balance)
      VALUES ($1,$2,$3,$4,$5)
      ON CONFLICT (tenant_id, employee_id, leave_type, year)
      DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()
    `, tenantID, employeeID, leaveType, year, total); err != nil {
			return fmt.Errorf("allocate %s: %w", leaveType, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) TenantBalancesForYear(ctx context.Context, tenantID string, year int) (map[string]map[string]float64, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, leave_type, balance
    FROM leave_balances
    WHERE tenant_id = $1 AND year = $2
  `, tenantID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]map[string]float64{}
	for rows.Next() {
		var employeeID, leaveType string
		var balance float64
		if err := rows.Scan(&employeeID, &leaveType, &balance); err != nil {
			return nil, err
		}
		if out[employeeID] == nil {
			out[employeeID] = map[string]float64{}
		}
		out[employeeID][leaveType] = balance
	}
	return out, rows.Err()
}

func (s *Store) CreateRequest(ctx context.Context, tenantID string, req Request) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (tenant_id, employee_id, leave_type, start_date, end_date, days, reason, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, req.EmployeeID, req.LeaveType, req.StartDate, req.EndDate, req.Days, req.Reason, req.Status).Scan(&id)
	return id, err
}

func (s *Store) GetRequest(ctx context.Context, tenantID, requestID string) (Request, error) {
	var r Request
	err := s.DB.QueryRow(ctx, `
    SELECT lr.id, lr.employee_id, e.first_name || ' ' || e.last_name,
           lr.leave_type, lr.start_date, lr.end_date, lr.days, lr.reason, lr.status,
           lr.decided_by, lr.decided_at, lr.decision_note,
           (SELECT COUNT(1) FROM leave_request_documents d WHERE d.request_id = lr.id),
           lr.created_at
    FROM leave_requests lr
    JOIN employees e ON e.id = lr.employee_id AND e.tenant_id = lr.tenant_id
    WHERE lr.tenant_id = $1 AND lr.id = $2
  `, tenantID, requestID).Scan(
		&r.ID, &r.EmployeeID, &r.EmployeeName,
		&r.LeaveType, &r.StartDate, &r.EndDate, &r.Days, &r.Reason, &r.Status,
		&r.DecidedBy, &r.DecidedAt, &r.DecisionNote, &r.DocumentCount, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, ErrNotFound
	}
	if err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *Store) ListRequests(ctx context.Context, tenantID string, f RequestFilter) ([]Request, error) {
	query := `
    SELECT lr.id, lr.employee_id, e.first_name || ' ' || e.last_name,
           lr.leave_type, lr.start_date, lr.end_date, lr.days, lr.reason, lr.status,
           lr.decided_by, lr.decided_at, lr.decision_note,
           (SELECT COUNT(1) FROM leave_request_documents d WHERE d.request_id = lr.id),
           lr.created_at
    FROM leave_requests lr
    JOIN employees e ON e.id = lr.employee_id AND e.tenant_id = lr.tenant_id
    WHERE lr.tenant_id = $1`
	args := []any{tenantID}

	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		query += fmt.Sprintf(" AND lr.employee_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND lr.status = $%d", len(args))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		query += fmt.Sprintf(" AND EXTRACT(YEAR FROM lr.start_date)::int = $%d", len(args))
	}
	query += " ORDER BY lr.created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(
			&r.ID, &r.EmployeeID, &r.EmployeeName,
			&r.LeaveType, &r.StartDate, &r.EndDate, &r.Days, &r.Reason, &r.Status,
			&r.DecidedBy, &r.DecidedAt, &r.DecisionNote, &r.DocumentCount, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequestStatus(ctx context.Context, tenantID, requestID, status, deciderUserID string, note *string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE leave_requests
    SET status = $3, decided_by = $4, decided_at = now(), decision_note = $5
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, requestID, status, deciderUserID, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasOverlappingRequest checks pending and approved requests only; rejected
// and cancelled requests never block a new range.
func (s *Store) HasOverlappingRequest(ctx context.Context, tenantID, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE tenant_id = $1 AND employee_id = $2
        AND status IN ('PENDING','APPROVED')
        AND start_date <= $4 AND end_date >= $3
    )
  `, tenantID, employeeID, start, end).Scan(&exists)
	return exists, err
}

func (s *Store) CreateDocument(ctx context.Context, tenantID, requestID string, doc DocumentUpload) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_request_documents (tenant_id, request_id, file_name, mime_type, size_bytes, data)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING id
  `, tenantID, requestID, doc.FileName, doc.MimeType, len(doc.Data), doc.Data).Scan(&id)
	return id, err
}

func (s *Store) ListDocuments(ctx context.Context, tenantID, requestID string) ([]Document, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, request_id, file_name, mime_type, size_bytes, created_at
    FROM leave_request_documents
    WHERE tenant_id = $1 AND request_id = $2
    ORDER BY created_at
  `, tenantID, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.RequestID, &d.FileName, &d.MimeType, &d.SizeBytes, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DocumentData(ctx context.Context, tenantID, documentID string) (Document, []byte, error) {
	var d Document
	var data []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, request_id, file_name, mime_type, size_bytes, created_at, data
    FROM leave_request_documents
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, documentID).Scan(&d.ID, &d.RequestID, &d.FileName, &d.MimeType, &d.SizeBytes, &d.CreatedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, nil, ErrNotFound
	}
	if err != nil {
		return Document{}, nil, err
	}
	return d, data, nil
}
