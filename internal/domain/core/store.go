package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zenora/internal/domain/auth"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

var ErrNotFound = errors.New("not found")

func (s *Store) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE tenant_id = $1 AND user_id = $2
  `, tenantID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) IsManagerOf(ctx context.Context, tenantID, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM employees
    WHERE tenant_id = $1 AND id = $2 AND manager_id = $3
  `, tenantID, employeeID, managerEmployeeID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ManagerUserIDForEmployee returns the user id of the employee's manager, or
// empty when the employee sits at the org root.
func (s *Store) ManagerUserIDForEmployee(ctx context.Context, tenantID, employeeID string) (string, error) {
	var managerUserID string
	err := s.DB.QueryRow(ctx, `
    SELECT m.user_id
    FROM employees e
    JOIN employees m ON e.manager_id = m.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&managerUserID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return managerUserID, nil
}

func (s *Store) UserIDForEmployee(ctx context.Context, tenantID, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT user_id FROM employees WHERE tenant_id = $1 AND id = $2
  `, tenantID, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Store) GetEmployee(ctx context.Context, tenantID, employeeID string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `
    SELECT e.id, e.user_id, e.first_name, e.last_name, u.email, e.manager_id, e.status, e.start_date, e.created_at
    FROM employees e
    JOIN users u ON e.user_id = u.id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&emp.ID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.ManagerID, &emp.Status, &emp.StartDate, &emp.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, err
	}
	return emp, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, e.user_id, e.first_name, e.last_name, u.email, e.manager_id, e.status, e.start_date, e.created_at
    FROM employees e
    JOIN users u ON e.user_id = u.id
    WHERE e.tenant_id = $1
    ORDER BY e.created_at
    LIMIT $2 OFFSET $3
  `, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.FirstName, &emp.LastName, &emp.Email, &emp.ManagerID, &emp.Status, &emp.StartDate, &emp.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, nil
}

// ListActiveEmployees returns active employee ids with start dates, the
// population the allocation batch targets by default.
func (s *Store) ListActiveEmployees(ctx context.Context, tenantID string) (map[string]*time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, start_date
    FROM employees
    WHERE tenant_id = $1 AND status = 'active'
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := map[string]*time.Time{}
	for rows.Next() {
		var employeeID string
		var startDate *time.Time
		if err := rows.Scan(&employeeID, &startDate); err != nil {
			return nil, err
		}
		employees[employeeID] = startDate
	}
	return employees, nil
}

// CreateEmployee creates the user and employee rows in one transaction. The
// extended timeout tolerates slow connections during onboarding imports.
func (s *Store) CreateEmployee(ctx context.Context, tenantID, roleID string, input CreateEmployeeInput) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return "", err
	}

	var userID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO users (tenant_id, role_id, email, password_hash, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, roleID, input.Email, hash, UserStatusActive).Scan(&userID); err != nil {
		return "", err
	}

	var employeeID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, manager_id, status, start_date)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, tenantID, userID, input.FirstName, input.LastName, input.ManagerID, EmployeeStatusActive, input.StartDate).Scan(&employeeID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return employeeID, nil
}

func (s *Store) RoleIDByName(ctx context.Context, tenantID, roleName string) (string, error) {
	var roleID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&roleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return roleID, nil
}
