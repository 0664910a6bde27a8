package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"zenora/internal/domain/auth"
)

type SeedInput struct {
	TenantName          string
	AdminEmail          string
	AdminPassword       string
	SystemAdminEmail    string
	SystemAdminPassword string
}

// Seed provisions the first tenant with its role set and an admin user. It
// is idempotent: reruns on an already-seeded database are no-ops.
func Seed(ctx context.Context, pool *pgxpool.Pool, input SeedInput) error {
	if input.TenantName == "" || input.AdminEmail == "" || input.AdminPassword == "" {
		slog.Info("seed skipped, seed credentials not configured")
		return nil
	}

	var tenantID string
	err := pool.QueryRow(ctx, "SELECT id FROM tenants WHERE name = $1", input.TenantName).Scan(&tenantID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup seed tenant: %w", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if err := pool.QueryRow(ctx,
			"INSERT INTO tenants (name, status) VALUES ($1, 'active') RETURNING id", input.TenantName,
		).Scan(&tenantID); err != nil {
			return fmt.Errorf("create seed tenant: %w", err)
		}
		if _, err := pool.Exec(ctx,
			"INSERT INTO tenant_settings (tenant_id, leave_policies) VALUES ($1, '{}') ON CONFLICT (tenant_id) DO NOTHING",
			tenantID,
		); err != nil {
			return fmt.Errorf("create seed tenant settings: %w", err)
		}
		slog.Info("seeded tenant", "name", input.TenantName)
	}

	if err := seedRoles(ctx, pool, tenantID); err != nil {
		return err
	}
	if err := seedUser(ctx, pool, tenantID, auth.RoleAdmin, input.AdminEmail, input.AdminPassword, "System", "Administrator"); err != nil {
		return err
	}
	if input.SystemAdminEmail != "" && input.SystemAdminPassword != "" {
		return seedUser(ctx, pool, tenantID, auth.RoleSystemAdmin, input.SystemAdminEmail, input.SystemAdminPassword, "Platform", "Operator")
	}
	return nil
}

func seedRoles(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	for roleName, perms := range auth.RolePermissions {
		var roleID string
		if err := pool.QueryRow(ctx, `
      INSERT INTO roles (tenant_id, name) VALUES ($1, $2)
      ON CONFLICT (tenant_id, name) DO UPDATE SET name = EXCLUDED.name
      RETURNING id
    `, tenantID, roleName).Scan(&roleID); err != nil {
			return fmt.Errorf("seed role %s: %w", roleName, err)
		}
		for _, perm := range perms {
			if _, err := pool.Exec(ctx, `
        INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)
        ON CONFLICT (role_id, permission) DO NOTHING
      `, roleID, perm); err != nil {
				return fmt.Errorf("seed permission %s for %s: %w", perm, roleName, err)
			}
		}
	}
	return nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, tenantID, roleName, seedEmail, password, firstName, lastName string) error {
	var exists bool
	if err := pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE tenant_id = $1 AND email = $2)", tenantID, seedEmail,
	).Scan(&exists); err != nil {
		return fmt.Errorf("lookup seed user: %w", err)
	}
	if exists {
		return nil
	}

	var roleID string
	if err := pool.QueryRow(ctx,
		"SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName,
	).Scan(&roleID); err != nil {
		return fmt.Errorf("lookup %s role: %w", roleName, err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	var userID string
	if err := pool.QueryRow(ctx, `
    INSERT INTO users (tenant_id, role_id, email, password_hash, status)
    VALUES ($1, $2, $3, $4, 'active')
    RETURNING id
  `, tenantID, roleID, seedEmail, hash).Scan(&userID); err != nil {
		return fmt.Errorf("create seed user: %w", err)
	}
	if _, err := pool.Exec(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, status)
    VALUES ($1, $2, $3, $4, 'active')
  `, tenantID, userID, firstName, lastName); err != nil {
		return fmt.Errorf("create seed employee: %w", err)
	}
	slog.Info("seeded user", "email", seedEmail, "role", roleName)
	return nil
}
