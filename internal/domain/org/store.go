package org

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"leavedesk/internal/platform/querier"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) GetOrganization(ctx context.Context, orgID string) (Organization, error) {
	var o Organization
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, created_at
    FROM organizations
    WHERE id = $1
  `, orgID).Scan(&o.ID, &o.Name, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrNotFound
	}
	return o, err
}

func (s *Store) ListEmployees(ctx context.Context, orgID string) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(user_id::text, ''), organization_id, first_name, last_name, email,
           COALESCE(manager_id::text, ''), status, start_date, created_at, updated_at
    FROM employees
    WHERE organization_id = $1
    ORDER BY last_name, first_name
  `, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var emp Employee
		if err := rows.Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.FirstName, &emp.LastName,
			&emp.Email, &emp.ManagerID, &emp.Status, &emp.StartDate, &emp.CreatedAt, &emp.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, nil
}

func (s *Store) GetEmployee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	var emp Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(user_id::text, ''), organization_id, first_name, last_name, email,
           COALESCE(manager_id::text, ''), status, start_date, created_at, updated_at
    FROM employees
    WHERE organization_id = $1 AND id = $2
  `, orgID, employeeID).Scan(&emp.ID, &emp.UserID, &emp.OrganizationID, &emp.FirstName, &emp.LastName,
		&emp.Email, &emp.ManagerID, &emp.Status, &emp.StartDate, &emp.CreatedAt, &emp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	return emp, err
}

func (s *Store) InsertEmployee(ctx context.Context, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (organization_id, user_id, first_name, last_name, email, manager_id, status, start_date)
    VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, NULLIF($6, '')::uuid, $7, $8)
    RETURNING id
  `, emp.OrganizationID, emp.UserID, emp.FirstName, emp.LastName, emp.Email, emp.ManagerID, emp.Status, emp.StartDate).Scan(&id)
	return id, err
}

func (s *Store) UpdateEmployeeManager(ctx context.Context, orgID, employeeID, managerID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET manager_id = NULLIF($3, '')::uuid, updated_at = now()
    WHERE organization_id = $1 AND id = $2
  `, orgID, employeeID, managerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, orgID, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    SELECT id FROM employees WHERE organization_id = $1 AND user_id = $2
  `, orgID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

func (s *Store) IsManagerOf(ctx context.Context, orgID, managerEmployeeID, employeeID string) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM employees
    WHERE organization_id = $1 AND id = $2 AND manager_id = $3
  `, orgID, employeeID, managerEmployeeID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
