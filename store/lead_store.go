package store

import (
	"context"
	"database/sql"
	"fmt"

	"shelfwise/api/models"
)

type LeadStore struct {
	db *sql.DB
}

func NewLeadStore(db *sql.DB) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) CreateLead(ctx context.Context, req *models.CreateLeadRequest) (*models.Lead, error) {
	lead := &models.Lead{}
	query := `
		INSERT INTO leads (email, first_name, last_name, company, phone, source, product_id, product_title, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'new')
		RETURNING id, email, first_name, last_name, company, phone, source, product_id, product_title, status, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query,
		req.Email, req.FirstName, req.LastName, req.Company, req.Phone,
		req.Source, req.ProductID, req.ProductTitle,
	).Scan(
		&lead.ID,
		&lead.Email,
		&lead.FirstName,
		&lead.LastName,
		&lead.Company,
		&lead.Phone,
		&lead.Source,
		&lead.ProductID,
		&lead.ProductTitle,
		&lead.Status,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	return lead, nil
}

// ListLeads returns leads newest first, optionally filtered by status.
func (s *LeadStore) ListLeads(ctx context.Context, status string) ([]models.Lead, error) {
	query := `
		SELECT id, email, first_name, last_name, company, phone, source, product_id, product_title, status, created_at, updated_at
		FROM leads
	`
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(
			&l.ID, &l.Email, &l.FirstName, &l.LastName, &l.Company, &l.Phone,
			&l.Source, &l.ProductID, &l.ProductTitle, &l.Status, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		leads = append(leads, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during lead list query: %w", err)
	}

	return leads, nil
}
