// Package postgres provides the PostgreSQL implementation of the
// incident repository. The aggregate is stored as a JSONB document with
// denormalized columns for filtering; every field and invariant of the
// in-memory representation round-trips through the document.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/incidents"
)

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create stores a new incident.
func (r *Repository) Create(ctx context.Context, incident *domain.SecurityIncident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	query := `
		INSERT INTO incidents (id, type, severity, status, created_at, closed_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		incident.ID,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.CreatedAt,
		incident.ClosedAt,
		data,
	)
	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// Get retrieves an incident by ID.
func (r *Repository) Get(ctx context.Context, id string) (*domain.SecurityIncident, error) {
	var data []byte
	err := r.db.QueryRow(ctx, `SELECT data FROM incidents WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, incidents.ErrIncidentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	var incident domain.SecurityIncident
	if err := json.Unmarshal(data, &incident); err != nil {
		return nil, fmt.Errorf("unmarshal incident %s: %w", id, err)
	}
	return &incident, nil
}

// Update replaces the stored incident document.
func (r *Repository) Update(ctx context.Context, incident *domain.SecurityIncident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	query := `
		UPDATE incidents
		SET type = $2, severity = $3, status = $4, closed_at = $5, data = $6
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		incident.ID,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.ClosedAt,
		data,
	)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// Delete removes an incident. Deleting an unknown ID is not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return nil
}

// Exists reports whether the ID is already taken.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM incidents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check incident exists: %w", err)
	}
	return exists, nil
}

// List returns incidents matching the filters, newest first.
func (r *Repository) List(ctx context.Context, filters incidents.Filters) ([]*domain.SecurityIncident, error) {
	query := `SELECT data FROM incidents WHERE 1=1`
	args := []any{}
	argN := 1

	appendArg := func(clause string, value any) {
		query += fmt.Sprintf(" AND %s $%d", clause, argN)
		args = append(args, value)
		argN++
	}

	if filters.Type != nil {
		appendArg("type =", *filters.Type)
	}
	if filters.Severity != nil {
		appendArg("severity =", *filters.Severity)
	}
	if filters.Status != nil {
		appendArg("status =", *filters.Status)
	}
	if filters.OpenOnly {
		query += ` AND status NOT IN ('closed', 'false_positive')`
	}
	if filters.ClosedBefore != nil {
		appendArg("closed_at IS NOT NULL AND closed_at <", *filters.ClosedBefore)
	}

	query += ` ORDER BY created_at DESC`
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filters.Limit)
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var result []*domain.SecurityIncident
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		var incident domain.SecurityIncident
		if err := json.Unmarshal(data, &incident); err != nil {
			return nil, fmt.Errorf("unmarshal incident: %w", err)
		}
		result = append(result, &incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return result, nil
}
