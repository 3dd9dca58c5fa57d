package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is the pgxpool.Pool surface the repository needs. Narrowed to an
// interface so tests can substitute pgxmock.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db pgxQuerier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithQuerier(db pgxQuerier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new row with status "new".
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	urgency := req.Urgency
	if urgency == "" {
		urgency = "normal"
	}

	slotJSON, err := json.Marshal(req.PreferredSlot)
	if err != nil {
		return nil, fmt.Errorf("leads: encode preferred slot: %w", err)
	}

	id := uuid.New()
	query := `
		INSERT INTO leads (id, call_ref, name, phone, concern, urgency, insurance, preferred_slot, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.CallRef,
		req.Name,
		req.Phone,
		req.Concern,
		urgency,
		req.Insurance,
		slotJSON,
		req.Notes,
		StatusNew,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}

	return &Lead{
		ID:            id.String(),
		CallRef:       req.CallRef,
		Name:          req.Name,
		Phone:         req.Phone,
		Concern:       req.Concern,
		Urgency:       urgency,
		Insurance:     req.Insurance,
		PreferredSlot: req.PreferredSlot,
		Notes:         req.Notes,
		Status:        StatusNew,
		CreatedAt:     createdAt,
	}, nil
}

const leadColumns = `id, call_ref, name, phone, concern, urgency, insurance, preferred_slot, notes, status, created_at`

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads newest first, optionally filtered by status.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		rows pgx.Rows
		err  error
	)
	if filter.Status != "" {
		query := `SELECT ` + leadColumns + ` FROM leads WHERE status = $1 ORDER BY created_at DESC LIMIT $2`
		rows, err = r.db.Query(ctx, query, filter.Status, limit)
	} else {
		query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC LIMIT $1`
		rows, err = r.db.Query(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

// UpdateStatus moves a lead to a new status and returns the updated row.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id, status string) (*Lead, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	query := `UPDATE leads SET status = $2 WHERE id = $1 RETURNING ` + leadColumns
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead     Lead
		slotJSON []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.CallRef,
		&lead.Name,
		&lead.Phone,
		&lead.Concern,
		&lead.Urgency,
		&lead.Insurance,
		&slotJSON,
		&lead.Notes,
		&lead.Status,
		&lead.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(slotJSON) > 0 {
		if err := json.Unmarshal(slotJSON, &lead.PreferredSlot); err != nil {
			return nil, fmt.Errorf("decode preferred slot: %w", err)
		}
	}
	return &lead, nil
}
