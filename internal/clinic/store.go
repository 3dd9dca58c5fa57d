// Package clinic provides clinic configuration read by the intake flow
// and edited by staff.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FallbackName and FallbackInstructions are used when the clinic row is
// missing or the store is unreachable, so a live call never runs without a
// persona.
const (
	FallbackName         = "Zahnarztpraxis"
	FallbackInstructions = "Du bist die freundliche Telefonassistentin einer Zahnarztpraxis. " +
		"Begrüße Anrufer höflich, beantworte allgemeine Fragen zur Praxis kurz und " +
		"nimm Terminwünsche entgegen. Gib keine medizinischen Ratschläge."
)

// ErrNotFound is returned when no clinic row exists for the id.
var ErrNotFound = errors.New("clinic not found")

// Clinic is the configuration injected into every system prompt.
// Instructions is free text written by staff and used verbatim.
type Clinic struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store reads and writes clinic configuration. Get is called on every
// conversation turn without caching so staff edits apply mid-call.
type Store interface {
	Get(ctx context.Context, id string) (*Clinic, error)
	Update(ctx context.Context, c *Clinic) (*Clinic, error)
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads clinics from the relational database.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("clinic: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get loads one clinic row.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Clinic, error) {
	query := `SELECT id, name, instructions, updated_at FROM clinics WHERE id = $1`
	var c Clinic
	if err := s.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Instructions, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("clinic: select failed: %w", err)
	}
	return &c, nil
}

// Update upserts name and instructions for a clinic.
func (s *PostgresStore) Update(ctx context.Context, c *Clinic) (*Clinic, error) {
	if strings.TrimSpace(c.ID) == "" {
		return nil, errors.New("clinic: id required")
	}
	query := `
		INSERT INTO clinics (id, name, instructions, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET name = $2, instructions = $3, updated_at = now()
		RETURNING id, name, instructions, updated_at
	`
	var out Clinic
	if err := s.db.QueryRow(ctx, query, c.ID, c.Name, c.Instructions).
		Scan(&out.ID, &out.Name, &out.Instructions, &out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("clinic: upsert failed: %w", err)
	}
	return &out, nil
}

// GetOrFallback resolves clinic config for a turn. Any failure degrades to
// the hardcoded fallback instead of stalling the conversation.
func GetOrFallback(ctx context.Context, store Store, id string) *Clinic {
	if store != nil {
		if c, err := store.Get(ctx, id); err == nil && c != nil {
			if strings.TrimSpace(c.Name) == "" {
				c.Name = FallbackName
			}
			if strings.TrimSpace(c.Instructions) == "" {
				c.Instructions = FallbackInstructions
			}
			return c
		}
	}
	return &Clinic{ID: id, Name: FallbackName, Instructions: FallbackInstructions}
}
