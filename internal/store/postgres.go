package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hopekit/targeting/internal/wire"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS targetings (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	programme_id TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	definition   JSONB NOT NULL,
	fingerprint  TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS targetings_programme_id_idx ON targetings (programme_id);
`

const selectColumns = `id, name, programme_id, description, definition, fingerprint, created_at, updated_at`

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the targetings table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// ListTargetings retrieves the targetings of a programme from the database.
func (p *PostgresStore) ListTargetings(ctx context.Context, programmeID string) ([]Targeting, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM targetings
		 WHERE $1::text = '' OR programme_id = $1
		 ORDER BY name, id`, programmeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	targetings := make([]Targeting, 0)
	for rows.Next() {
		t, err := scanTargeting(rows)
		if err != nil {
			return nil, err
		}
		targetings = append(targetings, t)
	}
	return targetings, rows.Err()
}

// GetTargeting retrieves a single targeting by ID from the database.
func (p *PostgresStore) GetTargeting(ctx context.Context, id string) (*Targeting, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM targetings WHERE id = $1`, id)
	t, err := scanTargeting(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// UpsertTargeting creates or updates a targeting in the database.
func (p *PostgresStore) UpsertTargeting(ctx context.Context, params UpsertParams) (*Targeting, error) {
	def := ensureCriteriaInitialized(params.Definition)
	defBytes, err := json.Marshal(def)
	if err != nil {
		return nil, err
	}
	fingerprint, err := Fingerprint(def)
	if err != nil {
		return nil, err
	}

	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := p.pool.QueryRow(ctx,
		`INSERT INTO targetings (id, name, programme_id, description, definition, fingerprint)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			programme_id = EXCLUDED.programme_id,
			description = EXCLUDED.description,
			definition = EXCLUDED.definition,
			fingerprint = EXCLUDED.fingerprint,
			updated_at = now()
		 RETURNING `+selectColumns,
		id, params.Name, params.ProgrammeID, params.Description, defBytes, fingerprint)

	t, err := scanTargeting(row)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTargeting removes a targeting from the database.
func (p *PostgresStore) DeleteTargeting(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM targetings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanTargeting(row pgx.Row) (Targeting, error) {
	var (
		t        Targeting
		defBytes []byte
		created  time.Time
		updated  time.Time
	)
	if err := row.Scan(&t.ID, &t.Name, &t.ProgrammeID, &t.Description, &defBytes, &t.Fingerprint, &created, &updated); err != nil {
		return Targeting{}, err
	}
	def, err := unmarshalDefinition(defBytes)
	if err != nil {
		return Targeting{}, err
	}
	t.Definition = def
	t.CreatedAt = created.UTC()
	t.UpdatedAt = updated.UTC()
	return t, nil
}

// unmarshalDefinition decodes a stored definition; empty or null input
// yields a definition without criteria.
func unmarshalDefinition(raw []byte) (wire.WireDefinition, error) {
	var def wire.WireDefinition
	if len(raw) == 0 || string(raw) == "null" {
		return ensureCriteriaInitialized(def), nil
	}
	if err := json.Unmarshal(raw, &def); err != nil {
		return wire.WireDefinition{}, fmt.Errorf("failed to decode definition: %w", err)
	}
	return ensureCriteriaInitialized(def), nil
}
