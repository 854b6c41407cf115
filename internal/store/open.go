package store

import (
	"context"
	"errors"
	"fmt"

	mydb "github.com/hopekit/targeting/internal/db"
)

// Storage backends accepted by Open.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ErrUnknownBackend is returned by Open for a backend name it does not know.
var ErrUnknownBackend = errors.New("unknown store backend")

// Open returns the targeting store for backend. The postgres backend
// connects with dsn and creates the targetings table when it is missing.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	if backend == BackendMemory {
		return NewMemoryStore(), nil
	}
	if backend != BackendPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	pool, err := mydb.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect targeting store: %w", err)
	}
	ps := NewPostgresStore(pool)
	if err := ps.EnsureSchema(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("prepare targeting schema: %w", err)
	}
	return ps, nil
}
