package store

import (
	"context"
	"errors"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		dsn     string
		wantErr error
	}{
		{name: "memory", backend: BackendMemory},
		{name: "unknown backend", backend: "redis", wantErr: ErrUnknownBackend},
		{name: "empty backend", backend: "", wantErr: ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Open(context.Background(), tt.backend, tt.dsn)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer st.Close()
			if _, ok := st.(*MemoryStore); !ok {
				t.Errorf("store is %T, want *MemoryStore", st)
			}
		})
	}
}

func TestOpen_PostgresRejectsMalformedDSN(t *testing.T) {
	if _, err := Open(context.Background(), BackendPostgres, "://not-a-dsn"); err == nil {
		t.Fatal("expected an error for a malformed DSN")
	}
}
