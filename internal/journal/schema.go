package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stamped into the database's user_version pragma. Bump it
// when schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by an incompatible
// galley version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ensureSchema applies schema.sql to a fresh database and verifies the
// stamped version on every later open. The statements are all idempotent, so
// a crash between apply and stamp heals on the next open.
func (s *Store) ensureSchema(ctx context.Context) error {
	var stamped int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&stamped); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	switch stamped {
	case 0:
		return s.applySchema(ctx)
	case schemaVersion:
		return nil
	default:
		return fmt.Errorf("%w: database has version %d, expected %d (delete the journal database to reset)",
			ErrSchemaMismatch, stamped, schemaVersion)
	}
}

func (s *Store) applySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	// PRAGMA does not accept bind parameters; schemaVersion is a trusted const.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp schema version: %w", err)
	}
	return nil
}
