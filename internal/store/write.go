package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/artisync/internal/artifact"
)

// Save upserts an artifact by (kind, key).
//
// An existing row keeps its id, created_by and created_at; every other column
// is replaced. The insert-or-update runs in one transaction so a failure
// leaves the previous row untouched.
//
// Returns the artifact as stored, with ID and creation metadata filled in.
func (s *Store) Save(ctx context.Context, a artifact.Artifact) (artifact.Artifact, error) {
	if a.Kind == "" || a.Key == "" {
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, errors.New("kind and key are required"))
	}

	payloadJSON, err := marshalPayload(a.Payload)
	if err != nil {
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, err)
	}
	depsJSON, err := marshalDependencies(a.Dependencies)
	if err != nil {
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	var (
		id        int64
		createdBy string
		createdAt int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, created_by, created_at FROM artifacts
		WHERE kind = ? AND key = ?
	`, a.Kind, a.Key).Scan(&id, &createdBy, &createdAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts
			(kind, key, location, source, name, hash, dependencies, payload,
			 lifecycle, message, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			a.Kind, a.Key, a.Location, a.Source, a.Name, a.Hash, depsJSON, payloadJSON,
			string(a.Lifecycle), a.Message, a.CreatedBy, toUnixNano(a.CreatedAt), toUnixNano(a.UpdatedAt),
		)
		if err != nil {
			return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("insert: %w", err))
		}
		id, err = result.LastInsertId()
		if err != nil {
			return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("last insert id: %w", err))
		}
	case err != nil:
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("select existing: %w", err))
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE artifacts SET
				location = ?, source = ?, name = ?, hash = ?, dependencies = ?, payload = ?,
				lifecycle = ?, message = ?, updated_at = ?
			WHERE id = ?
		`,
			a.Location, a.Source, a.Name, a.Hash, depsJSON, payloadJSON,
			string(a.Lifecycle), a.Message, toUnixNano(a.UpdatedAt), id,
		)
		if err != nil {
			return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("update: %w", err))
		}
		a.CreatedBy = createdBy
		a.CreatedAt = fromUnixNano(createdAt)
	}

	if err := tx.Commit(); err != nil {
		return artifact.Artifact{}, persistenceErr("save", a.Kind, a.Location, fmt.Errorf("commit: %w", err))
	}

	a.ID = id
	return a, nil
}

// Delete removes the persisted artifact with the same (kind, key).
// Deleting an artifact that was never persisted is a no-op.
func (s *Store) Delete(ctx context.Context, a artifact.Artifact) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM artifacts WHERE kind = ? AND key = ?
	`, a.Kind, a.Key)
	if err != nil {
		return persistenceErr("delete", a.Kind, a.Location, err)
	}
	return nil
}

// SetState records lifecycle metadata without touching the declared content,
// so a failed or stalled artifact keeps its last-good payload.
// Returns false if no such row exists.
func (s *Store) SetState(ctx context.Context, kind, key string, lifecycle artifact.Lifecycle, message string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE artifacts SET lifecycle = ?, message = ?, updated_at = ?
		WHERE kind = ? AND key = ?
	`, string(lifecycle), message, toUnixNano(at), kind, key)
	if err != nil {
		return false, persistenceErr("set_state", kind, "", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, persistenceErr("set_state", kind, "", fmt.Errorf("rows affected: %w", err))
	}
	return n > 0, nil
}
