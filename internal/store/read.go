package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/artisync/internal/artifact"
)

const selectColumns = `
	SELECT id, kind, key, location, source, name, hash, dependencies, payload,
	       lifecycle, message, created_by, created_at, updated_at
	FROM artifacts`

// FindAll returns every persisted artifact of a kind, ordered by location.
// Returns an empty slice (not nil) if none exist.
func (s *Store) FindAll(ctx context.Context, kind string) ([]artifact.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE kind = ?
		ORDER BY location COLLATE BINARY ASC
	`, kind)
	if err != nil {
		return nil, persistenceErr("find", kind, "", fmt.Errorf("query artifacts: %w", err))
	}
	return collect(rows, kind)
}

// FindAllKinds returns every persisted artifact, ordered by kind then location.
func (s *Store) FindAllKinds(ctx context.Context) ([]artifact.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY kind COLLATE BINARY ASC, location COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, persistenceErr("find", "", "", fmt.Errorf("query artifacts: %w", err))
	}
	return collect(rows, "")
}

// FindByKey returns the persisted artifact with the given key, or nil.
func (s *Store) FindByKey(ctx context.Context, kind, key string) (*artifact.Artifact, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+`
		WHERE kind = ? AND key = ?
	`, kind, key)

	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistenceErr("find", kind, "", err)
	}
	return &a, nil
}

// FindByLocation returns the persisted artifact at a location, or nil.
func (s *Store) FindByLocation(ctx context.Context, kind, location string) (*artifact.Artifact, error) {
	key, err := artifact.KeyOf(kind, location)
	if err != nil {
		return nil, persistenceErr("find", kind, location, err)
	}
	return s.FindByKey(ctx, kind, key)
}

func collect(rows *sql.Rows, kind string) ([]artifact.Artifact, error) {
	defer rows.Close()

	out := []artifact.Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, persistenceErr("find", kind, "", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("find", kind, "", fmt.Errorf("iterate artifacts: %w", err))
	}
	return out, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (artifact.Artifact, error) {
	var (
		a                    artifact.Artifact
		depsJSON, payload    string
		lifecycle            string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID, &a.Kind, &a.Key, &a.Location, &a.Source, &a.Name, &a.Hash,
		&depsJSON, &payload, &lifecycle, &a.Message, &a.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		return artifact.Artifact{}, err
	}

	a.Dependencies, err = unmarshalDependencies(depsJSON)
	if err != nil {
		return artifact.Artifact{}, err
	}
	a.Payload, err = unmarshalPayload(payload)
	if err != nil {
		return artifact.Artifact{}, err
	}
	a.Lifecycle = artifact.Lifecycle(lifecycle)
	a.CreatedAt = fromUnixNano(createdAt)
	a.UpdatedAt = fromUnixNano(updatedAt)
	return a, nil
}
