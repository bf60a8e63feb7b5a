package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/pgvector/pgvector-go"
)

// KnownFaceRepository provides PostgreSQL-backed gallery storage.
type KnownFaceRepository struct {
	pool *Pool
}

// NewKnownFaceRepository creates a new PostgreSQL gallery repository.
func NewKnownFaceRepository(pool *Pool) *KnownFaceRepository {
	return &KnownFaceRepository{pool: pool}
}

// LoadKnownFaces returns all faces in insertion order.
func (r *KnownFaceRepository) LoadKnownFaces(ctx context.Context) ([]database.KnownFace, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, embedding, source, created_at
		FROM known_faces
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query known faces: %w", err)
	}
	defer rows.Close()

	var faces []database.KnownFace
	for rows.Next() {
		var face database.KnownFace
		var vec pgvector.Vector
		if err := rows.Scan(&face.ID, &face.Name, &vec, &face.Source, &face.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan known face: %w", err)
		}
		face.Descriptor = vec.Slice()
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known faces: %w", err)
	}
	return faces, nil
}

// Count returns the total number of faces stored.
func (r *KnownFaceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM known_faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count known faces: %w", err)
	}
	return count, nil
}

// SaveKnownFaces replaces all stored faces in a single transaction.
func (r *KnownFaceRepository) SaveKnownFaces(ctx context.Context, faces []database.KnownFace) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM known_faces"); err != nil {
		return fmt.Errorf("clear known faces: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertKnownFaceSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, face := range faces {
		if _, err := stmt.ExecContext(ctx, knownFaceArgs(face)...); err != nil {
			return fmt.Errorf("insert known face %s: %w", face.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit known faces: %w", err)
	}
	return nil
}

// AddKnownFace inserts a single face.
func (r *KnownFaceRepository) AddKnownFace(ctx context.Context, face database.KnownFace) error {
	if _, err := r.pool.Exec(ctx, insertKnownFaceSQL, knownFaceArgs(face)...); err != nil {
		return fmt.Errorf("insert known face: %w", err)
	}
	return nil
}

// DeletePerson removes all faces of a person, compared by normalized name.
func (r *KnownFaceRepository) DeletePerson(ctx context.Context, name string) (int, error) {
	result, err := r.pool.Exec(ctx, "DELETE FROM known_faces WHERE name_normalized = $1", facematch.NormalizePersonName(name))
	if err != nil {
		return 0, fmt.Errorf("delete person: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

const insertKnownFaceSQL = `
	INSERT INTO known_faces (id, name, name_normalized, embedding, dim, source, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
`

func knownFaceArgs(face database.KnownFace) []any {
	id := face.ID
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	var createdAt any
	if !face.CreatedAt.IsZero() {
		createdAt = face.CreatedAt
	}
	return []any{
		id,
		face.Name,
		facematch.NormalizePersonName(face.Name),
		pgvector.NewVector(face.Descriptor),
		len(face.Descriptor),
		face.Source,
		createdAt,
	}
}
