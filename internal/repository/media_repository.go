package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/localhelp-backend/internal/models"
	"github.com/ignatzorin/localhelp-backend/internal/repository/common"
)

var ErrMediaNotFound = errors.New("media file not found")

type MediaRepository struct {
	db *sqlx.DB
}

func NewMediaRepository(db *sqlx.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create сохраняет метаданные загруженного файла.
func (r *MediaRepository) Create(ctx context.Context, m *models.MediaFile) error {
	return r.db.QueryRowxContext(ctx, `
		INSERT INTO media (owner_id, path, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.OwnerID, m.Path, m.MimeType, m.SizeBytes).Scan(&m.ID, &m.CreatedAt)
}

// GetByID возвращает метаданные файла.
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MediaFile, error) {
	return common.GetByID[models.MediaFile](ctx, r.db, "media", id, ErrMediaNotFound)
}

// Delete удаляет метаданные файла.
func (r *MediaRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("media repository: delete: %w", err)
	}
	return nil
}
