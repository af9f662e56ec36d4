package persistence

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrostream/studio-api/internal/domain/gallery"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

type postgresGalleryRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresGalleryRepo(db *pgxpool.Pool, logger logger.Logger) gallery.Repository {
	return &postgresGalleryRepo{db: db, logger: logger}
}

var psqlGallery = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func scanGalleryImage(row pgx.Row) (*gallery.Image, error) {
	img := &gallery.Image{}
	var thumbURL sql.NullString

	err := row.Scan(&img.ID, &img.OwnerID, &img.URL, &thumbURL, &img.Caption, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("gallery image", "")
		}
		return nil, apperror.NewInternal("failed to scan gallery row", err)
	}
	if thumbURL.Valid {
		img.ThumbnailURL = &thumbURL.String
	}
	return img, nil
}

func (r *postgresGalleryRepo) Save(ctx context.Context, img *gallery.Image) error {
	query := `
		INSERT INTO gallery_images (id, owner_id, url, thumbnail_url, caption, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		img.ID, img.OwnerID, img.URL, img.ThumbnailURL, img.Caption, img.CreatedAt,
	)
	if err != nil {
		return apperror.NewInternal("failed to insert gallery image", err)
	}
	return nil
}

func (r *postgresGalleryRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM gallery_images WHERE id = $1 AND owner_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return apperror.NewInternal("failed to delete gallery image", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("gallery image", id.String())
	}
	return nil
}

func (r *postgresGalleryRepo) FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*gallery.Image, error) {
	query := `SELECT id, owner_id, url, thumbnail_url, caption, created_at
		FROM gallery_images WHERE id = $1 AND owner_id = $2`
	row := r.db.QueryRow(ctx, query, id, ownerID)
	return scanGalleryImage(row)
}

func (r *postgresGalleryRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*gallery.Image, error) {
	builder := psqlGallery.Select("id", "owner_id", "url", "thumbnail_url", "caption", "created_at").
		From("gallery_images").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list gallery query", err)
	}
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query gallery images", err)
	}
	defer rows.Close()

	images := make([]*gallery.Image, 0)
	for rows.Next() {
		img, err := scanGalleryImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating gallery rows", err)
	}
	return images, nil
}
