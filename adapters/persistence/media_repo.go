package persistence

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

type postgresMediaRepo struct {
	db     *pgxpool.Pool
	logger logger.Logger
}

func NewPostgresMediaRepo(db *pgxpool.Pool, logger logger.Logger) media.Repository {
	return &postgresMediaRepo{db: db, logger: logger}
}

var psqlMedia = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const mediaColumns = `id, owner_id, title, description, summary, transcript,
	asset_id, playback_id, filename, status, duration_minutes,
	scheduled_at, created_at, updated_at`

func scanMediaItem(row pgx.Row) (*media.Item, error) {
	m := &media.Item{}
	var playbackID sql.NullString
	var scheduledAt sql.NullTime

	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.Description, &m.Summary, &m.Transcript,
		&m.AssetID, &playbackID, &m.Filename, &m.Status, &m.DurationMinutes,
		&scheduledAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("media", "")
		}
		return nil, apperror.NewInternal("failed to scan media row", err)
	}

	if playbackID.Valid {
		m.PlaybackID = &playbackID.String
	}
	if scheduledAt.Valid {
		m.ScheduledAt = &scheduledAt.Time
	}
	return m, nil
}

func scanMediaItems(rows pgx.Rows) ([]*media.Item, error) {
	defer rows.Close()
	items := make([]*media.Item, 0)
	for rows.Next() {
		m, err := scanMediaItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal("error iterating media rows", err)
	}
	return items, nil
}

func (r *postgresMediaRepo) Save(ctx context.Context, m *media.Item) error {
	query := `
		INSERT INTO media (id, owner_id, title, description, summary, transcript,
			asset_id, playback_id, filename, status, duration_minutes,
			scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.OwnerID, m.Title, m.Description, m.Summary, m.Transcript,
		m.AssetID, m.PlaybackID, m.Filename, m.Status, m.DurationMinutes,
		m.ScheduledAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return apperror.NewInternal("failed to insert media", err)
	}
	return nil
}

func (r *postgresMediaRepo) Update(ctx context.Context, m *media.Item) error {
	query := `
		UPDATE media SET
			title = $2, description = $3, summary = $4, transcript = $5,
			playback_id = $6, status = $7, duration_minutes = $8,
			scheduled_at = $9, updated_at = NOW()
		WHERE id = $1 AND owner_id = $10
	`
	cmdTag, err := r.db.Exec(ctx, query,
		m.ID, m.Title, m.Description, m.Summary, m.Transcript,
		m.PlaybackID, m.Status, m.DurationMinutes, m.ScheduledAt, m.OwnerID,
	)
	if err != nil {
		return apperror.NewInternal("failed to update media", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("media", m.ID.String())
	}
	return nil
}

func (r *postgresMediaRepo) Delete(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `DELETE FROM media WHERE id = $1 AND owner_id = $2`
	cmdTag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return apperror.NewInternal("failed to delete media", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperror.NewNotFound("media", id.String())
	}
	return nil
}

func (r *postgresMediaRepo) FindByID(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*media.Item, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1 AND owner_id = $2`
	row := r.db.QueryRow(ctx, query, id, ownerID)
	return scanMediaItem(row)
}

func (r *postgresMediaRepo) FindByAssetID(ctx context.Context, assetID string) (*media.Item, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE asset_id = $1`
	row := r.db.QueryRow(ctx, query, assetID)
	return scanMediaItem(row)
}

func (r *postgresMediaRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*media.Item, error) {
	builder := psqlMedia.Select(mediaColumns).
		From("media").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	sqlStr, args, err := builder.ToSql()
	if err != nil {
		return nil, apperror.NewInternal("failed to build list media query", err)
	}
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, apperror.NewInternal("failed to query media by owner", err)
	}
	return scanMediaItems(rows)
}
